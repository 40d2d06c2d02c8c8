package logger

import (
	"testing"
)

func TestRedact_SensitiveKeys(t *testing.T) {
	l, buf := newJSONLogger(t, "info")

	l.Info("login", "password", "hunter22", "token", "12|abcdefghijkl", "email", "ibu@example.id")

	entry := decode(t, buf)
	if entry["password"] != redactedValue {
		t.Errorf("password = %v", entry["password"])
	}
	if entry["token"] != redactedValue {
		t.Errorf("token = %v", entry["token"])
	}
	if entry["email"] != "ibu@example.id" {
		t.Errorf("email should not be redacted, got %v", entry["email"])
	}
}

func TestRedact_BearerValue(t *testing.T) {
	l, buf := newJSONLogger(t, "info")

	l.Info("request", "header", "Bearer 12|abcdefghijklmnop")

	entry := decode(t, buf)
	if entry["header"] != "Bearer 12|abc...nop" {
		t.Errorf("header = %v", entry["header"])
	}
}

func TestRedact_EmptySensitiveValueKept(t *testing.T) {
	l, buf := newJSONLogger(t, "info")

	l.Info("no token", "token", "")

	entry := decode(t, buf)
	if entry["token"] != "" {
		t.Errorf("empty token = %v, want empty", entry["token"])
	}
}

func TestMaskToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12|abcdefghijklmnop", "12|abc...nop"},
		{"abcdefghijklmnop", "abc...nop"},
		{"short", "***"},
		{"3|tiny", "3|***"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := MaskToken(tt.in); got != tt.want {
				t.Errorf("MaskToken(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsSensitiveKey(t *testing.T) {
	for _, k := range []string{"Authorization", "refresh_token", "PASSWORD", "encryption_key"} {
		if !IsSensitiveKey(k) {
			t.Errorf("IsSensitiveKey(%q) = false", k)
		}
	}
	for _, k := range []string{"email", "user_id", "status"} {
		if IsSensitiveKey(k) {
			t.Errorf("IsSensitiveKey(%q) = true", k)
		}
	}
}
