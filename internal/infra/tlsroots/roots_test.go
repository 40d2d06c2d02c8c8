package tlsroots

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testCertPEM(t *testing.T) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "staging CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func TestAddCertPEM(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    int
		wantErr error
	}{
		{"one", testCertPEM(t), 1, nil},
		{"two", append(testCertPEM(t), testCertPEM(t)...), 2, nil},
		{"empty", nil, 0, ErrNoCertsFound},
		{"key only", pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte("x")}), 0, ErrNoCertsFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewEmptyPool()
			err := p.AddCertPEM(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("AddCertPEM() error = %v, want %v", err, tt.wantErr)
			}
			if p.Added() != tt.want {
				t.Errorf("Added() = %d, want %d", p.Added(), tt.want)
			}
		})
	}
}

func TestAddCertPEM_Corrupt(t *testing.T) {
	bad := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte("garbage")})
	if err := NewEmptyPool().AddCertPEM(bad); err == nil {
		t.Error("corrupt certificate accepted")
	}
}

func TestAddCertFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "ca.pem")
	if err := os.WriteFile(file, testCertPEM(t), 0o600); err != nil {
		t.Fatal(err)
	}

	p := NewEmptyPool()
	if err := p.AddCertFile(file); err != nil {
		t.Fatalf("AddCertFile() error = %v", err)
	}
	if p.Added() != 1 {
		t.Errorf("Added() = %d", p.Added())
	}

	if err := p.AddCertFile(filepath.Join(dir, "missing.pem")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestAddCertFile_Dir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.pem", "b.CRT"} {
		if err := os.WriteFile(filepath.Join(dir, name), testCertPEM(t), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("ignored"), 0o600); err != nil {
		t.Fatal(err)
	}

	p := NewEmptyPool()
	if err := p.AddCertFile(dir); err != nil {
		t.Fatalf("AddCertFile(dir) error = %v", err)
	}
	if p.Added() != 2 {
		t.Errorf("Added() = %d, want 2", p.Added())
	}

	if err := NewEmptyPool().AddCertFile(t.TempDir()); !errors.Is(err, ErrNoCertsFound) {
		t.Errorf("empty dir error = %v", err)
	}
}

func TestTLSConfig_TrustsServer(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	p := NewEmptyPool()
	p.AddCertPEM(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: server.Certificate().Raw}))

	cfg := p.TLSConfig()
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %x", cfg.MinVersion)
	}

	client := &http.Client{Transport: &http.Transport{TLSClientConfig: cfg}}
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("GET with custom roots: %v", err)
	}
	resp.Body.Close()

	if _, err := (&http.Client{Transport: &http.Transport{TLSClientConfig: NewEmptyPool().TLSConfig()}}).Get(server.URL); err == nil {
		t.Error("GET succeeded without trusting the server certificate")
	}
}
