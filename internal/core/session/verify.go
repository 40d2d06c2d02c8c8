package session

import (
	"context"
	"errors"

	"github.com/jagoanbunda/bunda-cli/internal/core/domain"
	"github.com/jagoanbunda/bunda-cli/internal/telemetry/metric"
)

const verifyKey = "verify"

type verifyResult struct {
	ok      bool
	outcome string
}

// VerifyAuth confirms the stored session with the backend and reports
// whether the user is still signed in.
//
//   - no stored token: signed out, the server is not asked
//   - 401: one token refresh, then one retry; if either fails the session
//     is cleared
//   - any other failure: false, but the session is kept
//
// IsVerifying is true for exactly as long as a verification runs.
// Concurrent callers join the verification already in flight and share
// its result. The verification itself is not tied to ctx, only the wait
// for it is. The error carries storage failures; for any other failure
// err is nil and the outcome is in the bool.
func (m *Manager) VerifyAuth(ctx context.Context) (bool, error) {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return false, ErrDisposed
	}
	m.inflight.Add(1)
	m.mu.Unlock()

	flightCtx := context.WithoutCancel(ctx)
	ch := m.flight.DoChan(verifyKey, func() (any, error) {
		return m.runVerify(flightCtx)
	})

	select {
	case res := <-ch:
		m.inflight.Done()
		if res.Shared && m.metrics != nil {
			m.metrics.VerifyShared.Inc()
		}
		r, _ := res.Val.(verifyResult)
		return r.ok, res.Err
	case <-ctx.Done():
		// Keep Dispose waiting until the flight this caller joined ends.
		go func() {
			<-ch
			m.inflight.Done()
		}()
		return false, ctx.Err()
	}
}

func (m *Manager) runVerify(ctx context.Context) (res verifyResult, err error) {
	m.update(func(s *State) {
		s.IsVerifying = true
		s.VerifyErr = nil
	})
	defer func() {
		m.countVerify(res.outcome)
		m.update(func(s *State) {
			s.IsVerifying = false
		})
	}()

	ok, outcome, err := m.verify(ctx)
	m.logger.Debug("verification finished", "outcome", outcome, "ok", ok)
	return verifyResult{ok: ok, outcome: outcome}, err
}

func (m *Manager) verify(ctx context.Context) (bool, string, error) {
	token, err := m.store.GetToken(ctx)
	if err != nil {
		return false, metric.VerifyFailed, err
	}
	if token == "" {
		m.setUser(nil)
		return false, metric.VerifyNoToken, nil
	}

	user, err := m.svc.GetMe(ctx)
	if err == nil {
		return m.accept(ctx, user, metric.VerifyValid)
	}

	switch kind := domain.KindOf(err); kind {
	case domain.KindUnauthorized:
		return m.refreshAndRetry(ctx)
	case domain.KindStorage:
		return false, metric.VerifyFailed, err
	case domain.KindNetwork, domain.KindServer, domain.KindAPI, domain.KindValidation, domain.KindUnknown:
		m.logger.Warn("verification failed, keeping session", "kind", kind.String(), "error", err)
		m.update(func(s *State) {
			s.VerifyErr = err
		})
		return false, metric.VerifyTransient, nil
	default:
		return false, metric.VerifyTransient, nil
	}
}

// refreshAndRetry handles a 401 from the first GetMe.
func (m *Manager) refreshAndRetry(ctx context.Context) (bool, string, error) {
	token, err := m.svc.RefreshToken(ctx)
	if err != nil {
		m.countRefresh("failed")
		m.logger.Info("token refresh failed, signing out", "error", err)
		return false, metric.VerifyExpired, storageErr(err, m.expire(ctx))
	}
	m.countRefresh("ok")

	if err := m.store.SetToken(ctx, token); err != nil {
		return false, metric.VerifyFailed, errors.Join(err, m.expire(ctx))
	}

	user, err := m.svc.GetMe(ctx)
	if err != nil {
		m.logger.Info("retry after refresh failed, signing out", "error", err)
		return false, metric.VerifyExpired, storageErr(err, m.expire(ctx))
	}
	return m.accept(ctx, user, metric.VerifyRefreshed)
}

// accept records a confirmed user. A failure to persist it is reported
// but does not invalidate the confirmation.
func (m *Manager) accept(ctx context.Context, u *domain.User, outcome string) (bool, string, error) {
	m.setUser(u)
	if err := m.store.SetUser(ctx, u); err != nil {
		return true, outcome, err
	}
	return true, outcome, nil
}

// storageErr picks what a failed refresh path reports: the service error
// if it came from local storage, otherwise the result of clearing the store.
func storageErr(cause, clearErr error) error {
	if domain.KindOf(cause) == domain.KindStorage {
		return errors.Join(cause, clearErr)
	}
	return clearErr
}

func (m *Manager) countVerify(outcome string) {
	if m.metrics != nil && outcome != "" {
		m.metrics.VerifyTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Manager) countRefresh(result string) {
	if m.metrics != nil {
		m.metrics.TokenRefreshTotal.WithLabelValues(result).Inc()
	}
}
