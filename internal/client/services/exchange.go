package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/joboost/internal/common"
)

// Destination is where the user is sent after a delegated login.
type Destination string

const (
	DestOnboarding  Destination = "/onboarding"
	DestDashboard   Destination = "/dashboard"
	DestLogin       Destination = "/login"
	DestLoginFailed Destination = "/login?error=auth_failed"
)

type exchangeResult struct {
	dest Destination
	err  error
}

// ParseDelegatedCallback extracts the one-time session id from the URL the
// identity provider redirected to. The id travels in the fragment
// (#session_id=...); the query string is accepted as a fallback.
func ParseDelegatedCallback(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if frag, err := url.ParseQuery(u.Fragment); err == nil {
		if id := frag.Get("session_id"); id != "" {
			return id
		}
	}
	return u.Query().Get("session_id")
}

// HandleDelegatedCallback completes a delegated login from its callback URL.
// A URL without a session id leads back to the login view.
func (m *SessionManager) HandleDelegatedCallback(ctx context.Context, callbackURL string) (Destination, error) {
	id := ParseDelegatedCallback(callbackURL)
	if id == "" {
		return DestLogin, nil
	}
	return m.ExchangeDelegatedSession(ctx, id)
}

// ExchangeDelegatedSession trades a one-time session id for a session. The
// Gateway is contacted at most once per id: concurrent callers share one
// call and later callers get the recorded result. Once started, the
// exchange is not cancelled by ctx.
func (m *SessionManager) ExchangeDelegatedSession(ctx context.Context, sessionID string) (Destination, error) {
	if sessionID == "" {
		return DestLogin, fmt.Errorf("%w: missing session id", common.ErrValidation)
	}
	if r, ok := m.recordedExchange(sessionID); ok {
		m.log.Debug(ctx, "delegated session already exchanged")
		return r.dest, r.err
	}

	v, _, _ := m.flights.Do(sessionID, func() (any, error) {
		// A flight that finished between the check above and Do has
		// already recorded its result.
		if r, ok := m.recordedExchange(sessionID); ok {
			return r, nil
		}
		r := m.exchange(context.WithoutCancel(ctx), sessionID)
		m.exchMu.Lock()
		m.exchanged[sessionID] = r
		m.exchMu.Unlock()
		return r, nil
	})
	r := v.(exchangeResult)
	return r.dest, r.err
}

func (m *SessionManager) recordedExchange(id string) (exchangeResult, bool) {
	m.exchMu.Lock()
	defer m.exchMu.Unlock()
	r, ok := m.exchanged[id]
	return r, ok
}

func (m *SessionManager) exchange(ctx context.Context, sessionID string) exchangeResult {
	res, err := m.client.ExchangeSession(ctx, sessionID)
	if err != nil {
		m.log.Warn(ctx, "delegated login failed", "error", err)
		return exchangeResult{dest: DestLoginFailed, err: fmt.Errorf("exchange session: %w", err)}
	}
	u := m.establish(ctx, res)
	if u.OnboardingCompleted {
		return exchangeResult{dest: DestDashboard}
	}
	return exchangeResult{dest: DestOnboarding}
}
