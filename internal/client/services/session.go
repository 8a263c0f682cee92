package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/joboost/internal/client/client"
	"github.com/dmitrijs2005/joboost/internal/client/models"
	"github.com/dmitrijs2005/joboost/internal/client/store"
	"github.com/dmitrijs2005/joboost/internal/common"
	"github.com/dmitrijs2005/joboost/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// SessionState is the lifecycle state of the session.
type SessionState int

const (
	StateAnonymous SessionState = iota
	StateVerifying
	StateAuthenticated
)

func (s SessionState) String() string {
	switch s {
	case StateVerifying:
		return "verifying"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Session is a point-in-time copy of the session. User is a copy too.
type Session struct {
	State SessionState
	Token string
	User  *models.User
	// Seq grows with every change; a later snapshot has a larger Seq.
	Seq uint64
}

// AuthClient is the part of the Gateway the session manager talks to.
type AuthClient interface {
	Login(ctx context.Context, email, password string) (*client.AuthResponse, error)
	Register(ctx context.Context, name, email, password string) (*client.AuthResponse, error)
	Me(ctx context.Context) (*models.User, error)
	Logout(ctx context.Context) error
	ExchangeSession(ctx context.Context, sessionID string) (*client.AuthResponse, error)
}

// SessionManager owns the session state machine. It is the single source of
// the bearer token (see Token) and the target of the Gateway's 401 hook
// (see ForceLogout).
type SessionManager struct {
	client AuthClient
	store  store.SessionStore
	log    logging.Logger
	now    func() time.Time

	mu    sync.Mutex
	state SessionState
	token string
	user  *models.User
	// epoch changes whenever a session is opened or closed. A verification
	// that started under an older epoch is not applied.
	epoch   uint64
	seq     uint64
	subs    map[int]func(Session)
	nextSub int

	// notifyMu serialises delivery; delivered is the Seq last handed out.
	notifyMu  sync.Mutex
	delivered uint64

	flights   singleflight.Group
	exchMu    sync.Mutex
	exchanged map[string]exchangeResult
}

// NewSessionManager returns a manager in the Anonymous state. Call Start to
// restore a persisted session.
func NewSessionManager(c AuthClient, st store.SessionStore, log logging.Logger) *SessionManager {
	if log == nil {
		log = logging.Nop()
	}
	return &SessionManager{
		client:    c,
		store:     st,
		log:       log.With("component", "session"),
		now:       time.Now,
		subs:      map[int]func(Session){},
		exchanged: map[string]exchangeResult{},
	}
}

// Start restores the session from the durable store. Without a stored token
// the session is Anonymous and the Gateway is not contacted. Otherwise the
// token is verified with the Gateway; any failure clears the store. If ctx
// ends first the session is Anonymous but the store is kept.
func (m *SessionManager) Start(ctx context.Context) error {
	token, user, err := m.store.Load(ctx)
	if err != nil {
		m.update(func() bool { return m.resetLocked() })
		return fmt.Errorf("load session: %w", err)
	}
	if token == "" {
		m.update(func() bool { return m.resetLocked() })
		return nil
	}

	if tokenExpired(token, m.now()) {
		m.log.Info(ctx, "stored token expired")
		m.update(func() bool {
			m.epoch++
			m.clearStoreLocked(ctx)
			return m.resetLocked()
		})
		return nil
	}

	var epoch uint64
	m.update(func() bool {
		m.epoch++
		epoch = m.epoch
		m.state = StateVerifying
		m.token = token
		m.user = user
		return true
	})
	return m.verify(ctx, epoch)
}

// Revalidate re-fetches the user with the current token. An authenticated
// session stays Authenticated while the call is in flight. Any failure ends
// the session, except ctx ending, which leaves it untouched.
func (m *SessionManager) Revalidate(ctx context.Context) error {
	m.mu.Lock()
	if m.token == "" {
		m.mu.Unlock()
		return ErrNoSession
	}
	epoch := m.epoch
	m.mu.Unlock()

	return m.verify(ctx, epoch)
}

func (m *SessionManager) verify(ctx context.Context, epoch uint64) error {
	u, err := m.client.Me(ctx)

	var stale, cancelled bool
	m.update(func() bool {
		if m.epoch != epoch {
			stale = true
			return false
		}
		if err != nil && ctx.Err() != nil {
			// Abandoned by the caller, not rejected by the Gateway: the
			// stored session stays for the next start.
			cancelled = true
			if m.state != StateVerifying {
				return false
			}
			m.epoch++
			return m.resetLocked()
		}
		if err != nil {
			m.epoch++
			m.clearStoreLocked(ctx)
			return m.resetLocked()
		}
		m.state = StateAuthenticated
		m.user = u
		if serr := m.store.Save(ctx, m.token, *u); serr != nil {
			m.log.Warn(ctx, "persist session failed", "error", serr)
		}
		return true
	})

	switch {
	case cancelled:
		m.log.Debug(ctx, "session verification abandoned", "error", err)
		return fmt.Errorf("verify session: %w", err)
	case err != nil:
		m.log.Info(ctx, "session verification failed", "error", err, "stale", stale)
		return fmt.Errorf("verify session: %w", err)
	case stale:
		m.log.Debug(ctx, "discarded stale verification")
	default:
		m.log.Debug(ctx, "session verified", "user_id", u.ID, "plan", u.Plan)
	}
	return nil
}

// Login authenticates with email and password. On failure the session is
// left as it was.
func (m *SessionManager) Login(ctx context.Context, email, password string) (*models.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrValidation)
	}
	res, err := m.client.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return m.establish(ctx, res), nil
}

// Register creates an account and signs it in.
func (m *SessionManager) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", common.ErrValidation)
	}
	res, err := m.client.Register(ctx, strings.TrimSpace(name), strings.TrimSpace(email), password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return m.establish(ctx, res), nil
}

// establish opens a session from a Gateway auth response.
func (m *SessionManager) establish(ctx context.Context, res *client.AuthResponse) *models.User {
	u := res.User
	m.update(func() bool {
		m.epoch++
		m.state = StateAuthenticated
		m.token = res.Token
		m.user = &u
		if err := m.store.Save(ctx, res.Token, u); err != nil {
			m.log.Warn(ctx, "persist session failed", "error", err)
		}
		return true
	})
	m.log.Info(ctx, "signed in", "user_id", u.ID)
	return &u
}

// Logout notifies the Gateway on a best-effort basis, then clears the
// session and the durable store unconditionally.
func (m *SessionManager) Logout(ctx context.Context) error {
	if m.Token() != "" {
		if err := m.client.Logout(ctx); err != nil {
			m.log.Warn(ctx, "gateway logout failed", "error", err)
		}
	}

	var storeErr error
	m.update(func() bool {
		m.epoch++
		if err := m.store.Clear(ctx); err != nil {
			storeErr = err
		}
		return m.resetLocked()
	})
	if storeErr != nil {
		return fmt.Errorf("clear session: %w", storeErr)
	}
	return nil
}

// ForceLogout ends the session without contacting the Gateway. It is
// installed as the Gateway client's 401 hook and is safe to call from any
// goroutine, any number of times.
func (m *SessionManager) ForceLogout(ctx context.Context) {
	var ended bool
	m.update(func() bool {
		if m.state == StateAnonymous && m.token == "" {
			return false
		}
		m.epoch++
		m.clearStoreLocked(ctx)
		ended = true
		return m.resetLocked()
	})
	if ended {
		m.log.Warn(ctx, "session invalidated by gateway")
	}
}

// PatchUser merges p into the cached user and writes it through to the
// store. It never calls the Gateway; the next verification reconciles.
func (m *SessionManager) PatchUser(ctx context.Context, p models.UserPatch) (*models.User, error) {
	var (
		out *models.User
		err error
	)
	m.update(func() bool {
		if m.user == nil {
			err = ErrNoSession
			return false
		}
		u := m.user.Apply(p)
		m.user = &u
		if serr := m.store.SaveUser(ctx, u); serr != nil {
			err = fmt.Errorf("persist user: %w", serr)
		}
		cp := u
		out = &cp
		return true
	})
	return out, err
}

// Snapshot returns a copy of the current session.
func (m *SessionManager) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *SessionManager) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *SessionManager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

// Token returns the current bearer token, or "". It satisfies
// client.TokenSource.
func (m *SessionManager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Subscribe registers fn to be called after state changes. Deliveries are
// serialised and never go back in Seq, so the last snapshot a subscriber
// sees is the current state; a snapshot overtaken by a newer one before
// delivery is skipped. fn runs outside the manager's lock but must not
// change the session itself. The returned func removes the subscription.
func (m *SessionManager) Subscribe(fn func(Session)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// update runs fn under the lock and notifies subscribers if fn reports a
// change.
func (m *SessionManager) update(fn func() bool) {
	m.mu.Lock()
	changed := fn()
	if !changed {
		m.mu.Unlock()
		return
	}
	m.seq++
	snap := m.snapshotLocked()
	subs := make([]func(Session), 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	if snap.Seq <= m.delivered {
		return
	}
	m.delivered = snap.Seq
	for _, s := range subs {
		s(snap)
	}
}

func (m *SessionManager) snapshotLocked() Session {
	s := Session{State: m.state, Token: m.token, Seq: m.seq}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	return s
}

// resetLocked moves to Anonymous and reports whether anything changed.
func (m *SessionManager) resetLocked() bool {
	changed := m.state != StateAnonymous || m.token != "" || m.user != nil
	m.state = StateAnonymous
	m.token = ""
	m.user = nil
	return changed
}

func (m *SessionManager) clearStoreLocked(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.log.Error(ctx, "clear session store failed", "error", err)
	}
}

// tokenExpired reports whether tok is a JWT whose exp claim has passed.
// Opaque tokens and tokens without exp are left to the Gateway.
func tokenExpired(tok string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}
