package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/joboost/internal/client/client"
	"github.com/dmitrijs2005/joboost/internal/client/models"
	"github.com/dmitrijs2005/joboost/internal/client/store"
	"github.com/dmitrijs2005/joboost/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, fa *fakeAuth) (*SessionManager, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	return NewSessionManager(fa, st, nil), st
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u1",
		"exp":     exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return tok
}

func TestStart_NoTokenIsAnonymousWithoutGatewayCall(t *testing.T) {
	fa := &fakeAuth{}
	m, _ := newManager(t, fa)

	for i := 0; i < 2; i++ {
		require.NoError(t, m.Start(context.Background()))
		assert.Equal(t, StateAnonymous, m.State())
	}
	me, _, _, _ := fa.counts()
	assert.Zero(t, me)
	assert.Empty(t, m.Token())
}

func TestStart_ServerUserWinsOverStoredUser(t *testing.T) {
	fa := &fakeAuth{MeUser: &models.User{ID: "u1", Plan: models.PlanPro, Credits: models.PlanCredits(models.PlanPro)}}
	m, st := newManager(t, fa)
	require.NoError(t, st.Save(context.Background(), "t1", models.User{ID: "u1", Plan: models.PlanFree}))

	require.NoError(t, m.Start(context.Background()))

	snap := m.Snapshot()
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.Equal(t, "t1", snap.Token)
	require.NotNil(t, snap.User)
	assert.Equal(t, models.PlanPro, snap.User.Plan)

	tok, u, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t1", tok)
	assert.Equal(t, models.PlanPro, u.Plan, "server user written through")
}

func TestStart_VerificationFailureClearsStore(t *testing.T) {
	fa := &fakeAuth{MeErr: client.ErrUnavailable}
	m, st := newManager(t, fa)
	require.NoError(t, st.Save(context.Background(), "t1", models.User{ID: "u1"}))

	err := m.Start(context.Background())
	require.ErrorIs(t, err, client.ErrUnavailable)

	assert.Equal(t, StateAnonymous, m.State())
	tok, u, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok)
	assert.Nil(t, u)
}

func TestStart_ExpiredJWTSkipsGateway(t *testing.T) {
	fa := &fakeAuth{}
	m, st := newManager(t, fa)
	require.NoError(t, st.Save(context.Background(), signedToken(t, time.Now().Add(-time.Hour)), models.User{ID: "u1"}))

	require.NoError(t, m.Start(context.Background()))

	assert.Equal(t, StateAnonymous, m.State())
	me, _, _, _ := fa.counts()
	assert.Zero(t, me)
	tok, _, _ := st.Load(context.Background())
	assert.Empty(t, tok)
}

func TestStart_ValidJWTIsVerified(t *testing.T) {
	fa := &fakeAuth{MeUser: &models.User{ID: "u1"}}
	m, st := newManager(t, fa)
	require.NoError(t, st.Save(context.Background(), signedToken(t, time.Now().Add(time.Hour)), models.User{ID: "u1"}))

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, StateAuthenticated, m.State())
	me, _, _, _ := fa.counts()
	assert.Equal(t, 1, me)
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	assert.True(t, tokenExpired(signedToken(t, now.Add(-time.Second)), now))
	assert.False(t, tokenExpired(signedToken(t, now.Add(time.Minute)), now))
	assert.False(t, tokenExpired("opaque-token", now))
	assert.False(t, tokenExpired("", now))
}

func TestStart_VerifyingIsObservable(t *testing.T) {
	fa := &fakeAuth{
		MeUser:    &models.User{ID: "u1"},
		MeGate:    make(chan struct{}),
		MeStarted: make(chan struct{}, 1),
	}
	m, st := newManager(t, fa)
	require.NoError(t, st.Save(context.Background(), "t1", models.User{ID: "u1"}))

	done := make(chan error, 1)
	go func() { done <- m.Start(context.Background()) }()

	<-fa.MeStarted
	assert.Equal(t, StateVerifying, m.State())
	assert.Equal(t, VerdictLoading, m.Gate(AccessProtected, "/dashboard").Verdict)

	close(fa.MeGate)
	require.NoError(t, <-done)
	assert.Equal(t, StateAuthenticated, m.State())
}

func TestStart_LogoutDuringVerificationWins(t *testing.T) {
	fa := &fakeAuth{
		MeUser:    &models.User{ID: "u1"},
		MeGate:    make(chan struct{}),
		MeStarted: make(chan struct{}, 1),
	}
	m, st := newManager(t, fa)
	require.NoError(t, st.Save(context.Background(), "t1", models.User{ID: "u1"}))

	done := make(chan error, 1)
	go func() { done <- m.Start(context.Background()) }()
	<-fa.MeStarted

	require.NoError(t, m.Logout(context.Background()))
	close(fa.MeGate)
	require.NoError(t, <-done)

	assert.Equal(t, StateAnonymous, m.State(), "late verification must not resurrect the session")
	tok, _, _ := st.Load(context.Background())
	assert.Empty(t, tok)
}

func TestLogin_Success(t *testing.T) {
	fa := &fakeAuth{LoginResp: &client.AuthResponse{Token: "t9", User: models.User{ID: "u9", Email: "a@b.c"}}}
	m, st := newManager(t, fa)

	u, err := m.Login(context.Background(), " a@b.c ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u9", u.ID)
	assert.Equal(t, "a@b.c", fa.LastEmail)
	assert.Equal(t, StateAuthenticated, m.State())
	assert.Equal(t, "t9", m.Token())

	tok, su, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t9", tok)
	assert.Equal(t, "u9", su.ID)
}

func TestLogin_FailureLeavesStateUnchanged(t *testing.T) {
	fa := &fakeAuth{LoginResp: &client.AuthResponse{Token: "t1", User: models.User{ID: "u1"}}}
	m, _ := newManager(t, fa)
	_, err := m.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	before := m.Snapshot()

	fa.LoginErr = &client.APIError{StatusCode: 401, Err: client.ErrUnauthorized}
	_, err = m.Login(context.Background(), "a@b.c", "wrong")
	require.ErrorIs(t, err, client.ErrUnauthorized)

	if diff := cmp.Diff(before, m.Snapshot()); diff != "" {
		t.Fatalf("session changed (-before +after):\n%s", diff)
	}
}

func TestLogin_ValidationSkipsGateway(t *testing.T) {
	fa := &fakeAuth{}
	m, _ := newManager(t, fa)

	_, err := m.Login(context.Background(), "", "pw")
	require.ErrorIs(t, err, common.ErrValidation)
	_, err = m.Register(context.Background(), "Ann", "a@b.c", "")
	require.ErrorIs(t, err, common.ErrValidation)

	_, login, _, _ := fa.counts()
	assert.Zero(t, login)
	assert.Equal(t, StateAnonymous, m.State())
}

func TestRegister_Success(t *testing.T) {
	fa := &fakeAuth{RegisterResp: &client.AuthResponse{Token: "t2", User: models.User{ID: "u2", Plan: models.PlanFree}}}
	m, _ := newManager(t, fa)

	u, err := m.Register(context.Background(), "Ann", "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u2", u.ID)
	assert.Equal(t, "Ann", fa.LastName)
	assert.True(t, m.IsAuthenticated())
}

func TestLogout_GatewayFailureStillClears(t *testing.T) {
	fa := &fakeAuth{
		LoginResp: &client.AuthResponse{Token: "t1", User: models.User{ID: "u1"}},
		LogoutErr: errors.New("boom"),
	}
	m, st := newManager(t, fa)
	_, err := m.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)

	require.NoError(t, m.Logout(context.Background()))

	assert.Equal(t, StateAnonymous, m.State())
	_, _, logout, _ := fa.counts()
	assert.Equal(t, 1, logout)
	tok, _, _ := st.Load(context.Background())
	assert.Empty(t, tok)
}

func TestLogout_AnonymousSkipsGateway(t *testing.T) {
	fa := &fakeAuth{}
	m, _ := newManager(t, fa)

	require.NoError(t, m.Logout(context.Background()))
	_, _, logout, _ := fa.counts()
	assert.Zero(t, logout)
}

func TestForceLogout_IdempotentAndNotifiesOnce(t *testing.T) {
	fa := &fakeAuth{LoginResp: &client.AuthResponse{Token: "t1", User: models.User{ID: "u1"}}}
	m, st := newManager(t, fa)
	_, err := m.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)

	var mu sync.Mutex
	var seen []SessionState
	unsub := m.Subscribe(func(s Session) {
		mu.Lock()
		seen = append(seen, s.State)
		mu.Unlock()
	})
	defer unsub()

	m.ForceLogout(context.Background())
	m.ForceLogout(context.Background())

	assert.Equal(t, StateAnonymous, m.State())
	tok, _, _ := st.Load(context.Background())
	assert.Empty(t, tok)
	mu.Lock()
	assert.Equal(t, []SessionState{StateAnonymous}, seen)
	mu.Unlock()
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	fa := &fakeAuth{LoginResp: &client.AuthResponse{Token: "t1", User: models.User{ID: "u1"}}}
	m, _ := newManager(t, fa)

	calls := 0
	unsub := m.Subscribe(func(Session) { calls++ })
	_, err := m.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	unsub()
	require.NoError(t, m.Logout(context.Background()))

	assert.Equal(t, 1, calls)
}

func TestPatchUser(t *testing.T) {
	fa := &fakeAuth{LoginResp: &client.AuthResponse{Token: "t1", User: models.User{ID: "u1", Name: "Ann", Plan: models.PlanFree}}}
	m, st := newManager(t, fa)

	_, err := m.PatchUser(context.Background(), models.UserPatch{})
	require.ErrorIs(t, err, ErrNoSession)

	_, err = m.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)

	done := true
	u, err := m.PatchUser(context.Background(), models.UserPatch{OnboardingCompleted: &done})
	require.NoError(t, err)
	assert.True(t, u.OnboardingCompleted)
	assert.Equal(t, "Ann", u.Name)

	_, su, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, su.OnboardingCompleted)
	me, _, _, _ := fa.counts()
	assert.Zero(t, me, "patch is local only")
}

func TestRevalidate(t *testing.T) {
	fa := &fakeAuth{
		LoginResp: &client.AuthResponse{Token: "t1", User: models.User{ID: "u1", Plan: models.PlanFree}},
		MeUser:    &models.User{ID: "u1", Plan: models.PlanUltra},
	}
	m, _ := newManager(t, fa)

	require.ErrorIs(t, m.Revalidate(context.Background()), ErrNoSession)

	_, err := m.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	require.NoError(t, m.Revalidate(context.Background()))
	assert.Equal(t, models.PlanUltra, m.Snapshot().User.Plan)

	fa.mu.Lock()
	fa.MeErr = client.ErrUnavailable
	fa.mu.Unlock()
	require.Error(t, m.Revalidate(context.Background()))
	assert.Equal(t, StateAnonymous, m.State())
}

func TestRevalidate_CancelledKeepsSession(t *testing.T) {
	fa := &fakeAuth{
		LoginResp: &client.AuthResponse{Token: "t1", User: models.User{ID: "u1"}},
		MeUser:    &models.User{ID: "u1"},
		MeGate:    make(chan struct{}),
		MeStarted: make(chan struct{}, 1),
	}
	m, st := newManager(t, fa)
	_, err := m.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Revalidate(ctx) }()
	<-fa.MeStarted
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, StateAuthenticated, m.State())
	assert.Equal(t, "t1", m.Token())
	tok, _, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t1", tok)
}

func TestStart_CancelledKeepsStore(t *testing.T) {
	fa := &fakeAuth{
		MeUser:    &models.User{ID: "u1"},
		MeGate:    make(chan struct{}),
		MeStarted: make(chan struct{}, 1),
	}
	m, st := newManager(t, fa)
	require.NoError(t, st.Save(context.Background(), "t1", models.User{ID: "u1"}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()
	<-fa.MeStarted
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, StateAnonymous, m.State())
	tok, _, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t1", tok, "an abandoned start must not forget the stored session")

	close(fa.MeGate)
	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, StateAuthenticated, m.State())
}

func TestSubscribe_DeliveriesFollowChangeOrder(t *testing.T) {
	fa := &fakeAuth{LoginResp: &client.AuthResponse{Token: "t1", User: models.User{ID: "u1"}}}
	m, _ := newManager(t, fa)

	var mu sync.Mutex
	var seen []Session
	unsub := m.Subscribe(func(s Session) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})
	defer unsub()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if _, err := m.Login(context.Background(), "a@b.c", "pw"); err != nil {
					t.Error(err)
					return
				}
				m.ForceLogout(context.Background())
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		require.Greater(t, seen[i].Seq, seen[i-1].Seq, "delivery %d went back in time", i)
	}
	last := seen[len(seen)-1]
	snap := m.Snapshot()
	assert.Equal(t, snap.Seq, last.Seq)
	assert.Equal(t, snap.State, last.State)
	assert.Equal(t, StateAnonymous, last.State)
}

func TestSnapshot_ReturnsCopy(t *testing.T) {
	fa := &fakeAuth{LoginResp: &client.AuthResponse{Token: "t1", User: models.User{ID: "u1", Name: "Ann"}}}
	m, _ := newManager(t, fa)
	_, err := m.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)

	snap := m.Snapshot()
	snap.User.Name = "Bob"
	assert.Equal(t, "Ann", m.Snapshot().User.Name)
}

func TestSessionState_String(t *testing.T) {
	assert.Equal(t, "anonymous", StateAnonymous.String())
	assert.Equal(t, "verifying", StateVerifying.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
}
