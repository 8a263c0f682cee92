package services

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/joboost/internal/client/client"
	"github.com/dmitrijs2005/joboost/internal/client/models"
)

/*************
 * Fake auth client
 *************/

type fakeAuth struct {
	mu sync.Mutex

	// inputs captured
	LastEmail     string
	LastPassword  string
	LastName      string
	LastSessionID string

	// call counters
	MeCalls       int
	LoginCalls    int
	LogoutCalls   int
	ExchangeCalls int

	// outputs preset
	MeUser *models.User
	MeErr  error
	// MeGate, when set, blocks Me until closed or ctx ends. MeStarted is
	// signalled first.
	MeGate    chan struct{}
	MeStarted chan struct{}

	LoginResp    *client.AuthResponse
	LoginErr     error
	RegisterResp *client.AuthResponse
	RegisterErr  error
	LogoutErr    error

	ExchangeResp *client.AuthResponse
	ExchangeErr  error
	ExchangeGate chan struct{}
}

func (f *fakeAuth) Me(ctx context.Context) (*models.User, error) {
	f.mu.Lock()
	f.MeCalls++
	gate, started := f.MeGate, f.MeStarted
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.MeErr != nil {
		return nil, f.MeErr
	}
	u := *f.MeUser
	return &u, nil
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (*client.AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LoginCalls++
	f.LastEmail, f.LastPassword = email, password
	return f.LoginResp, f.LoginErr
}

func (f *fakeAuth) Register(ctx context.Context, name, email, password string) (*client.AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastName, f.LastEmail, f.LastPassword = name, email, password
	return f.RegisterResp, f.RegisterErr
}

func (f *fakeAuth) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LogoutCalls++
	return f.LogoutErr
}

func (f *fakeAuth) ExchangeSession(ctx context.Context, sessionID string) (*client.AuthResponse, error) {
	f.mu.Lock()
	f.ExchangeCalls++
	f.LastSessionID = sessionID
	gate := f.ExchangeGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ExchangeResp, f.ExchangeErr
}

func (f *fakeAuth) counts() (me, login, logout, exchange int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.MeCalls, f.LoginCalls, f.LogoutCalls, f.ExchangeCalls
}

/*************
 * Fake payment client and entitlements
 *************/

type fakePayments struct {
	mu sync.Mutex

	LastPlan   models.CheckoutPlan
	LastOrigin string
	Calls      int

	CheckoutResp *models.CheckoutSession
	CheckoutErr  error

	// StatusFn answers the n-th (1-based) status call.
	StatusFn func(ctx context.Context, n int) (*models.PaymentStatus, error)
}

func (f *fakePayments) CreateCheckout(ctx context.Context, plan models.CheckoutPlan, originURL string) (*models.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastPlan, f.LastOrigin = plan, originURL
	return f.CheckoutResp, f.CheckoutErr
}

func (f *fakePayments) PaymentStatus(ctx context.Context, sessionID string) (*models.PaymentStatus, error) {
	f.mu.Lock()
	f.Calls++
	n, fn := f.Calls, f.StatusFn
	f.mu.Unlock()
	return fn(ctx, n)
}

func (f *fakePayments) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls
}

type fakeEntitlements struct {
	mu sync.Mutex

	Patches     []models.UserPatch
	Revalidates int
	Order       []string

	PatchErr      error
	RevalidateErr error
}

func (f *fakeEntitlements) PatchUser(ctx context.Context, p models.UserPatch) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Patches = append(f.Patches, p)
	f.Order = append(f.Order, "patch")
	return &models.User{}, f.PatchErr
}

func (f *fakeEntitlements) Revalidate(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Revalidates++
	f.Order = append(f.Order, "revalidate")
	return f.RevalidateErr
}

/*************
 * Fake application client
 *************/

type fakeApps struct {
	mu sync.Mutex

	// inputs captured
	LastFields   models.ApplicationFields
	StatusCalls  []models.Status
	DeleteCalls  []string
	CreateCalls  int
	ListCalls    int

	// outputs preset
	ListResp   []models.Application
	ListErr    error
	GetResp    *models.Application
	GetErr     error
	CreateResp *models.Application
	CreateErr  error
	UpdateResp *models.Application
	UpdateErr  error
	StatusErr  error
	DeleteErr  error
	StatsResp  *models.Stats
	StatsErr   error

	// StatusFn, when set, replaces StatusErr.
	StatusFn func(ctx context.Context, id string, status models.Status) error
	// DeleteFn, when set, replaces DeleteErr.
	DeleteFn func(ctx context.Context, id string) error
}

func (f *fakeApps) ListApplications(ctx context.Context) ([]models.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++
	out := append([]models.Application(nil), f.ListResp...)
	return out, f.ListErr
}

func (f *fakeApps) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	a := *f.GetResp
	return &a, nil
}

func (f *fakeApps) CreateApplication(ctx context.Context, fields models.ApplicationFields) (*models.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateCalls++
	f.LastFields = fields
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	a := *f.CreateResp
	return &a, nil
}

func (f *fakeApps) UpdateApplication(ctx context.Context, id string, fields models.ApplicationFields) (*models.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastFields = fields
	if f.UpdateErr != nil {
		return nil, f.UpdateErr
	}
	a := *f.UpdateResp
	return &a, nil
}

func (f *fakeApps) UpdateApplicationStatus(ctx context.Context, id string, status models.Status) error {
	f.mu.Lock()
	f.StatusCalls = append(f.StatusCalls, status)
	fn, err := f.StatusFn, f.StatusErr
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, id, status)
	}
	return err
}

func (f *fakeApps) DeleteApplication(ctx context.Context, id string) error {
	f.mu.Lock()
	f.DeleteCalls = append(f.DeleteCalls, id)
	fn, err := f.DeleteFn, f.DeleteErr
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, id)
	}
	return err
}

func (f *fakeApps) Stats(ctx context.Context) (*models.Stats, error) {
	return f.StatsResp, f.StatsErr
}

/*************
 * Fake profile client
 *************/

type fakeProfiles struct {
	mu sync.Mutex

	Saved    []models.Profile
	Generate []string

	GetResp *models.Profile
	GetErr  error
	SaveErr error
	GenResp *models.Generation
	GenErr  error
}

func (f *fakeProfiles) GetProfile(ctx context.Context) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.GetResp, f.GetErr
}

func (f *fakeProfiles) SaveProfile(ctx context.Context, p models.Profile) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Saved = append(f.Saved, p)
	if f.SaveErr != nil {
		return nil, f.SaveErr
	}
	return &p, nil
}

func (f *fakeProfiles) GenerateDocument(ctx context.Context, applicationID string, kind models.GenerationKind) (*models.Generation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Generate = append(f.Generate, applicationID+"/"+string(kind))
	if f.GenErr != nil {
		return nil, f.GenErr
	}
	g := *f.GenResp
	return &g, nil
}
