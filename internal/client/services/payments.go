package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/joboost/internal/client/models"
	"github.com/dmitrijs2005/joboost/internal/common"
	"github.com/dmitrijs2005/joboost/internal/logging"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultPollAttempts = 10
)

// PaymentClient is the part of the Gateway the payment monitor talks to.
type PaymentClient interface {
	CreateCheckout(ctx context.Context, plan models.CheckoutPlan, originURL string) (*models.CheckoutSession, error)
	PaymentStatus(ctx context.Context, sessionID string) (*models.PaymentStatus, error)
}

// Entitlements is how a confirmed payment reaches the session. It is
// implemented by *SessionManager.
type Entitlements interface {
	PatchUser(ctx context.Context, p models.UserPatch) (*models.User, error)
	Revalidate(ctx context.Context) error
}

// PaymentSession is the monitor's view of one checkout confirmation.
type PaymentSession struct {
	CheckoutSessionID string
	Outcome           models.Outcome
	Attempts          int
	// Err is the reason for an Expired or Failed outcome.
	Err error
	// Last is the most recent successful Gateway answer.
	Last *models.PaymentStatus
}

// PaymentConfig tunes the poll loop. Zero fields take the defaults.
type PaymentConfig struct {
	Interval time.Duration
	Attempts int
}

// PaymentMonitor confirms checkouts by polling the Gateway. It tracks one
// payment session at a time.
type PaymentMonitor struct {
	client   PaymentClient
	session  Entitlements
	log      logging.Logger
	interval time.Duration
	attempts int

	mu      sync.Mutex
	state   PaymentSession
	plans   map[string]models.CheckoutPlan
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewPaymentMonitor(c PaymentClient, s Entitlements, cfg PaymentConfig, log logging.Logger) *PaymentMonitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultPollAttempts
	}
	if log == nil {
		log = logging.Nop()
	}
	return &PaymentMonitor{
		client:   c,
		session:  s,
		log:      log.With("component", "payments"),
		interval: cfg.Interval,
		attempts: cfg.Attempts,
		plans:    map[string]models.CheckoutPlan{},
	}
}

// StartCheckout opens a provider checkout for planID and returns the
// session to redirect the user to. The plan is remembered so a later
// confirmation can grant the right tier.
func (p *PaymentMonitor) StartCheckout(ctx context.Context, planID, originURL string) (*models.CheckoutSession, error) {
	plan, err := models.ParseCheckoutPlan(planID)
	if err != nil {
		return nil, err
	}
	cs, err := p.client.CreateCheckout(ctx, plan, originURL)
	if err != nil {
		return nil, fmt.Errorf("create checkout: %w", err)
	}
	if cs.SessionID != "" {
		p.mu.Lock()
		p.plans[cs.SessionID] = plan
		p.mu.Unlock()
	}
	p.log.Info(ctx, "checkout created", "plan", plan, "checkout_session", cs.SessionID)
	return cs, nil
}

// ParseCheckoutReturn extracts the checkout session id from the URL the
// provider redirected back to.
func ParseCheckoutReturn(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	id := u.Query().Get("session_id")
	if id == "" {
		return "", fmt.Errorf("%w: no session_id in return url", common.ErrValidation)
	}
	return id, nil
}

// Run polls the Gateway until the checkout reaches a terminal outcome or
// the attempt bound is exceeded. Transport errors count as attempts. There
// is no wait after the last attempt.
//
// When ctx is cancelled Run returns ctx.Err() with the outcome still
// Pending; no Gateway call or state change happens afterwards.
func (p *PaymentMonitor) Run(ctx context.Context, checkoutSessionID string) (PaymentSession, error) {
	if checkoutSessionID == "" {
		return PaymentSession{}, fmt.Errorf("%w: missing checkout session id", common.ErrValidation)
	}
	p.mu.Lock()
	p.state = PaymentSession{CheckoutSessionID: checkoutSessionID, Outcome: models.OutcomePending}
	p.mu.Unlock()

	timer := time.NewTimer(p.interval)
	timer.Stop()
	defer timer.Stop()

	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return p.State(), err
		}

		st, err := p.client.PaymentStatus(ctx, checkoutSessionID)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return p.State(), ctxErr
		}

		p.mu.Lock()
		p.state.Attempts = attempt
		if err == nil {
			p.state.Last = st
		}
		p.mu.Unlock()

		if err != nil {
			p.log.Debug(ctx, "payment status poll failed", "attempt", attempt, "error", err)
		} else {
			switch st.Outcome() {
			case models.OutcomePaid:
				return p.settlePaid(ctx, checkoutSessionID)
			case models.OutcomeExpired:
				p.log.Info(ctx, "checkout expired", "checkout_session", checkoutSessionID)
				s := p.finish(models.OutcomeExpired, ErrPaymentExpired)
				return s, s.Err
			}
			p.log.Debug(ctx, "payment pending", "attempt", attempt, "payment_status", st.PaymentStatus)
		}

		if attempt == p.attempts {
			break
		}
		timer.Reset(p.interval)
		select {
		case <-ctx.Done():
			return p.State(), ctx.Err()
		case <-timer.C:
		}
	}

	p.log.Warn(ctx, "payment verification timed out", "checkout_session", checkoutSessionID, "attempts", p.attempts)
	s := p.finish(models.OutcomeFailed, ErrVerificationTimeout)
	return s, s.Err
}

// settlePaid grants the purchased plan locally, asks the session to
// reconcile with the Gateway, and marks the payment Paid. If ctx ends first
// the outcome stays Pending and the session is left as it is.
func (p *PaymentMonitor) settlePaid(ctx context.Context, checkoutSessionID string) (PaymentSession, error) {
	if err := ctx.Err(); err != nil {
		return p.State(), err
	}

	p.mu.Lock()
	plan, ok := p.plans[checkoutSessionID]
	delete(p.plans, checkoutSessionID)
	p.mu.Unlock()

	tier := models.PlanPro
	if ok {
		tier = plan.Tier()
	}
	credits := models.PlanCredits(tier)

	if _, err := p.session.PatchUser(ctx, models.UserPatch{Plan: &tier, Credits: &credits}); err != nil {
		p.log.Warn(ctx, "speculative plan update failed", "error", err)
	}
	if err := p.session.Revalidate(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if ok {
				p.mu.Lock()
				p.plans[checkoutSessionID] = plan
				p.mu.Unlock()
			}
			return p.State(), ctxErr
		}
		p.log.Warn(ctx, "session reconcile after payment failed", "error", err)
	}

	p.log.Info(ctx, "payment confirmed", "checkout_session", checkoutSessionID, "plan", tier)
	return p.finish(models.OutcomePaid, nil), nil
}

func (p *PaymentMonitor) finish(o models.Outcome, err error) PaymentSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Outcome = o
	p.state.Err = err
	return p.state
}

// Start runs the poll loop in the background, stopping any previous run
// first. Use Done to wait for it and State to read the result.
func (p *PaymentMonitor) Start(ctx context.Context, checkoutSessionID string) {
	p.Stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.running = true
	p.state = PaymentSession{CheckoutSessionID: checkoutSessionID, Outcome: models.OutcomePending}
	p.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		if _, err := p.Run(ctx, checkoutSessionID); err != nil && !errors.Is(err, context.Canceled) {
			p.log.Debug(ctx, "payment monitor stopped", "error", err)
		}
		p.mu.Lock()
		if p.done == done {
			p.running = false
		}
		p.mu.Unlock()
	}()
}

// Stop cancels a background run and waits for it to return. After Stop no
// Gateway call is made and the state does not change.
func (p *PaymentMonitor) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed when the current background run returns. It is nil when
// Start was never called.
func (p *PaymentMonitor) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Running reports whether a background run is in progress.
func (p *PaymentMonitor) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// State returns a copy of the current payment session.
func (p *PaymentMonitor) State() PaymentSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.state
	if s.Last != nil {
		last := *s.Last
		s.Last = &last
	}
	return s
}
