package models

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/joboost/internal/common"
)

// CheckoutPlan identifies a purchasable offer.
type CheckoutPlan string

const (
	CheckoutProMonthly   CheckoutPlan = "pro_monthly"
	CheckoutProYearly    CheckoutPlan = "pro_yearly"
	CheckoutUltraMonthly CheckoutPlan = "ultra_monthly"
	CheckoutUltraYearly  CheckoutPlan = "ultra_yearly"
)

// ParseCheckoutPlan validates a checkout plan id.
func ParseCheckoutPlan(s string) (CheckoutPlan, error) {
	switch p := CheckoutPlan(strings.ToLower(strings.TrimSpace(s))); p {
	case CheckoutProMonthly, CheckoutProYearly, CheckoutUltraMonthly, CheckoutUltraYearly:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown plan %q", common.ErrValidation, s)
	}
}

// Tier is the subscription plan the offer grants.
func (p CheckoutPlan) Tier() Plan {
	if strings.HasPrefix(string(p), "ultra") {
		return PlanUltra
	}
	return PlanPro
}

// CheckoutSession is returned when a checkout is opened with the provider.
type CheckoutSession struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

// Outcome is the state of a payment confirmation.
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomePaid    Outcome = "paid"
	OutcomeExpired Outcome = "expired"
	OutcomeFailed  Outcome = "failed"
)

// Terminal reports whether no further transition can happen.
func (o Outcome) Terminal() bool {
	return o == OutcomePaid || o == OutcomeExpired || o == OutcomeFailed
}

// PaymentStatus is the Gateway's view of a checkout session.
type PaymentStatus struct {
	PaymentStatus string
	Status        string
	AmountTotal   int64
	Currency      string
}

// Outcome maps the Gateway fields to a confirmation outcome. Only paid and
// expired are conclusive; everything else is still pending.
func (s PaymentStatus) Outcome() Outcome {
	switch {
	case s.PaymentStatus == "paid":
		return OutcomePaid
	case s.Status == "expired", s.PaymentStatus == "expired":
		return OutcomeExpired
	default:
		return OutcomePending
	}
}
