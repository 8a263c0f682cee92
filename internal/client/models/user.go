// Package models defines the records exchanged with the Gateway and cached
// locally: the signed-in user, job applications and payment sessions.
package models

import "time"

// Plan is a subscription tier.
type Plan string

const (
	PlanFree  Plan = "free"
	PlanPro   Plan = "pro"
	PlanUltra Plan = "ultra"
)

// Credits are the per-feature AI generation balances shown to the user.
// The Gateway owns the accounting; the client only caches the figures.
type Credits struct {
	CV          int `json:"ai_cv_credits"`
	Letter      int `json:"ai_letter_credits"`
	Spontaneous int `json:"spontaneous_credits"`
}

// PlanCredits returns the balances a plan grants.
func PlanCredits(p Plan) Credits {
	switch p {
	case PlanPro:
		return Credits{CV: 100, Letter: 100, Spontaneous: 500}
	case PlanUltra:
		return Credits{CV: 99999, Letter: 99999, Spontaneous: 99999}
	default:
		return Credits{CV: 1, Letter: 1, Spontaneous: 5}
	}
}

// User is the cached record of the signed-in account.
type User struct {
	ID                  string    `json:"user_id"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	Picture             string    `json:"picture,omitempty"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	Plan                Plan      `json:"subscription_plan"`
	CreatedAt           time.Time `json:"created_at"`
	Credits
}

// UserPatch is a partial, local-only update of the cached user.
// Nil fields are left untouched.
type UserPatch struct {
	Name                *string
	OnboardingCompleted *bool
	Plan                *Plan
	Credits             *Credits
}

// Apply returns a copy of u with the patch merged in.
func (u User) Apply(p UserPatch) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.OnboardingCompleted != nil {
		u.OnboardingCompleted = *p.OnboardingCompleted
	}
	if p.Plan != nil {
		u.Plan = *p.Plan
	}
	if p.Credits != nil {
		u.Credits = *p.Credits
	}
	return u
}
