package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/joboost/internal/client/models"
	"github.com/dmitrijs2005/joboost/internal/common"
	"github.com/dmitrijs2005/joboost/internal/logging"
)

// ProfileClient is the part of the Gateway the profile service talks to.
type ProfileClient interface {
	GetProfile(ctx context.Context) (*models.Profile, error)
	SaveProfile(ctx context.Context, p models.Profile) (*models.Profile, error)
	GenerateDocument(ctx context.Context, applicationID string, kind models.GenerationKind) (*models.Generation, error)
}

// ProfileSession is what the profile service needs from the session. It is
// implemented by *SessionManager.
type ProfileSession interface {
	Entitlements
	Snapshot() Session
}

// ProfileService saves the career profile, which completes onboarding,
// and runs the credit-consuming document generation.
type ProfileService struct {
	client  ProfileClient
	session ProfileSession
	log     logging.Logger
}

func NewProfileService(c ProfileClient, s ProfileSession, log logging.Logger) *ProfileService {
	if log == nil {
		log = logging.Nop()
	}
	return &ProfileService{client: c, session: s, log: log.With("component", "profile")}
}

// Profile returns the saved profile, or nil if onboarding never saved one.
func (p *ProfileService) Profile(ctx context.Context) (*models.Profile, error) {
	if p.session.Snapshot().User == nil {
		return nil, ErrNoSession
	}
	prof, err := p.client.GetProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return prof, nil
}

// CompleteOnboarding saves prof for the signed-in user and then marks the
// cached user as onboarded. The cached flag only changes once the Gateway
// has accepted the profile.
func (p *ProfileService) CompleteOnboarding(ctx context.Context, prof models.Profile) (*models.Profile, error) {
	u := p.session.Snapshot().User
	if u == nil {
		return nil, ErrNoSession
	}
	prof.UserID = u.ID
	prof.Skills = compact(prof.Skills)
	// The Gateway rejects null lists.
	if prof.Experiences == nil {
		prof.Experiences = []models.Experience{}
	}
	if prof.Education == nil {
		prof.Education = []models.Education{}
	}
	if prof.Languages == nil {
		prof.Languages = []models.Language{}
	}
	if err := prof.Validate(); err != nil {
		return nil, err
	}

	saved, err := p.client.SaveProfile(ctx, prof)
	if err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	done := true
	if _, err := p.session.PatchUser(ctx, models.UserPatch{OnboardingCompleted: &done}); err != nil {
		// Signed out while saving; the Gateway has the flag anyway.
		p.log.Warn(ctx, "onboarding flag not cached", "error", err)
	}
	p.log.Info(ctx, "onboarding completed", "user_id", u.ID)
	return saved, nil
}

// Generate writes a CV or cover letter for an application. The Gateway
// charges the credit, so the session is revalidated afterwards to refresh
// the cached balances.
func (p *ProfileService) Generate(ctx context.Context, applicationID string, kind models.GenerationKind) (*models.Generation, error) {
	if strings.TrimSpace(applicationID) == "" {
		return nil, fmt.Errorf("%w: missing application id", common.ErrValidation)
	}
	if p.session.Snapshot().User == nil {
		return nil, ErrNoSession
	}

	g, err := p.client.GenerateDocument(ctx, applicationID, kind)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", kind, err)
	}
	if err := p.session.Revalidate(ctx); err != nil {
		p.log.Warn(ctx, "credit refresh after generation failed", "error", err)
	}
	return g, nil
}

// compact trims entries and drops blanks and duplicates, keeping order.
func compact(ss []string) []string {
	out := make([]string, 0, len(ss))
	seen := map[string]bool{}
	for _, s := range ss {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
