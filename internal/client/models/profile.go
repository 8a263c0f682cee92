package models

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/joboost/internal/common"
)

// Experience is one past or current position on a profile.
type Experience struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date,omitempty"`
	Current     bool   `json:"current"`
	Description string `json:"description"`
}

// Education is one diploma or course on a profile.
type Education struct {
	ID          string `json:"id,omitempty"`
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date,omitempty"`
	Description string `json:"description,omitempty"`
}

// Language is a spoken language and the level claimed for it.
type Language struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

// Profile is the career profile filled in during onboarding. The Gateway
// uses it to generate CVs and cover letters.
type Profile struct {
	UserID       string       `json:"user_id"`
	Title        string       `json:"title,omitempty"`
	Summary      string       `json:"summary,omitempty"`
	Experiences  []Experience `json:"experiences"`
	Education    []Education  `json:"education"`
	Skills       []string     `json:"skills"`
	Languages    []Language   `json:"languages"`
	Phone        string       `json:"phone,omitempty"`
	Location     string       `json:"location,omitempty"`
	LinkedInURL  string       `json:"linkedin_url,omitempty"`
	PortfolioURL string       `json:"portfolio_url,omitempty"`
	UpdatedAt    string       `json:"updated_at,omitempty"`
}

// Validate checks the fields the Gateway requires before a save.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return fmt.Errorf("%w: profile has no user", common.ErrValidation)
	}
	for i, e := range p.Experiences {
		if blank(e.Title, e.Company, e.StartDate, e.Description) {
			return fmt.Errorf("%w: experience %d needs a title, company, start date and description", common.ErrValidation, i+1)
		}
	}
	for i, e := range p.Education {
		if blank(e.Degree, e.Institution, e.StartDate) {
			return fmt.Errorf("%w: education %d needs a degree, institution and start date", common.ErrValidation, i+1)
		}
	}
	for _, l := range p.Languages {
		if strings.TrimSpace(l.Name) == "" {
			return fmt.Errorf("%w: language without a name", common.ErrValidation)
		}
	}
	return nil
}

func blank(ss ...string) bool {
	for _, s := range ss {
		if strings.TrimSpace(s) == "" {
			return true
		}
	}
	return false
}

// GenerationKind is the document an AI generation produces.
type GenerationKind string

const (
	GenerateCoverLetter GenerationKind = "cover_letter"
	GenerateCV          GenerationKind = "cv"
)

// ParseGenerationKind accepts the wire names plus "letter" as a shorthand.
func ParseGenerationKind(s string) (GenerationKind, error) {
	switch k := strings.ToLower(strings.TrimSpace(s)); k {
	case string(GenerateCoverLetter), "letter":
		return GenerateCoverLetter, nil
	case string(GenerateCV):
		return GenerateCV, nil
	default:
		return "", fmt.Errorf("%w: unknown generation type %q", common.ErrValidation, s)
	}
}

// Generation is a document produced by the Gateway for an application.
type Generation struct {
	Kind    GenerationKind `json:"type"`
	Content string         `json:"content"`
}
