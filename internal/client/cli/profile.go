package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/joboost/internal/client/models"
	"github.com/dmitrijs2005/joboost/internal/client/services"
	"github.com/dmitrijs2005/joboost/internal/common"
)

// Onboard prompts for the career profile step by step and saves it, which
// completes onboarding. Running it again replaces the saved profile.
func (a *App) Onboard(ctx context.Context, _ []string) error {
	if err := a.gate(services.AccessProtected, "onboarding"); err != nil {
		return err
	}

	var p models.Profile
	var err error

	for _, f := range []struct {
		prompt string
		dst    *string
	}{
		{"Professional title", &p.Title},
		{"Summary", &p.Summary},
		{"Phone", &p.Phone},
		{"Location", &p.Location},
		{"LinkedIn URL", &p.LinkedInURL},
		{"Portfolio URL", &p.PortfolioURL},
	} {
		if *f.dst, err = getSimpleText(a.reader, f.prompt, a.out); err != nil {
			return err
		}
	}

	if p.Experiences, err = a.promptExperiences(); err != nil {
		return err
	}
	if p.Education, err = a.promptEducation(); err != nil {
		return err
	}

	skills, err := getSimpleText(a.reader, "Skills (comma separated)", a.out)
	if err != nil {
		return err
	}
	p.Skills = splitList(skills)

	langs, err := getSimpleText(a.reader, "Languages as name:level (comma separated)", a.out)
	if err != nil {
		return err
	}
	if p.Languages, err = parseLanguages(langs); err != nil {
		return err
	}

	if _, err := a.profiles.CompleteOnboarding(ctx, p); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Profile saved, onboarding complete")
	return nil
}

func (a *App) promptExperiences() ([]models.Experience, error) {
	var out []models.Experience
	for {
		title, err := getSimpleText(a.reader, "Experience title (empty to finish)", a.out)
		if err != nil || title == "" {
			return out, err
		}
		e := models.Experience{Title: title}
		for _, f := range []struct {
			prompt string
			dst    *string
		}{
			{"Company", &e.Company},
			{"Start date", &e.StartDate},
			{"End date (empty if current)", &e.EndDate},
			{"Description", &e.Description},
		} {
			if *f.dst, err = getSimpleText(a.reader, f.prompt, a.out); err != nil {
				return nil, err
			}
		}
		e.Current = e.EndDate == ""
		out = append(out, e)
	}
}

func (a *App) promptEducation() ([]models.Education, error) {
	var out []models.Education
	for {
		degree, err := getSimpleText(a.reader, "Degree (empty to finish)", a.out)
		if err != nil || degree == "" {
			return out, err
		}
		e := models.Education{Degree: degree}
		for _, f := range []struct {
			prompt string
			dst    *string
		}{
			{"Institution", &e.Institution},
			{"Start date", &e.StartDate},
			{"End date", &e.EndDate},
		} {
			if *f.dst, err = getSimpleText(a.reader, f.prompt, a.out); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
}

// Profile prints the saved career profile.
func (a *App) Profile(ctx context.Context, _ []string) error {
	if err := a.gate(services.AccessProtected, "profile"); err != nil {
		return err
	}
	p, err := a.profiles.Profile(ctx)
	if err != nil {
		return err
	}
	if p == nil {
		fmt.Fprintln(a.out, "No profile yet, run 'onboard' to create one")
		return nil
	}

	fmt.Fprintln(a.out, "Title:", p.Title)
	if p.Summary != "" {
		fmt.Fprintln(a.out, "Summary:", p.Summary)
	}
	for _, e := range p.Experiences {
		end := e.EndDate
		if e.Current || end == "" {
			end = "now"
		}
		fmt.Fprintf(a.out, "  %s @ %s (%s - %s)\n", e.Title, e.Company, e.StartDate, end)
	}
	for _, e := range p.Education {
		fmt.Fprintf(a.out, "  %s, %s (%s)\n", e.Degree, e.Institution, e.StartDate)
	}
	if len(p.Skills) > 0 {
		fmt.Fprintln(a.out, "Skills:", strings.Join(p.Skills, ", "))
	}
	for _, l := range p.Languages {
		fmt.Fprintf(a.out, "  %s: %s\n", l.Name, l.Level)
	}
	return nil
}

// Generate writes a CV or cover letter for an application and prints it
// along with the credits left.
func (a *App) Generate(ctx context.Context, args []string) error {
	if err := a.gate(services.AccessProtected, "applications/generate"); err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("%w: usage: generate <id> <cv|letter>", common.ErrValidation)
	}
	kind, err := models.ParseGenerationKind(args[1])
	if err != nil {
		return err
	}

	g, err := a.profiles.Generate(ctx, args[0], kind)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, g.Content)
	if u := a.session.Snapshot().User; u != nil {
		fmt.Fprintf(a.out, "Credits left: cv=%d letter=%d\n", u.CV, u.Letter)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseLanguages reads "name:level" pairs. A missing level is left empty.
func parseLanguages(s string) ([]models.Language, error) {
	var out []models.Language
	for _, item := range splitList(s) {
		name, level, _ := strings.Cut(item, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: language %q has no name", common.ErrValidation, item)
		}
		out = append(out, models.Language{Name: name, Level: strings.TrimSpace(level)})
	}
	return out, nil
}
