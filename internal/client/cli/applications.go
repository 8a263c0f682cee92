package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/joboost/internal/client/models"
	"github.com/dmitrijs2005/joboost/internal/client/services"
	"github.com/dmitrijs2005/joboost/internal/common"
)

// refresh reloads the collection, logging rather than returning failures.
func (a *App) refresh(ctx context.Context) {
	if err := a.apps.Load(ctx); err != nil {
		a.log.Warn(ctx, "applications not loaded", "error", err)
		fmt.Fprintln(a.out, "Could not load applications:", err)
	}
}

// Refresh reloads applications from the server.
func (a *App) Refresh(ctx context.Context, _ []string) error {
	if err := a.gate(services.AccessProtected, "applications"); err != nil {
		return err
	}
	if err := a.apps.Load(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d applications\n", len(a.apps.List()))
	return nil
}

// List prints the applications in display order.
func (a *App) List(_ context.Context, _ []string) error {
	if err := a.gate(services.AccessProtected, "applications"); err != nil {
		return err
	}
	list := a.apps.List()
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No applications yet, use 'add' to create one")
		return nil
	}
	for _, app := range list {
		fmt.Fprintln(a.out, formatApplication(app))
	}
	return nil
}

// Board prints the applications grouped by status, one column per status.
func (a *App) Board(_ context.Context, _ []string) error {
	if err := a.gate(services.AccessProtected, "dashboard"); err != nil {
		return err
	}
	for _, col := range a.apps.Board() {
		fmt.Fprintf(a.out, "== %s (%d)\n", col.Status, len(col.Applications))
		for i, app := range col.Applications {
			fmt.Fprintf(a.out, "  %d. %s @ %s  [%s]\n", i, app.JobTitle, app.CompanyName, app.ID)
		}
	}
	return nil
}

// Add prompts for the fields of a new application and creates it.
func (a *App) Add(ctx context.Context, _ []string) error {
	if err := a.gate(services.AccessProtected, "applications/new"); err != nil {
		return err
	}

	var f models.ApplicationFields
	var err error

	if f.CompanyName, err = getSimpleText(a.reader, "Company", a.out); err != nil {
		return err
	}
	if f.JobTitle, err = getSimpleText(a.reader, "Job title", a.out); err != nil {
		return err
	}
	status, err := getSimpleText(a.reader, "Status (todo, applied, interview, offer, rejected; empty for todo)", a.out)
	if err != nil {
		return err
	}
	if status != "" {
		if f.Status, err = models.ParseStatus(status); err != nil {
			return err
		}
	}
	if err := a.promptDetails(&f); err != nil {
		return err
	}

	app, err := a.apps.Add(ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Created", formatApplication(*app))
	return nil
}

// Edit prompts for new values of an application's fields. Empty answers
// keep the current value.
func (a *App) Edit(ctx context.Context, args []string) error {
	if err := a.gate(services.AccessProtected, "applications/edit"); err != nil {
		return err
	}
	id, err := a.argOrPrompt(args, "Enter application id to edit")
	if err != nil {
		return err
	}
	cur, err := a.apps.Get(id)
	if err != nil {
		return err
	}

	var f models.ApplicationFields
	if f.CompanyName, err = getSimpleText(a.reader, fmt.Sprintf("Company [%s]", cur.CompanyName), a.out); err != nil {
		return err
	}
	if f.JobTitle, err = getSimpleText(a.reader, fmt.Sprintf("Job title [%s]", cur.JobTitle), a.out); err != nil {
		return err
	}
	if err := a.promptDetails(&f); err != nil {
		return err
	}

	app, err := a.apps.Update(ctx, id, f)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Updated", formatApplication(*app))
	return nil
}

func (a *App) promptDetails(f *models.ApplicationFields) error {
	var err error
	if f.Location, err = GetOptional(a.reader, "Location", a.out); err != nil {
		return err
	}
	if f.Deadline, err = GetOptional(a.reader, "Deadline (YYYY-MM-DD)", a.out); err != nil {
		return err
	}
	if f.JobURL, err = GetOptional(a.reader, "Job posting URL", a.out); err != nil {
		return err
	}
	if f.SalaryRange, err = GetOptional(a.reader, "Salary range", a.out); err != nil {
		return err
	}
	notes, err := GetMultiline(a.reader, "Notes", a.out)
	if err != nil {
		return err
	}
	if notes != "" {
		f.Notes = &notes
	}
	return nil
}

// Show fetches one application from the server and prints it.
func (a *App) Show(ctx context.Context, args []string) error {
	if err := a.gate(services.AccessProtected, "applications"); err != nil {
		return err
	}
	id, err := a.argOrPrompt(args, "Enter application id to show")
	if err != nil {
		return err
	}

	app, err := a.apps.Fetch(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, formatApplication(*app))
	printOptional(a, "Location", app.Location)
	printOptional(a, "Deadline", app.Deadline)
	printOptional(a, "URL", app.JobURL)
	printOptional(a, "Salary", app.SalaryRange)
	printOptional(a, "Notes", app.Notes)
	if !app.UpdatedAt.IsZero() {
		fmt.Fprintf(a.out, "Updated: %s\n", app.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// Move changes the status of an application. The new status shows at once;
// a refused change is reverted and reported.
func (a *App) Move(ctx context.Context, args []string) error {
	if err := a.gate(services.AccessProtected, "dashboard"); err != nil {
		return err
	}
	if len(args) < 2 {
		fmt.Fprintln(a.out, "Usage: move <id> <status>")
		return nil
	}
	status, err := models.ParseStatus(args[1])
	if err != nil {
		return err
	}
	if err := a.apps.ChangeStatus(ctx, args[0], status); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Moved %s to %s\n", args[0], status)
	return nil
}

// Delete removes an application.
func (a *App) Delete(ctx context.Context, args []string) error {
	if err := a.gate(services.AccessProtected, "applications"); err != nil {
		return err
	}
	id, err := a.argOrPrompt(args, "Enter application id to delete")
	if err != nil {
		return err
	}
	if err := a.apps.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted", id)
	return nil
}

// Reorder moves an application to position pos within its status column.
// The order is local to this session.
func (a *App) Reorder(_ context.Context, args []string) error {
	if err := a.gate(services.AccessProtected, "dashboard"); err != nil {
		return err
	}
	if len(args) < 2 {
		fmt.Fprintln(a.out, "Usage: reorder <id> <position>")
		return nil
	}
	pos, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("%w: position must be a number", common.ErrValidation)
	}
	return a.apps.Reorder(args[0], pos)
}

// Stats prints per-status counts from the server, falling back to the
// local collection when the server cannot be reached.
func (a *App) Stats(ctx context.Context, _ []string) error {
	if err := a.gate(services.AccessProtected, "dashboard"); err != nil {
		return err
	}
	st, err := a.apps.ServerStats(ctx)
	if err != nil {
		a.log.Warn(ctx, "server stats unavailable, using local counts", "error", err)
		local := a.apps.Stats()
		st = &local
	}
	fmt.Fprintf(a.out, "Total: %d\n", st.Total)
	fmt.Fprintf(a.out, "todo=%d applied=%d interview=%d offer=%d rejected=%d\n",
		st.Todo, st.Applied, st.Interview, st.Offer, st.Rejected)
	return nil
}

func formatApplication(app models.Application) string {
	return fmt.Sprintf("%s  [%s]  %s @ %s", app.ID, app.Status, app.JobTitle, app.CompanyName)
}

func printOptional(a *App, label string, v *string) {
	if v != nil && *v != "" {
		fmt.Fprintf(a.out, "%s: %s\n", label, *v)
	}
}
