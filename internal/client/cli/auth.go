package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/joboost/internal/client/models"
	"github.com/dmitrijs2005/joboost/internal/client/services"
	"github.com/dmitrijs2005/joboost/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// errGated is returned when the session state does not allow a command.
// The user has already been told why.
var errGated = errors.New("command not available")

// gate applies the session's access rules to a command and explains a
// refusal to the user.
func (a *App) gate(access services.Access, cmd string) error {
	d := a.session.Gate(access, "/"+cmd)
	switch d.Verdict {
	case services.VerdictLoading:
		fmt.Fprintln(a.out, "Session is being verified, try again in a moment")
		return errGated
	case services.VerdictRedirect:
		if access == services.AccessProtected {
			fmt.Fprintln(a.out, "Please log in first (login, register or callback)")
		} else {
			fmt.Fprintln(a.out, "Already logged in, log out first")
		}
		return errGated
	}
	return nil
}

// Register prompts for a name, an email and a password and creates an
// account. On success the new session is active immediately.
func (a *App) Register(ctx context.Context, _ []string) error {
	if err := a.gate(services.AccessPublicOnly, "register"); err != nil {
		return err
	}

	name, err := getSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeBytes(password)

	u, err := a.session.Register(ctx, name, email, string(password))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Welcome, %s!\n", displayName(u))
	return nil
}

// Login prompts for credentials and opens a session, then loads the
// user's applications.
func (a *App) Login(ctx context.Context, _ []string) error {
	if err := a.gate(services.AccessPublicOnly, "login"); err != nil {
		return err
	}

	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeBytes(password)

	u, err := a.session.Login(ctx, email, string(password))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s\n", displayName(u))
	a.refresh(ctx)
	return nil
}

// Callback completes a delegated login from the URL the identity provider
// redirected the browser to. The URL can be passed inline or typed at the
// prompt.
func (a *App) Callback(ctx context.Context, args []string) error {
	if err := a.gate(services.AccessPublicOnly, "callback"); err != nil {
		return err
	}

	raw, err := a.argOrPrompt(args, "Paste the URL you were redirected to")
	if err != nil {
		return err
	}

	dest, err := a.session.HandleDelegatedCallback(ctx, raw)
	switch {
	case err != nil:
		fmt.Fprintln(a.out, "Login failed, start again from the login page")
		return err
	case dest == services.DestLogin:
		fmt.Fprintln(a.out, "No session id in that URL")
		return nil
	}

	u := a.session.Snapshot().User
	fmt.Fprintf(a.out, "Logged in as %s\n", displayName(u))
	if dest == services.DestOnboarding {
		fmt.Fprintln(a.out, "Your profile is not complete yet, run 'onboard' to finish it")
	}
	a.refresh(ctx)
	return nil
}

// Logout ends the session locally and on the server.
func (a *App) Logout(ctx context.Context, _ []string) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// Me re-checks the session with the server and prints the account.
func (a *App) Me(ctx context.Context, _ []string) error {
	if err := a.gate(services.AccessProtected, "me"); err != nil {
		return err
	}
	if err := a.session.Revalidate(ctx); err != nil {
		return err
	}

	u := a.session.Snapshot().User
	if u == nil {
		return services.ErrNoSession
	}
	fmt.Fprintf(a.out, "%s <%s>\n", displayName(u), u.Email)
	fmt.Fprintf(a.out, "Plan: %s\n", u.Plan)
	fmt.Fprintf(a.out, "Credits: cv=%d letter=%d spontaneous=%d\n", u.CV, u.Letter, u.Spontaneous)
	if !u.OnboardingCompleted {
		fmt.Fprintln(a.out, "Onboarding: not completed, run 'onboard'")
	}
	return nil
}

func displayName(u *models.User) string {
	switch {
	case u == nil:
		return ""
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	default:
		return u.ID
	}
}

// argOrPrompt returns the first argument, or asks for it when none was given.
func (a *App) argOrPrompt(args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return getSimpleText(a.reader, prompt, a.out)
}
