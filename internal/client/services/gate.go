package services

import "net/url"

// Access declares who may see a view.
type Access int

const (
	// AccessOpen views render for everyone.
	AccessOpen Access = iota
	// AccessProtected views need an authenticated session.
	AccessProtected
	// AccessPublicOnly views (login, register) are for anonymous users.
	AccessPublicOnly
)

// Verdict is the outcome of a gate check.
type Verdict int

const (
	VerdictRender Verdict = iota
	VerdictRedirect
	// VerdictLoading is returned while the session is being verified so
	// that no view flashes before the outcome is known.
	VerdictLoading
)

// Decision tells the caller what to show. Location is set for redirects.
type Decision struct {
	Verdict  Verdict
	Location string
}

// GateFor decides what to show for a view with the given access at
// location, in session state s.
func GateFor(s SessionState, access Access, location string) Decision {
	if access == AccessOpen {
		return Decision{Verdict: VerdictRender}
	}
	if s == StateVerifying {
		return Decision{Verdict: VerdictLoading}
	}

	authed := s == StateAuthenticated
	switch {
	case access == AccessProtected && !authed:
		loc := string(DestLogin)
		if location != "" {
			loc += "?from=" + url.QueryEscape(location)
		}
		return Decision{Verdict: VerdictRedirect, Location: loc}
	case access == AccessPublicOnly && authed:
		return Decision{Verdict: VerdictRedirect, Location: string(DestDashboard)}
	}
	return Decision{Verdict: VerdictRender}
}

// Gate applies GateFor to the current session state.
func (m *SessionManager) Gate(access Access, location string) Decision {
	return GateFor(m.State(), access, location)
}
