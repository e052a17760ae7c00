package session

// LoginRoute is where unauthenticated access to protected content is
// redirected.
const LoginRoute = "/login"

// Decision is what a protected view should do for a given session
// snapshot.
type Decision int

const (
	// ShowLoading renders a neutral indicator while bootstrap is
	// unresolved. Redirecting here would flash the login screen during
	// startup.
	ShowLoading Decision = iota
	// RedirectLogin replaces the current location with the login
	// screen.
	RedirectLogin
	// ShowContent renders the protected content.
	ShowContent
)

// Decide is the gate: a pure function of the session snapshot with no
// state of its own.
func Decide(s Snapshot) Decision {
	switch {
	case s.IsLoading():
		return ShowLoading
	case !s.IsAuthenticated():
		return RedirectLogin
	default:
		return ShowContent
	}
}

// Navigator swaps the current location. Replace semantics are
// required: back-navigation must not return to the blocked page.
type Navigator interface {
	ReplaceTo(route string)
}

// Watch redirects to the login route whenever the session resolves to
// unauthenticated. Navigation stays a downstream reaction to observed
// session state; the transport never reaches into routing. The
// returned function cancels the watch.
func Watch(s *Store, nav Navigator) func() {
	return s.Subscribe(func(snap Snapshot) {
		if Decide(snap) == RedirectLogin {
			nav.ReplaceTo(LoginRoute)
		}
	})
}
