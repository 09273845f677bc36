package apiclient

import (
	"context"
	"log/slog"
	"sync"
)

// LoginRedirector is the default session terminator. It logs the redirect and hands the
// route to the hook, the CLI prints a login hint and the relay forwards it to its caller.
type LoginRedirector struct {
	OnRedirect func(ctx context.Context, route string)

	lock      sync.Mutex
	lastRoute string
}

func (l *LoginRedirector) TerminateSession(ctx context.Context, route string, cause error) {
	slog.Warn("API CLIENT", "message", "session terminated, redirecting to the login page", "route", route, "cause", cause)
	l.lock.Lock()
	l.lastRoute = route
	l.lock.Unlock()
	if l.OnRedirect != nil {
		l.OnRedirect(ctx, route)
	}
}

// LastRoute returns the route of the last redirect, empty when the session was never terminated
func (l *LoginRedirector) LastRoute() string {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.lastRoute
}
