package nav

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Route paths the client can be at
const (
	RouteRoot           = "/"
	RouteChat           = "/chat/{id}"
	RouteLogin          = "/login"
	RouteRegister       = "/register"
	RouteForgotPassword = "/forgot-password"
	RouteVerifyToken    = "/verify-token"
	RouteResetPassword  = "/reset-password"
)

// ErrUnknownRoute is returned for paths outside the route table
var ErrUnknownRoute = errors.New("unknown route")

// Authenticator reports whether protected routes may be entered
type Authenticator interface {
	Token() string
}

// Location is a resolved route
type Location struct {
	Path    string
	Pattern string
	ChatID  string
}

// Protected reports whether the location needs a token
func (l Location) Protected() bool {
	return l.Pattern == RouteRoot || l.Pattern == RouteChat
}

// ChatPath builds the location of a conversation
func ChatPath(id string) string {
	return "/chat/" + url.PathEscape(id)
}

// Navigator holds the current location. Route parameters are the source of truth
// for which conversation is active; subscribers derive their state from it.
type Navigator struct {
	mux  *chi.Mux
	auth Authenticator

	mu        sync.Mutex
	current   Location
	returnTo  string
	listeners []func(Location)
}

// New creates a Navigator positioned at /login
func New(auth Authenticator) *Navigator {
	mux := chi.NewRouter()
	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	for _, p := range []string{
		RouteRoot, RouteChat, RouteLogin, RouteRegister,
		RouteForgotPassword, RouteVerifyToken, RouteResetPassword,
	} {
		mux.Get(p, noop)
	}
	return &Navigator{
		mux:     mux,
		auth:    auth,
		current: Location{Path: RouteLogin, Pattern: RouteLogin},
	}
}

// Resolve matches path against the route table without moving
func (n *Navigator) Resolve(path string) (Location, error) {
	if path == "" {
		path = RouteRoot
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	rctx := chi.NewRouteContext()
	if !n.mux.Match(rctx, http.MethodGet, path) {
		return Location{}, fmt.Errorf("%w: %s", ErrUnknownRoute, path)
	}
	loc := Location{Path: path, Pattern: rctx.RoutePattern()}
	if loc.Pattern == RouteChat {
		id, err := url.PathUnescape(rctx.URLParam("id"))
		if err != nil {
			return Location{}, fmt.Errorf("bad chat id in %s: %w", path, err)
		}
		loc.ChatID = id
	}
	return loc, nil
}

// Navigate moves to path. Entering a protected route without a token redirects to /login
// and remembers path so Login can return there.
func (n *Navigator) Navigate(path string) (Location, error) {
	loc, err := n.Resolve(path)
	if err != nil {
		return Location{}, err
	}

	n.mu.Lock()
	if loc.Protected() && (n.auth == nil || n.auth.Token() == "") {
		n.returnTo = loc.Path
		loc = Location{Path: RouteLogin, Pattern: RouteLogin}
	}
	n.current = loc
	listeners := append([]func(Location){}, n.listeners...)
	n.mu.Unlock()

	for _, fn := range listeners {
		fn(loc)
	}
	return loc, nil
}

// Current returns the current location
func (n *Navigator) Current() Location {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Subscribe registers fn to run after every navigation
func (n *Navigator) Subscribe(fn func(Location)) {
	n.mu.Lock()
	n.listeners = append(n.listeners, fn)
	n.mu.Unlock()
}

// TakeReturnTo returns and forgets the location captured by the last guard redirect.
// It falls back to the root route.
func (n *Navigator) TakeReturnTo() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	to := n.returnTo
	n.returnTo = ""
	if to == "" {
		return RouteRoot
	}
	return to
}
