// ABOUTME: Navigator resolves a navigation attempt into a final location
// ABOUTME: Follows redirect chains against one status snapshot, caps depth, and drops stale attempts

package gate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/2389/tso-console/internal/system"
)

// DefaultMaxRedirects bounds a redirect chain
const DefaultMaxRedirects = 3

// StatusSource reports the backend's configured flag, surfacing failures
type StatusSource interface {
	Status(ctx context.Context) (system.Status, error)
}

// SessionSource reads the client-held session
type SessionSource interface {
	IsLoggedIn(ctx context.Context) bool
	IsAdmin(ctx context.Context) bool
}

// RedirectLoopError is returned when a chain exceeds the redirect cap
type RedirectLoopError struct {
	Hops []string
	Max  int
}

func (e *RedirectLoopError) Error() string {
	return fmt.Sprintf("redirect chain exceeded %d hops: %s", e.Max, strings.Join(e.Hops, " -> "))
}

// Result is the outcome of one navigation attempt
type Result struct {
	// Path is where the attempt landed.
	Path  string
	Route Route
	// Found is false when Path is not a declared route.
	Found bool
	// Hops lists every target evaluated, starting with the requested path.
	Hops []string
	// Stale is set when a newer attempt started, or ctx was canceled, before this
	// one resolved. Stale results were not committed.
	Stale bool
}

// Redirected reports whether the attempt landed somewhere other than requested
func (r Result) Redirected() bool {
	return len(r.Hops) > 1
}

// Navigator applies the gate to navigation attempts. Attempts may overlap; only
// the most recent one can commit its location.
type Navigator struct {
	routes       *Routes
	rules        []Rule
	status       StatusSource
	session      SessionSource
	maxRedirects int
	logger       *slog.Logger

	generation atomic.Uint64

	mu      sync.Mutex
	current string
}

// Option configures a Navigator
type Option func(*Navigator)

// WithRoutes replaces DefaultRoutes
func WithRoutes(routes *Routes) Option {
	return func(n *Navigator) { n.routes = routes }
}

// WithRules replaces DefaultRules
func WithRules(rules []Rule) Option {
	return func(n *Navigator) { n.rules = rules }
}

// WithMaxRedirects sets the redirect cap (values below 1 are ignored)
func WithMaxRedirects(max int) Option {
	return func(n *Navigator) {
		if max >= 1 {
			n.maxRedirects = max
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(n *Navigator) { n.logger = logger }
}

// NewNavigator creates a navigator reading status and session from the given sources
func NewNavigator(status StatusSource, session SessionSource, opts ...Option) *Navigator {
	n := &Navigator{
		routes:       DefaultRoutes(),
		rules:        DefaultRules(),
		status:       status,
		session:      session,
		maxRedirects: DefaultMaxRedirects,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.With("component", "gate")
	return n
}

// Current returns the last committed location ("" before the first navigation)
func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Routes returns the navigator's route table
func (n *Navigator) Routes() *Routes {
	return n.routes
}

// Navigate evaluates the gate for path, following redirects. SystemStatus is
// fetched at most once and the session read once for the whole chain.
func (n *Navigator) Navigate(ctx context.Context, path string) (Result, error) {
	gen := n.generation.Add(1)

	target := Normalize(path)
	hops := []string{target}

	loggedIn := n.session.IsLoggedIn(ctx)
	isAdmin := n.session.IsAdmin(ctx)

	var (
		status    *system.Status
		statusErr error
		fetched   bool
	)

	for {
		route, found := n.routes.Lookup(target)
		if !found {
			route = Route{Path: target}
		}

		if needsStatus(target) && !fetched {
			fetched = true
			st, err := n.status.Status(ctx)
			if err != nil {
				statusErr = err
				n.logger.Warn("status check failed, continuing navigation", "target", target, "error", err)
			} else {
				status = &st
			}
		}

		if ctx.Err() != nil {
			return n.stale(target, hops), nil
		}

		dec := Evaluate(n.rules, Snapshot{
			Target:    route,
			Found:     found,
			Status:    status,
			StatusErr: statusErr,
			LoggedIn:  loggedIn,
			IsAdmin:   isAdmin,
		})

		if dec.Allow {
			return n.commit(ctx, gen, Result{Path: target, Route: route, Found: found, Hops: hops}), nil
		}

		if len(hops) > n.maxRedirects {
			err := &RedirectLoopError{Hops: append(hops, dec.Redirect), Max: n.maxRedirects}
			n.logger.Error("redirect loop", "error", err)
			return Result{}, err
		}

		n.logger.Debug("redirecting", "from", target, "to", dec.Redirect, "rule", dec.Rule)
		target = Normalize(dec.Redirect)
		hops = append(hops, target)
	}
}

// commit records res as the current location unless a newer attempt exists
func (n *Navigator) commit(ctx context.Context, gen uint64, res Result) Result {
	n.mu.Lock()
	defer n.mu.Unlock()

	if ctx.Err() != nil || n.generation.Load() != gen {
		n.logger.Debug("discarding stale navigation", "path", res.Path)
		res.Stale = true
		return res
	}
	n.current = res.Path
	return res
}

func (n *Navigator) stale(target string, hops []string) Result {
	n.logger.Debug("discarding canceled navigation", "path", target)
	return Result{Path: target, Hops: hops, Stale: true}
}
