// ABOUTME: Static route table declared at startup
// ABOUTME: Each route carries the auth/admin metadata the gate rules read

package gate

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Well-known paths the rules redirect between
const (
	PathRoot             = "/"
	PathSetup            = "/setup"
	PathLogin            = "/login"
	PathRegister         = "/register"
	PathMessage          = "/message"
	PathProfile          = "/profile"
	PathExternalPlatform = "/external-platform"
	PathAdminSettings    = "/admin/settings"
	PathPreviewDemo      = "/preview-demo"
	PathRagChat          = "/rag-chat"
)

// ErrUnknownRoute is returned by MustLookup-style callers for undeclared paths
var ErrUnknownRoute = errors.New("unknown route")

// Route is the immutable metadata for one declared path
type Route struct {
	Name          string
	Path          string
	RequiresAuth  bool
	RequiresAdmin bool
}

// Routes is an immutable lookup table of declared routes
type Routes struct {
	ordered []Route
	byPath  map[string]Route
}

// NewRoutes builds a table. Paths are normalized; duplicates are rejected.
func NewRoutes(routes ...Route) (*Routes, error) {
	t := &Routes{byPath: make(map[string]Route, len(routes))}
	for _, r := range routes {
		r.Path = Normalize(r.Path)
		if _, dup := t.byPath[r.Path]; dup {
			return nil, fmt.Errorf("duplicate route %q", r.Path)
		}
		if r.RequiresAdmin && !r.RequiresAuth {
			return nil, fmt.Errorf("route %q requires admin but not auth", r.Path)
		}
		t.byPath[r.Path] = r
		t.ordered = append(t.ordered, r)
	}
	return t, nil
}

// DefaultRoutes returns the console's route table
func DefaultRoutes() *Routes {
	t, err := NewRoutes(
		Route{Name: "root", Path: PathRoot},
		Route{Name: "setup", Path: PathSetup},
		Route{Name: "login", Path: PathLogin},
		Route{Name: "register", Path: PathRegister},
		Route{Name: "message", Path: PathMessage, RequiresAuth: true},
		Route{Name: "profile", Path: PathProfile, RequiresAuth: true},
		Route{Name: "external-platform", Path: PathExternalPlatform, RequiresAuth: true},
		Route{Name: "admin-settings", Path: PathAdminSettings, RequiresAuth: true, RequiresAdmin: true},
		Route{Name: "preview-demo", Path: PathPreviewDemo},
		Route{Name: "rag-chat", Path: PathRagChat},
	)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup finds the route for p after normalization
func (t *Routes) Lookup(p string) (Route, bool) {
	r, ok := t.byPath[Normalize(p)]
	return r, ok
}

// Get is Lookup returning ErrUnknownRoute for undeclared paths
func (t *Routes) Get(p string) (Route, error) {
	r, ok := t.Lookup(p)
	if !ok {
		return Route{}, fmt.Errorf("%w: %s", ErrUnknownRoute, Normalize(p))
	}
	return r, nil
}

// All returns the routes in declaration order
func (t *Routes) All() []Route {
	out := make([]Route, len(t.ordered))
	copy(out, t.ordered)
	return out
}

// Normalize strips query and fragment, forces a leading slash, and cleans the path
func Normalize(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return path.Clean("/" + p)
}
