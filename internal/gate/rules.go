// ABOUTME: Ordered navigation rules and the pure Decide function
// ABOUTME: Later rules assume earlier ones passed, so order is part of the contract

package gate

import (
	"github.com/2389/tso-console/internal/system"
)

// Snapshot is everything a decision may read for one target
type Snapshot struct {
	Target Route
	Found  bool

	// Status is nil when it was not fetched or the fetch failed (see StatusErr).
	Status    *system.Status
	StatusErr error

	LoggedIn bool
	IsAdmin  bool
}

// Decision is either Allow or a redirect named by the rule that fired
type Decision struct {
	Allow    bool
	Redirect string
	Rule     string
}

// Rule maps a snapshot to a redirect target when it fires
type Rule struct {
	Name  string
	Apply func(Snapshot) (redirect string, fired bool)
}

// Rule names
const (
	RuleBootstrap            = "bootstrap"
	RuleSetupRequired        = "setup-required"
	RuleAuthRequired         = "auth-required"
	RuleAdminRequired        = "admin-required"
	RuleAlreadyAuthenticated = "already-authenticated"
)

var defaultRules = []Rule{
	{Name: RuleBootstrap, Apply: bootstrap},
	{Name: RuleSetupRequired, Apply: setupRequired},
	{Name: RuleAuthRequired, Apply: authRequired},
	{Name: RuleAdminRequired, Apply: adminRequired},
	{Name: RuleAlreadyAuthenticated, Apply: alreadyAuthenticated},
}

// DefaultRules returns a copy of the console's rule chain
func DefaultRules() []Rule {
	out := make([]Rule, len(defaultRules))
	copy(out, defaultRules)
	return out
}

// Decide evaluates the default rules against s
func Decide(s Snapshot) Decision {
	return Evaluate(defaultRules, s)
}

// Evaluate returns the first firing rule's redirect, or Allow
func Evaluate(rules []Rule, s Snapshot) Decision {
	for _, r := range rules {
		if to, fired := r.Apply(s); fired {
			return Decision{Redirect: to, Rule: r.Name}
		}
	}
	return Decision{Allow: true}
}

// needsStatus reports whether a decision for p reads SystemStatus
func needsStatus(p string) bool {
	return p != PathSetup
}

func isAuthForm(p string) bool {
	return p == PathLogin || p == PathRegister
}

// bootstrap: the root route always redirects. An unknown status counts as
// not configured, steering toward setup.
func bootstrap(s Snapshot) (string, bool) {
	if s.Target.Path != PathRoot {
		return "", false
	}
	if s.Status == nil || !s.Status.Configured {
		return PathSetup, true
	}
	return PathLogin, true
}

// setupRequired: an unconfigured system sends everything except the auth forms
// to setup. A failed status fetch skips this rule.
func setupRequired(s Snapshot) (string, bool) {
	p := s.Target.Path
	if p == PathSetup || p == PathRoot || s.Status == nil {
		return "", false
	}
	if !s.Status.Configured && !isAuthForm(p) {
		return PathSetup, true
	}
	return "", false
}

func authRequired(s Snapshot) (string, bool) {
	if s.Target.RequiresAuth && !s.LoggedIn {
		return PathLogin, true
	}
	return "", false
}

// adminRequired is advisory only; the backend enforces admin access itself.
func adminRequired(s Snapshot) (string, bool) {
	if s.Target.RequiresAdmin && !s.IsAdmin {
		return PathMessage, true
	}
	return "", false
}

func alreadyAuthenticated(s Snapshot) (string, bool) {
	if s.LoggedIn && isAuthForm(s.Target.Path) {
		return PathMessage, true
	}
	return "", false
}
