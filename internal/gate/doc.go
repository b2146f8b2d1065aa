// Package gate decides, for every navigation attempt, whether the target route
// is reachable or which of setup, login, or message to redirect to.
//
// # Rules
//
// Rules are evaluated in order against a Snapshot; the first that fires wins:
//
//  1. bootstrap: "/" redirects to /setup when not configured, else /login
//  2. setup-required: an unconfigured system sends everything except /setup,
//     /login and /register to /setup; a failed status fetch skips this rule
//  3. auth-required: RequiresAuth without a session redirects to /login
//  4. admin-required: RequiresAdmin without the admin flag redirects to /message
//  5. already-authenticated: a session visiting /login or /register goes to /message
//
// Decide and Evaluate are pure and need no router or network.
//
// # Navigator
//
// Navigator wraps the rules with the effects a router needs:
//
//   - SystemStatus is fetched at most once per attempt and reused across its
//     redirect chain, so a flapping backend cannot cause oscillation
//   - redirect chains are capped (default 3); exceeding the cap returns a
//     *RedirectLoopError listing the hops
//   - overlapping attempts are tagged with a generation; only the newest may
//     commit its location, older ones come back with Result.Stale set
//
// The admin check is advisory. The backend enforces admin access on its own.
package gate
