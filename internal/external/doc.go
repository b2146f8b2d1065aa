// ABOUTME: Package external manages the console's link to the external platform
// ABOUTME: Token handoff, connection checks, the connection log, and background refresh

// Package external stores the external platform token, probes the platform
// connection, and keeps a bounded, newest-first connection log in the
// credential store. RunAutoRefresh renews tokens close to expiry.
package external
