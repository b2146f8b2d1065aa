// ABOUTME: Shared test helpers for gate package tests
// ABOUTME: Polling bounds for tests that wait on a parked navigation attempt

package gate

import "time"

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)
