// ABOUTME: Unit tests for identity context helpers
// ABOUTME: Tests round-tripping and absence of an identity

package auth

import (
	"context"
	"testing"
)

func TestFromContext_Missing(t *testing.T) {
	if got := FromContext(context.Background()); got != nil {
		t.Errorf("FromContext() = %+v, want nil", got)
	}
}

func TestWithIdentity_RoundTrip(t *testing.T) {
	id := &Identity{UserID: "u-1", Username: "alice", Admin: true}
	ctx := WithIdentity(context.Background(), id)

	got := FromContext(ctx)
	if got != id {
		t.Fatalf("FromContext() = %+v, want %+v", got, id)
	}
}
