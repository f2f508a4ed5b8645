package memory

import (
	"context"
	"testing"
	"time"
)

func TestExecutionGuard_Acquire(t *testing.T) {
	g := NewExecutionGuard()
	now := time.Unix(1700000000, 0)
	g.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := g.Acquire(ctx, "d1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first Acquire = %v, %v; want true, nil", ok, err)
	}

	ok, _ = g.Acquire(ctx, "d1", time.Minute)
	if ok {
		t.Error("second Acquire succeeded while held")
	}

	ok, _ = g.Acquire(ctx, "d2", time.Minute)
	if !ok {
		t.Error("Acquire of a different id failed")
	}

	now = now.Add(2 * time.Minute)
	ok, _ = g.Acquire(ctx, "d1", time.Minute)
	if !ok {
		t.Error("Acquire after expiry failed")
	}
}

func TestExecutionGuard_NoTTL(t *testing.T) {
	g := NewExecutionGuard()
	now := time.Unix(1700000000, 0)
	g.now = func() time.Time { return now }
	ctx := context.Background()

	if ok, _ := g.Acquire(ctx, "d1", 0); !ok {
		t.Fatal("first Acquire failed")
	}
	now = now.Add(24 * time.Hour)
	if ok, _ := g.Acquire(ctx, "d1", 0); ok {
		t.Error("Acquire succeeded for an id held without ttl")
	}
}

func TestExecutionGuard_EmptyID(t *testing.T) {
	if _, err := NewExecutionGuard().Acquire(context.Background(), "", time.Minute); err == nil {
		t.Error("expected error for empty id")
	}
}
