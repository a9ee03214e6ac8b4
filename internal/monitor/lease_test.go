package monitor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestManager(t *testing.T, repo Repository, self string) *LeaseManager {
	t.Helper()
	return NewLeaseManager(repo, self, 10*time.Minute, testLogger())
}

func TestLeaseManager_TryClaim(t *testing.T) {
	ctx := context.Background()

	t.Run("acquires idle lease", func(t *testing.T) {
		repo := NewSQLiteRepository(setupTestDB(t))
		if _, err := repo.Register(ctx, Registration{Name: "a"}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}

		lm := newTestManager(t, repo, "a")
		if err := lm.TryClaim(ctx); err != nil {
			t.Fatalf("TryClaim failed: %v", err)
		}

		held, err := lm.IsHolder(ctx)
		if err != nil {
			t.Fatalf("IsHolder failed: %v", err)
		}
		if !held {
			t.Error("expected agent to hold the lease")
		}
	})

	t.Run("defers to fresh holder without writing", func(t *testing.T) {
		repo := NewSQLiteRepository(setupTestDB(t))
		for _, n := range []string{"a", "b"} {
			if _, err := repo.Register(ctx, Registration{Name: n}); err != nil {
				t.Fatalf("Register failed: %v", err)
			}
		}

		lmA := newTestManager(t, repo, "a")
		lmB := newTestManager(t, repo, "b")

		if err := lmA.TryClaim(ctx); err != nil {
			t.Fatalf("a's claim failed: %v", err)
		}
		if err := lmB.TryClaim(ctx); !errors.Is(err, ErrLeaseHeldElsewhere) {
			t.Errorf("expected ErrLeaseHeldElsewhere, got %v", err)
		}

		holder, _ := repo.CurrentLeaseHolder(ctx)
		if holder == nil || holder.Name != "a" {
			t.Errorf("holder = %+v, want a", holder)
		}
	})

	t.Run("reclaims after holder goes stale", func(t *testing.T) {
		repo := NewSQLiteRepository(setupTestDB(t))
		for _, n := range []string{"a", "b"} {
			if _, err := repo.Register(ctx, Registration{Name: n}); err != nil {
				t.Fatalf("Register failed: %v", err)
			}
		}

		start := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
		clock := start

		lmA := newTestManager(t, repo, "a")
		lmA.now = func() time.Time { return clock }
		lmB := newTestManager(t, repo, "b")
		lmB.now = func() time.Time { return clock }

		if err := lmA.TryClaim(ctx); err != nil {
			t.Fatalf("a's claim failed: %v", err)
		}

		// Within the TTL, b must defer.
		clock = start.Add(5 * time.Minute)
		if err := lmB.TryClaim(ctx); !errors.Is(err, ErrLeaseHeldElsewhere) {
			t.Fatalf("expected ErrLeaseHeldElsewhere inside TTL, got %v", err)
		}

		// Past the TTL, a never renewed, so b takes over.
		clock = start.Add(11 * time.Minute)
		if err := lmB.TryClaim(ctx); err != nil {
			t.Fatalf("takeover failed: %v", err)
		}

		holder, _ := repo.CurrentLeaseHolder(ctx)
		if holder == nil || holder.Name != "b" {
			t.Errorf("holder = %+v, want b", holder)
		}
	})

	t.Run("holder refresh is not an error", func(t *testing.T) {
		repo := NewSQLiteRepository(setupTestDB(t))
		if _, err := repo.Register(ctx, Registration{Name: "a"}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}

		lm := newTestManager(t, repo, "a")
		if err := lm.TryClaim(ctx); err != nil {
			t.Fatalf("first claim failed: %v", err)
		}
		if err := lm.TryClaim(ctx); err != nil {
			t.Errorf("re-claim by holder should succeed, got %v", err)
		}
	})
}

// raceRepo wraps a Repository and hides the holder from reads, simulating
// a peer that commits its claim between this agent's read and its
// conditional update.
type raceRepo struct {
	Repository
}

func (r *raceRepo) CurrentLeaseHolder(ctx context.Context) (*Monitor, error) {
	return nil, nil
}

func TestLeaseManager_TryClaim_race(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupTestDB(t))
	for _, n := range []string{"a", "b"} {
		if _, err := repo.Register(ctx, Registration{Name: n}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	// a wins the real claim first.
	lmA := newTestManager(t, repo, "a")
	if err := lmA.TryClaim(ctx); err != nil {
		t.Fatalf("a's claim failed: %v", err)
	}

	// b's read saw no holder, but the conditional update still loses.
	lmB := newTestManager(t, &raceRepo{Repository: repo}, "b")
	if err := lmB.TryClaim(ctx); !errors.Is(err, ErrLeaseHeldElsewhere) {
		t.Fatalf("expected ErrLeaseHeldElsewhere from lost race, got %v", err)
	}

	holder, err := repo.CurrentLeaseHolder(ctx)
	if err != nil {
		t.Fatalf("CurrentLeaseHolder failed: %v", err)
	}
	if holder == nil || holder.Name != "a" {
		t.Errorf("holder = %+v, want a", holder)
	}
}

func TestLeaseManager_RenewAndRelease(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupTestDB(t))
	if _, err := repo.Register(ctx, Registration{Name: "a"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	lm := newTestManager(t, repo, "a")

	// Renewing without holding is tolerated.
	if err := lm.Renew(ctx); err != nil {
		t.Errorf("Renew without lease should not error, got %v", err)
	}

	if err := lm.TryClaim(ctx); err != nil {
		t.Fatalf("TryClaim failed: %v", err)
	}
	if err := lm.Renew(ctx); err != nil {
		t.Errorf("Renew failed: %v", err)
	}

	if err := lm.Release(ctx); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	held, err := lm.IsHolder(ctx)
	if err != nil {
		t.Fatalf("IsHolder failed: %v", err)
	}
	if held {
		t.Error("expected lease released")
	}
}
