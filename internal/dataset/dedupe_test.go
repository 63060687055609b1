package dataset

import (
	"context"
	"testing"
)

func openTestDedupe(t *testing.T) *DedupeStore {
	t.Helper()
	store, err := OpenDedupeStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDedupeStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestDedupeClaimOnce(t *testing.T) {
	store := openTestDedupe(t)
	ctx := context.Background()

	claimed, err := store.Claim(ctx, "abc123", "id-1", "2026-08-23T00:00:00.000000Z")
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if !claimed {
		t.Fatal("first claim lost")
	}

	claimed, err = store.Claim(ctx, "abc123", "id-2", "2026-08-23T00:00:01.000000Z")
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claimed {
		t.Fatal("second claim of same hash succeeded")
	}

	seen, err := store.Seen(ctx, "abc123")
	if err != nil {
		t.Fatalf("seen: %v", err)
	}
	if !seen {
		t.Error("claimed hash not reported as seen")
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestDedupeRelease(t *testing.T) {
	store := openTestDedupe(t)
	ctx := context.Background()

	if _, err := store.Claim(ctx, "h1", "id-1", "2026-08-23T00:00:00.000000Z"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := store.Release(ctx, "h1"); err != nil {
		t.Fatalf("release: %v", err)
	}

	seen, err := store.Seen(ctx, "h1")
	if err != nil {
		t.Fatalf("seen: %v", err)
	}
	if seen {
		t.Error("released hash still reported as seen")
	}

	// Re-claiming after a release must succeed.
	claimed, err := store.Claim(ctx, "h1", "id-2", "2026-08-23T00:00:01.000000Z")
	if err != nil {
		t.Fatalf("re-claim: %v", err)
	}
	if !claimed {
		t.Error("re-claim after release lost")
	}
}

func TestDedupePersistsAcrossOpens(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := OpenDedupeStore(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.Claim(ctx, "persist", "id-1", "2026-08-23T00:00:00.000000Z"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	store.Close()

	store, err = OpenDedupeStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()

	seen, err := store.Seen(ctx, "persist")
	if err != nil {
		t.Fatalf("seen: %v", err)
	}
	if !seen {
		t.Error("hash lost across reopen")
	}
}
