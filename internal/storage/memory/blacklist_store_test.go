package memory

import (
	"context"
	"testing"

	"guild-scout/internal/domain"
)

func TestBlacklistStore_AddAndCheck(t *testing.T) {
	store := NewBlacklistStore()
	ctx := context.Background()

	id := domain.Identity{Name: "Badguy", Realm: "Silvermoon"}

	blacklisted, err := store.IsBlacklisted(ctx, id)
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if blacklisted {
		t.Error("Expected not blacklisted before Add")
	}

	if err := store.Add(ctx, id, "spam applications"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// Case-insensitive lookup
	blacklisted, err = store.IsBlacklisted(ctx, domain.Identity{Name: "badguy", Realm: "SILVERMOON"})
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if !blacklisted {
		t.Error("Expected blacklisted after Add")
	}
}

func TestBlacklistStore_Remove(t *testing.T) {
	store := NewBlacklistStore()
	ctx := context.Background()

	id := domain.Identity{Name: "Badguy", Realm: "Silvermoon"}
	if err := store.Add(ctx, id, ""); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := store.Remove(ctx, id); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	blacklisted, err := store.IsBlacklisted(ctx, id)
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if blacklisted {
		t.Error("Expected not blacklisted after Remove")
	}
}

func TestBlacklistStore_List(t *testing.T) {
	store := NewBlacklistStore()
	ctx := context.Background()

	if err := store.Add(ctx, domain.Identity{Name: "First", Realm: "Draenor"}, "reason one"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := store.Add(ctx, domain.Identity{Name: "Second", Realm: "Draenor"}, "reason two"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
}
