package storage

import (
	"context"
	"testing"
	"time"

	"github.com/hammamikhairi/announcer/internal/domain"
	"github.com/hammamikhairi/announcer/internal/logger"
)

func TestMemoryStoreCRUD(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	store := NewMemoryStore(log)
	ctx := context.Background()

	a := domain.Announcement{
		ID:        "morning",
		Template:  "Good morning, platform {p}",
		Variables: map[string]string{"p": "1"},
		PlayTime:  time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		Repeat:    domain.RepeatDaily,
		Priority:  domain.PriorityScheduled,
	}

	// Save.
	if err := store.Save(ctx, a); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Load.
	loaded, err := store.Load(ctx, "morning")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Template != a.Template {
		t.Fatalf("expected template %q, got %q", a.Template, loaded.Template)
	}

	// Load nonexistent.
	_, err = store.Load(ctx, "nonexistent")
	if err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// List.
	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 announcement, got %d", len(all))
	}

	// Delete.
	if err := store.Delete(ctx, "morning"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// Delete again.
	if err := store.Delete(ctx, "morning"); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestMemoryStoreRejectsMissingID(t *testing.T) {
	store := NewMemoryStore(logger.New(logger.LevelOff, nil))
	if err := store.Save(context.Background(), domain.Announcement{Template: "x"}); err != domain.ErrInvalidAnnouncement {
		t.Fatalf("expected ErrInvalidAnnouncement, got %v", err)
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	store := NewMemoryStore(logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	vars := map[string]string{"p": "1"}
	if err := store.Save(ctx, domain.Announcement{ID: "a", Variables: vars}); err != nil {
		t.Fatalf("save: %v", err)
	}
	vars["p"] = "2"

	loaded, _ := store.Load(ctx, "a")
	if loaded.Variables["p"] != "1" {
		t.Fatalf("store shares caller map: got %q", loaded.Variables["p"])
	}
	loaded.Variables["p"] = "3"

	again, _ := store.Load(ctx, "a")
	if again.Variables["p"] != "1" {
		t.Fatalf("store shares returned map: got %q", again.Variables["p"])
	}
}

func TestMemoryStoreListOrder(t *testing.T) {
	store := NewMemoryStore(logger.New(logger.LevelOff, nil))
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	for _, a := range []domain.Announcement{
		{ID: "A", Priority: 1, PlayTime: base},
		{ID: "B", Priority: 5, PlayTime: base.Add(5 * time.Minute)},
		{ID: "C", Priority: 5, PlayTime: base.Add(time.Minute)},
		{ID: "D", Priority: 1, PlayTime: base},
	} {
		if err := store.Save(ctx, a); err != nil {
			t.Fatalf("save %s: %v", a.ID, err)
		}
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var ids []string
	for _, a := range list {
		ids = append(ids, a.ID)
	}
	want := []string{"C", "B", "A", "D"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, ids)
		}
	}
}
