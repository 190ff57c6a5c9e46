package testsupport

import (
	"context"
	"encoding/json"
	"testing"

	"pressline/internal/config"
	"pressline/internal/content"
	"pressline/internal/store"
)

// MustOpenDB opens the configured database for tests and registers cleanup.
func MustOpenDB(t testing.TB, cfg *config.Config) *store.DB {
	t.Helper()

	db, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// MustCreateItem inserts a content item with payload encoded as JSON.
func MustCreateItem(t testing.TB, items *content.Store, contentID string, payload any) *content.Item {
	t.Helper()

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	item, err := items.Create(context.Background(), contentID, raw)
	if err != nil {
		t.Fatalf("create item %s: %v", contentID, err)
	}
	return item
}

// MustGetItem reloads an item.
func MustGetItem(t testing.TB, items *content.Store, contentID string) *content.Item {
	t.Helper()

	item, err := items.Get(context.Background(), contentID)
	if err != nil {
		t.Fatalf("get item %s: %v", contentID, err)
	}
	return item
}
