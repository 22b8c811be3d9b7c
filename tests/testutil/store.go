package testutil

import (
	"testing"
	"time"

	"github.com/nhle/inbox-triage/internal/model"
	"github.com/nhle/inbox-triage/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// Thread returns a thread fixture whose last message is ageMinutes old
// relative to a fixed reference instant.
func Thread(id string, ageMinutes int) model.Thread {
	ts := model.FormatTimestamp(Reference.Add(-time.Duration(ageMinutes) * time.Minute))
	return model.Thread{
		ID:              id,
		Subject:         "Subject " + id,
		LastMessageDate: ts,
		FromAddress:     "client@example.com",
		ToAddresses:     []string{"ops@fieldco.com"},
	}
}

// Reference is the fixed "now" used by fixtures.
var Reference = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
