package sqlite

import (
	"context"
	"testing"
)

func TestMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewSQLiteClient(ctx, dir, "test.db")
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// a second open against the same file must not re-apply anything
	second, err := NewSQLiteClient(ctx, dir, "test.db")
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	tables := []string{"users", "chats", "warnings", "gbans", "notes", "filters", "settings"}
	for _, table := range tables {
		var count int
		if err := second.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM `+table); err != nil {
			t.Fatalf("table %s missing after reopen: %v", table, err)
		}
	}
}
