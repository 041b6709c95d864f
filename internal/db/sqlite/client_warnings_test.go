package sqlite

import (
	"context"
	"sync"
	"testing"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/db"
)

func newTestClient(t *testing.T) *sqliteClient {
	t.Helper()
	client, err := NewSQLiteClient(context.Background(), t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestAddWarningEscalatesExactlyOnceAtLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	for i := 1; i <= 2; i++ {
		count, escalated, err := client.AddWarning(ctx, &db.Warning{ChatID: -100, UserID: 777, IssuedBy: 55}, 3)
		if err != nil {
			t.Fatalf("warning %d: %v", i, err)
		}
		if escalated || count != i {
			t.Fatalf("warning %d: count=%d escalated=%v", i, count, escalated)
		}
	}

	count, escalated, err := client.AddWarning(ctx, &db.Warning{ChatID: -100, UserID: 777, IssuedBy: 55}, 3)
	if err != nil {
		t.Fatalf("third warning: %v", err)
	}
	if !escalated || count != 3 {
		t.Fatalf("third warning: count=%d escalated=%v", count, escalated)
	}

	warnings, err := client.GetWarnings(ctx, -100, 777)
	if err != nil {
		t.Fatalf("get warnings: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("sequence not reset after escalation: %d rows", len(warnings))
	}

	// the sequence restarts from one once the threshold fired
	count, escalated, err = client.AddWarning(ctx, &db.Warning{ChatID: -100, UserID: 777, IssuedBy: 55}, 3)
	if err != nil {
		t.Fatalf("warning after escalation: %v", err)
	}
	if escalated || count != 1 {
		t.Fatalf("post-escalation warning: count=%d escalated=%v", count, escalated)
	}
}

func TestAddWarningConcurrentIssuersEscalateOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	const issuers = 8
	var wg sync.WaitGroup
	escalations := make(chan bool, issuers)
	for i := 0; i < issuers; i++ {
		wg.Add(1)
		go func(issuer int64) {
			defer wg.Done()
			_, escalated, err := client.AddWarning(ctx, &db.Warning{ChatID: -100, UserID: 777, IssuedBy: issuer}, issuers)
			if err != nil {
				t.Errorf("concurrent warning: %v", err)
				return
			}
			escalations <- escalated
		}(int64(i + 1))
	}
	wg.Wait()
	close(escalations)

	var total int
	for escalated := range escalations {
		if escalated {
			total++
		}
	}
	if total != 1 {
		t.Fatalf("escalations = %d, want exactly 1", total)
	}

	warnings, err := client.GetWarnings(ctx, -100, 777)
	if err != nil {
		t.Fatalf("get warnings: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("leftover warnings after escalation: %d", len(warnings))
	}
}

func TestWarningsAreScopedPerChatAndUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	pairs := []struct{ chat, user int64 }{
		{-100, 777},
		{-100, 888},
		{-200, 777},
	}
	for _, p := range pairs {
		if _, _, err := client.AddWarning(ctx, &db.Warning{ChatID: p.chat, UserID: p.user, IssuedBy: 55}, 10); err != nil {
			t.Fatalf("warn %v: %v", p, err)
		}
	}

	for _, p := range pairs {
		warnings, err := client.GetWarnings(ctx, p.chat, p.user)
		if err != nil {
			t.Fatalf("get warnings %v: %v", p, err)
		}
		if len(warnings) != 1 {
			t.Fatalf("pair %v has %d warnings, want 1", p, len(warnings))
		}
	}
}

func TestResetWarningsReportsClearedCount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	for i := 0; i < 2; i++ {
		if _, _, err := client.AddWarning(ctx, &db.Warning{ChatID: -100, UserID: 777, IssuedBy: 55}, 10); err != nil {
			t.Fatalf("warn: %v", err)
		}
	}

	cleared, err := client.ResetWarnings(ctx, -100, 777)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if cleared != 2 {
		t.Fatalf("cleared = %d, want 2", cleared)
	}

	cleared, err = client.ResetWarnings(ctx, -100, 777)
	if err != nil {
		t.Fatalf("second reset: %v", err)
	}
	if cleared != 0 {
		t.Fatalf("second reset cleared = %d, want 0", cleared)
	}
}

func TestAddWarningRejectsNonPositiveLimit(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	if _, _, err := client.AddWarning(context.Background(), &db.Warning{ChatID: -100, UserID: 777}, 0); err == nil {
		t.Fatal("zero limit accepted")
	}
}
