package sqlite

import (
	"context"
	"testing"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/db"
)

func TestNotesAreCaseInsensitiveByName(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if err := client.SaveNote(ctx, &db.Note{ChatID: -100, Name: "Rules", Content: "be nice", CreatedBy: 55}); err != nil {
		t.Fatalf("save note: %v", err)
	}

	note, err := client.GetNote(ctx, -100, "RULES")
	if err != nil {
		t.Fatalf("get note: %v", err)
	}
	if note == nil || note.Content != "be nice" {
		t.Fatalf("case-insensitive lookup failed: %#v", note)
	}

	// saving under a different casing overwrites, not duplicates
	if err := client.SaveNote(ctx, &db.Note{ChatID: -100, Name: "rules", Content: "be kind", CreatedBy: 55}); err != nil {
		t.Fatalf("overwrite note: %v", err)
	}
	notes, err := client.GetNotes(ctx, -100)
	if err != nil {
		t.Fatalf("get notes: %v", err)
	}
	if len(notes) != 1 || notes[0].Content != "be kind" {
		t.Fatalf("overwrite produced %#v", notes)
	}
}

func TestNotesAreScopedPerChat(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if err := client.SaveNote(ctx, &db.Note{ChatID: -100, Name: "faq", Content: "chat one"}); err != nil {
		t.Fatalf("save note: %v", err)
	}
	note, err := client.GetNote(ctx, -200, "faq")
	if err != nil {
		t.Fatalf("get note: %v", err)
	}
	if note != nil {
		t.Fatalf("note leaked across chats: %#v", note)
	}
}

func TestDeleteNoteReportsExistence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	existed, err := client.DeleteNote(ctx, -100, "faq")
	if err != nil {
		t.Fatalf("delete missing note: %v", err)
	}
	if existed {
		t.Fatal("missing note reported as existed")
	}

	if err := client.SaveNote(ctx, &db.Note{ChatID: -100, Name: "faq", Content: "x"}); err != nil {
		t.Fatalf("save note: %v", err)
	}
	existed, err = client.DeleteNote(ctx, -100, "FAQ")
	if err != nil {
		t.Fatalf("delete note: %v", err)
	}
	if !existed {
		t.Fatal("existing note reported as missing")
	}
}

func TestFiltersKeepInsertionOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	names := []string{"zebra", "apple", "mango"}
	for _, name := range names {
		if err := client.SaveFilter(ctx, &db.Filter{ChatID: -100, Name: name, Content: name + " reply"}); err != nil {
			t.Fatalf("save filter %s: %v", name, err)
		}
	}

	filters, err := client.GetFilters(ctx, -100)
	if err != nil {
		t.Fatalf("get filters: %v", err)
	}
	if len(filters) != len(names) {
		t.Fatalf("filters = %d, want %d", len(filters), len(names))
	}
	for i, name := range names {
		if filters[i].Name != name {
			t.Fatalf("filter order broken: got %q at %d, want %q", filters[i].Name, i, name)
		}
	}
}

func TestSaveFilterOverwriteKeepsOriginalPosition(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	for _, name := range []string{"first", "second"} {
		if err := client.SaveFilter(ctx, &db.Filter{ChatID: -100, Name: name, Content: "v1"}); err != nil {
			t.Fatalf("save filter %s: %v", name, err)
		}
	}
	if err := client.SaveFilter(ctx, &db.Filter{ChatID: -100, Name: "first", Content: "v2"}); err != nil {
		t.Fatalf("overwrite filter: %v", err)
	}

	filters, err := client.GetFilters(ctx, -100)
	if err != nil {
		t.Fatalf("get filters: %v", err)
	}
	if len(filters) != 2 || filters[0].Name != "first" || filters[0].Content != "v2" {
		t.Fatalf("overwrite moved or duplicated the filter: %#v", filters)
	}
}

func TestSettingsRoundTripAndDefault(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	value, err := client.GetSetting(ctx, -100, db.SettingWarnLimit)
	if err != nil {
		t.Fatalf("get unset setting: %v", err)
	}
	if value != "" {
		t.Fatalf("unset setting = %q", value)
	}

	if err := client.SetSetting(ctx, -100, db.SettingWarnLimit, "5"); err != nil {
		t.Fatalf("set setting: %v", err)
	}
	if err := client.SetSetting(ctx, -100, db.SettingWarnLimit, "7"); err != nil {
		t.Fatalf("update setting: %v", err)
	}

	value, err = client.GetSetting(ctx, -100, db.SettingWarnLimit)
	if err != nil {
		t.Fatalf("get setting: %v", err)
	}
	if value != "7" {
		t.Fatalf("setting = %q, want 7", value)
	}
}
