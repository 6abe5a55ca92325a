package questions

import (
	"context"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "emissary-questions-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	store, err := NewStore(tmpFile.Name(), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAddAndListAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Add(ctx, "How do I switch from marketing to data analysis?", "Career Change", "user_101", "5 years marketing experience")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if id <= 0 {
		t.Errorf("Add() id = %d, want positive", id)
	}

	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("ListAll() = %d rows, want 1", len(all))
	}

	q := all[0]
	if q.ID != id {
		t.Errorf("ID = %d, want %d", q.ID, id)
	}
	if q.QuestionText != "How do I switch from marketing to data analysis?" {
		t.Errorf("QuestionText = %q", q.QuestionText)
	}
	if q.Category != "Career Change" {
		t.Errorf("Category = %q", q.Category)
	}
	if q.AskedBy != "user_101" {
		t.Errorf("AskedBy = %q", q.AskedBy)
	}
	if q.CreatedAt.IsZero() {
		t.Error("CreatedAt should not be zero")
	}
}

func TestAdd_EmptyText(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Add(context.Background(), "   ", "", "", ""); err == nil {
		t.Error("Add() with blank text should return error")
	}
}

func TestAdd_OptionalFieldsNull(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Add(ctx, "Plain question", "", "", ""); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	q := all[0]
	if q.Category != "" || q.AskedBy != "" || q.Notes != "" {
		t.Errorf("optional fields should be empty, got %+v", q)
	}
}

func TestListAll_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Rapid inserts share a second-resolution timestamp, so the id
	// tiebreak must keep insertion order.
	for _, text := range []string{"oldest", "middle", "newest"} {
		if _, err := store.Add(ctx, text, "", "", ""); err != nil {
			t.Fatalf("Add(%q) error = %v", text, err)
		}
	}

	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListAll() = %d rows, want 3", len(all))
	}
	if all[0].QuestionText != "newest" || all[2].QuestionText != "oldest" {
		t.Errorf("ordering = [%s %s %s], want newest first",
			all[0].QuestionText, all[1].QuestionText, all[2].QuestionText)
	}
}

func TestSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Add(ctx, "How do I change my career path?", "", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Add(ctx, "What is your favorite color?", "", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Add(ctx, "Is a career in data science worth it?", "", "", ""); err != nil {
		t.Fatal(err)
	}

	results, err := store.Search(ctx, "career")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() = %d rows, want 2", len(results))
	}
	// Newest first.
	if results[0].QuestionText != "Is a career in data science worth it?" {
		t.Errorf("first result = %q, want newest match", results[0].QuestionText)
	}
	for _, q := range results {
		if q.QuestionText == "What is your favorite color?" {
			t.Error("Search() returned a non-matching row")
		}
	}
}

func TestSearch_NoMatches(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Add(ctx, "Something else entirely", "", "", ""); err != nil {
		t.Fatal(err)
	}

	results, err := store.Search(ctx, "blockchain")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() = %d rows, want 0", len(results))
	}
}

func TestListByCategory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Add(ctx, "Q1", "X", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Add(ctx, "Q2", "Y", "", ""); err != nil {
		t.Fatal(err)
	}

	rows, err := store.ListByCategory(ctx, "X")
	if err != nil {
		t.Fatalf("ListByCategory() error = %v", err)
	}
	if len(rows) != 1 || rows[0].ID != id {
		t.Errorf("ListByCategory(X) = %v, want exactly the X row", rows)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Add(ctx, "Q1", "X", "", "")
	if err != nil {
		t.Fatal(err)
	}

	deleted, err := store.Delete(ctx, id)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !deleted {
		t.Error("Delete() = false on existing row, want true")
	}

	// Second delete of the same ID reports not-found.
	deleted, err = store.Delete(ctx, id)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deleted {
		t.Error("Delete() = true on already-deleted row, want false")
	}

	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("rows remaining after delete = %d, want 0 (hard delete)", len(all))
	}
}

func TestUpdateNotes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Add(ctx, "Q1", "", "", "original")
	if err != nil {
		t.Fatal(err)
	}

	updated, err := store.UpdateNotes(ctx, id, "refined notes")
	if err != nil {
		t.Fatalf("UpdateNotes() error = %v", err)
	}
	if !updated {
		t.Error("UpdateNotes() = false on existing row, want true")
	}

	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if all[0].Notes != "refined notes" {
		t.Errorf("Notes = %q", all[0].Notes)
	}

	updated, err = store.UpdateNotes(ctx, 99999, "nope")
	if err != nil {
		t.Fatalf("UpdateNotes() error = %v", err)
	}
	if updated {
		t.Error("UpdateNotes() = true on missing row, want false")
	}
}

func TestCategoryStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, cat := range []string{"A", "A", "B"} {
		if _, err := store.Add(ctx, "Q "+cat, cat, "", ""); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := store.CategoryStats(ctx)
	if err != nil {
		t.Fatalf("CategoryStats() error = %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("CategoryStats() = %d entries, want 2", len(stats))
	}
	if stats[0].Category != "A" || stats[0].Count != 2 {
		t.Errorf("stats[0] = %+v, want {A 2}", stats[0])
	}
	if stats[1].Category != "B" || stats[1].Count != 1 {
		t.Errorf("stats[1] = %+v, want {B 1}", stats[1])
	}
}

func TestSearch_AfterDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Add(ctx, "A question about golang", "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Delete(ctx, id); err != nil {
		t.Fatal(err)
	}

	results, err := store.Search(ctx, "golang")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() after delete = %d rows, want 0", len(results))
	}
}
