package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/tharanis13/campus-lost-found/internal/db"
	"github.com/tharanis13/campus-lost-found/internal/model"
)

// createTestUser inserts a user and returns it. Shared by the store tests.
func createTestUser(t *testing.T, database *sql.DB, name, email string) *model.User {
	t.Helper()
	user, err := CreateUser(context.Background(), database, name, email, "C-"+name, "hash", model.RoleStudent)
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", name, err)
	}
	return user
}

// createTestItem inserts an item with sensible defaults.
func createTestItem(t *testing.T, database *sql.DB, reporterID int64, n NewItem) *model.Item {
	t.Helper()
	if n.Title == "" {
		n.Title = "Test Item"
	}
	if n.Description == "" {
		n.Description = "A test item"
	}
	if n.Category == "" {
		n.Category = "electronics"
	}
	if n.Type == "" {
		n.Type = model.TypeLost
	}
	if n.Location == "" {
		n.Location = "Library"
	}
	if n.Date.IsZero() {
		n.Date = time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	}
	n.ReporterID = reporterID

	item, err := CreateItem(context.Background(), database, n)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return item
}

func TestCreateAndGetItemRoundTrip(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	reporter := createTestUser(t, database, "alice", "alice@campus.edu")
	date := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	item := createTestItem(t, database, reporter.ID, NewItem{
		Title:       "Black Phone",
		Description: "Samsung with a cracked corner",
		Category:    "electronics",
		Type:        model.TypeLost,
		Location:    "Main Library, 2nd floor",
		Date:        date,
		UniqueMarks: "sticker on the back",
		Images:      []string{"/uploads/a.jpg", "/uploads/b.jpg"},
	})

	got, err := GetItem(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got == nil {
		t.Fatal("expected item, got nil")
	}

	if got.Title != "Black Phone" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Description != "Samsung with a cracked corner" {
		t.Errorf("description = %q", got.Description)
	}
	if got.Category != "electronics" {
		t.Errorf("category = %q", got.Category)
	}
	if got.Type != model.TypeLost {
		t.Errorf("type = %q", got.Type)
	}
	if got.Location != "Main Library, 2nd floor" {
		t.Errorf("location = %q", got.Location)
	}
	if !got.Date.Equal(date) {
		t.Errorf("date = %v, want %v", got.Date, date)
	}
	if got.UniqueMarks != "sticker on the back" {
		t.Errorf("unique marks = %q", got.UniqueMarks)
	}
	if got.Status != model.StatusActive {
		t.Errorf("expected default status active, got %q", got.Status)
	}
	if len(got.Images) != 2 || got.Images[0] != "/uploads/a.jpg" || got.Images[1] != "/uploads/b.jpg" {
		t.Errorf("images = %v", got.Images)
	}
	if got.Reporter == nil || got.Reporter.Name != "alice" {
		t.Errorf("reporter not populated: %+v", got.Reporter)
	}
	if got.Claimer != nil {
		t.Errorf("expected no claimer, got %+v", got.Claimer)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected server-assigned created_at")
	}
}

func TestGetItemMissing(t *testing.T) {
	database := db.NewTestDB(t)

	item, err := GetItem(context.Background(), database, 12345)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if item != nil {
		t.Error("expected nil for missing item")
	}
}

func TestListItemsFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	reporter := createTestUser(t, database, "bob", "bob@campus.edu")
	createTestItem(t, database, reporter.ID, NewItem{Title: "Lost Phone", Type: model.TypeLost, Category: "electronics"})
	createTestItem(t, database, reporter.ID, NewItem{Title: "Found Keys", Type: model.TypeFound, Category: "keys"})
	createTestItem(t, database, reporter.ID, NewItem{Title: "Found Charger", Type: model.TypeFound, Category: "electronics"})

	lost, total, err := ListItems(ctx, database, ListFilter{Type: model.TypeLost})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if total != 1 || len(lost) != 1 || lost[0].Title != "Lost Phone" {
		t.Errorf("lost filter: total=%d items=%v", total, lost)
	}

	electronics, total, err := ListItems(ctx, database, ListFilter{Category: "electronics"})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if total != 2 || len(electronics) != 2 {
		t.Errorf("category filter: total=%d len=%d", total, len(electronics))
	}

	all, total, err := ListItems(ctx, database, ListFilter{})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Errorf("unfiltered: total=%d len=%d", total, len(all))
	}
}

func TestListItemsSearch(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	reporter := createTestUser(t, database, "carol", "carol@campus.edu")
	createTestItem(t, database, reporter.ID, NewItem{Title: "Blue Backpack", Description: "Nike backpack with laptop sleeve", Category: "bags"})
	createTestItem(t, database, reporter.ID, NewItem{Title: "Calculus Textbook", Description: "Stewart 8th edition", Category: "books"})

	items, total, err := ListItems(ctx, database, ListFilter{Search: "backpack"})
	if err != nil {
		t.Fatalf("ListItems search: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].Title != "Blue Backpack" {
		t.Errorf("search: total=%d items=%v", total, items)
	}

	// Punctuation must not break the query.
	if _, _, err := ListItems(ctx, database, ListFilter{Search: `"(unbalanced OR NEAR`}); err != nil {
		t.Errorf("search with FTS metacharacters: %v", err)
	}

	// A search with no usable tokens matches nothing.
	items, total, err = ListItems(ctx, database, ListFilter{Search: "!!!"})
	if err != nil {
		t.Fatalf("ListItems empty search: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Errorf("expected no results, got total=%d", total)
	}
}

func TestListItemsPagination(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	reporter := createTestUser(t, database, "dave", "dave@campus.edu")
	for i := 0; i < 5; i++ {
		createTestItem(t, database, reporter.ID, NewItem{Title: "Item", Description: "number"})
	}

	page1, total, err := ListItems(ctx, database, ListFilter{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if total != 5 || len(page1) != 2 {
		t.Errorf("page 1: total=%d len=%d", total, len(page1))
	}

	page3, _, err := ListItems(ctx, database, ListFilter{Page: 3, Limit: 2})
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(page3) != 1 {
		t.Errorf("page 3: len=%d, want 1", len(page3))
	}
}

func TestUpdateItemStatusTransitions(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	reporter := createTestUser(t, database, "erin", "erin@campus.edu")
	item := createTestItem(t, database, reporter.ID, NewItem{})

	// active -> returned skips the claimed state.
	if _, err := UpdateItemStatus(ctx, database, item.ID, model.StatusReturned); err != ErrBadTransition {
		t.Errorf("expected ErrBadTransition, got %v", err)
	}

	updated, err := UpdateItemStatus(ctx, database, item.ID, model.StatusClaimed)
	if err != nil {
		t.Fatalf("UpdateItemStatus: %v", err)
	}
	if updated.Status != model.StatusClaimed {
		t.Errorf("status = %q", updated.Status)
	}

	updated, err = UpdateItemStatus(ctx, database, item.ID, model.StatusReturned)
	if err != nil {
		t.Fatalf("UpdateItemStatus: %v", err)
	}
	if updated.Status != model.StatusReturned {
		t.Errorf("status = %q", updated.Status)
	}

	// Archived is terminal.
	if _, err := UpdateItemStatus(ctx, database, item.ID, model.StatusArchived); err != nil {
		t.Fatalf("archiving: %v", err)
	}
	if _, err := UpdateItemStatus(ctx, database, item.ID, model.StatusActive); err != ErrBadTransition {
		t.Errorf("expected ErrBadTransition out of archived, got %v", err)
	}

	// Missing item reports nil, nil.
	missing, err := UpdateItemStatus(ctx, database, 9999, model.StatusArchived)
	if err != nil || missing != nil {
		t.Errorf("missing item: item=%v err=%v", missing, err)
	}
}

func TestRecordMatches(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	reporter := createTestUser(t, database, "frank", "frank@campus.edu")
	item := createTestItem(t, database, reporter.ID, NewItem{})
	other := createTestItem(t, database, reporter.ID, NewItem{Type: model.TypeFound})

	if err := RecordMatches(ctx, database, item.ID, []int64{other.ID}); err != nil {
		t.Fatalf("RecordMatches: %v", err)
	}
	// Recording the same match twice is fine.
	if err := RecordMatches(ctx, database, item.ID, []int64{other.ID}); err != nil {
		t.Fatalf("RecordMatches again: %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if !got.MatchSuggested {
		t.Error("expected match_suggested to be set")
	}
	if len(got.MatchedIDs) != 1 || got.MatchedIDs[0] != other.ID {
		t.Errorf("matched ids = %v", got.MatchedIDs)
	}
}
