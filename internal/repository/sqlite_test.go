package repository

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/go-incident-dedupe/internal/models"
	"github.com/mr1hm/go-incident-dedupe/internal/temporal"
)

const textIDSchema = `
	CREATE TABLE incidents (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		category TEXT,
		event_date TEXT,
		district TEXT,
		reported_dead INTEGER,
		link TEXT
	);`

func setupTestDB(t *testing.T, schema string) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(":memory:", "incidents")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	if schema != "" {
		if _, err := db.db.Exec(schema); err != nil {
			t.Fatalf("failed to create table: %v", err)
		}
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewSQLiteDB_InvalidTable(t *testing.T) {
	if _, err := NewSQLiteDB(":memory:", "incidents; DROP TABLE x"); err == nil {
		t.Error("expected error for invalid table name, got nil")
	}
}

func TestSQLiteDB_Columns(t *testing.T) {
	db := setupTestDB(t, textIDSchema)

	cols, err := db.Columns(context.Background())
	if err != nil {
		t.Fatalf("Columns failed: %v", err)
	}
	want := []string{"id", "title", "category", "event_date", "district", "reported_dead", "link"}
	if !slices.Equal(cols, want) {
		t.Errorf("expected %v, got %v", want, cols)
	}
}

func TestSQLiteDB_ColumnsMissingTable(t *testing.T) {
	db := setupTestDB(t, "")

	cols, err := db.Columns(context.Background())
	if err != nil {
		t.Fatalf("Columns failed: %v", err)
	}
	if len(cols) != 0 {
		t.Errorf("expected no columns, got %v", cols)
	}

	recent, err := db.Recent(context.Background(), time.Now(), 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 0 {
		t.Errorf("expected no incidents, got %d", len(recent))
	}
}

func TestSQLiteDB_InsertGeneratesUUID(t *testing.T) {
	db := setupTestDB(t, textIDSchema)
	ctx := context.Background()

	id, err := db.Insert(ctx, map[string]any{
		"title":         "Bus accident kills 5 in Dhaka",
		"category":      "road_accident",
		"event_date":    "2024-03-12",
		"reported_dead": 5,
		"source_count":  1, // not a column
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("expected a UUID id, got %q", id)
	}

	var title string
	var dead int
	if err := db.db.QueryRow(`SELECT title, reported_dead FROM incidents WHERE id = ?`, id).Scan(&title, &dead); err != nil {
		t.Fatalf("reading back failed: %v", err)
	}
	if title != "Bus accident kills 5 in Dhaka" || dead != 5 {
		t.Errorf("unexpected row: %q, %d", title, dead)
	}
}

func TestSQLiteDB_InsertKeepsSuppliedID(t *testing.T) {
	db := setupTestDB(t, textIDSchema)

	id, err := db.Insert(context.Background(), map[string]any{"id": "inc_7", "title": "x"})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id != "inc_7" {
		t.Errorf("expected inc_7, got %q", id)
	}
}

func TestSQLiteDB_InsertIntegerID(t *testing.T) {
	db := setupTestDB(t, `CREATE TABLE incidents (id INTEGER PRIMARY KEY AUTOINCREMENT, title TEXT)`)
	ctx := context.Background()

	first, err := db.Insert(ctx, map[string]any{"title": "one"})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	second, err := db.Insert(ctx, map[string]any{"title": "two"})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if first != "1" || second != "2" {
		t.Errorf("expected ids 1 and 2, got %q and %q", first, second)
	}
}

func TestSQLiteDB_InsertNoKnownColumns(t *testing.T) {
	db := setupTestDB(t, textIDSchema)

	_, err := db.Insert(context.Background(), map[string]any{"unknown": 1})
	if !errors.Is(err, ErrNoColumns) {
		t.Errorf("expected ErrNoColumns, got %v", err)
	}
}

func TestSQLiteDB_DuplicateInsert(t *testing.T) {
	db := setupTestDB(t, textIDSchema)
	ctx := context.Background()

	if _, err := db.Insert(ctx, map[string]any{"id": "dup", "title": "x"}); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	if _, err := db.Insert(ctx, map[string]any{"id": "dup", "title": "x"}); err == nil {
		t.Error("expected error for duplicate id, got nil")
	}
}

func TestSQLiteDB_Recent(t *testing.T) {
	db := setupTestDB(t, textIDSchema)
	ctx := context.Background()

	rows := []map[string]any{
		{"id": "old", "title": "old fire", "category": "fire", "event_date": "2024-02-01"},
		{"id": "a", "title": "bus crash", "category": "road_accident", "event_date": "2024-03-10", "district": "Dhaka"},
		{"id": "b", "title": "factory fire", "category": "fire", "event_date": "2024-03-12"},
		{"id": "c", "title": "second on same day", "category": "fire", "event_date": "2024-03-12"},
		{"id": "bad", "title": "bad date", "event_date": "not a date"},
		{"id": "nodate", "title": "no date"},
	}
	for _, r := range rows {
		if _, err := db.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	since := time.Date(2024, 3, 5, 12, 0, 0, 0, temporal.Dhaka)
	got, err := db.Recent(ctx, since, 100)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}

	var ids []string
	for _, inc := range got {
		ids = append(ids, inc.ID)
	}
	// "not a date" sorts after any ISO date as text, so it passes the filter.
	want := []string{"bad", "b", "c", "a"}
	if !slices.Equal(ids, want) {
		t.Fatalf("expected ids %v, got %v", want, ids)
	}

	if got[0].EventDate != nil {
		t.Errorf("expected unparseable date to be absent, got %v", got[0].EventDate)
	}
	b := got[1]
	if b.Category != models.CategoryFire || b.Title != "factory fire" {
		t.Errorf("unexpected incident: %+v", b)
	}
	wantDate := time.Date(2024, 3, 12, 0, 0, 0, 0, temporal.Dhaka)
	if b.EventDate == nil || !b.EventDate.Equal(wantDate) {
		t.Errorf("expected event date %v, got %v", wantDate, b.EventDate)
	}
	if got[3].District != "Dhaka" {
		t.Errorf("expected district Dhaka, got %q", got[3].District)
	}

	limited, err := db.Recent(ctx, since, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 incidents with limit, got %d", len(limited))
	}
}

func TestSQLiteDB_RecentSparseSchema(t *testing.T) {
	db := setupTestDB(t, `CREATE TABLE incidents (title TEXT)`)
	ctx := context.Background()

	for _, title := range []string{"first", "second"} {
		if _, err := db.Insert(ctx, map[string]any{"title": title, "category": "fire"}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := db.Recent(ctx, time.Now(), 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 incidents, got %d", len(got))
	}
	if got[0].ID != "1" || got[0].Title != "first" {
		t.Errorf("expected rowid-based id 1 for first, got %+v", got[0])
	}
	if got[0].Category != "" || got[0].EventDate != nil {
		t.Errorf("expected absent fields to stay empty, got %+v", got[0])
	}
}

func TestParseStoredDate(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  *time.Time
	}{
		{"nil", nil, nil},
		{"empty", "", nil},
		{"garbage", "yesterday-ish", nil},
		{"date only", "2024-03-12", ptr(time.Date(2024, 3, 12, 0, 0, 0, 0, temporal.Dhaka))},
		{"rfc3339", "2024-03-12T20:00:00Z", ptr(time.Date(2024, 3, 13, 2, 0, 0, 0, temporal.Dhaka))},
		{"driver date", time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), ptr(time.Date(2024, 3, 12, 0, 0, 0, 0, temporal.Dhaka))},
		{"zero time", time.Time{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseStoredDate(tt.input)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("expected nil, got %v", *got)
			case tt.want != nil && (got == nil || !got.Equal(*tt.want)):
				t.Errorf("expected %v, got %v", *tt.want, got)
			}
		})
	}
}

func ptr(t time.Time) *time.Time {
	return &t
}

func seedListing(t *testing.T, db *SQLiteDB) {
	t.Helper()
	rows := []map[string]any{
		{"id": "a", "title": "বাস দুর্ঘটনা", "category": "road_accident", "event_date": "2024-03-10", "district": "Dhaka", "reported_dead": 5},
		{"id": "b", "title": "factory fire", "category": "fire", "event_date": "2024-03-12"},
		{"id": "c", "title": "market fire", "category": "fire", "event_date": "2024-03-14"},
		{"id": "d", "title": "old flood", "category": "flood", "event_date": "2024-01-01"},
	}
	for _, r := range rows {
		if _, err := db.Insert(context.Background(), r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
}

func listIDs(l Listing) []string {
	var ids []string
	for _, r := range l.Rows {
		ids = append(ids, asString(r["id"]))
	}
	return ids
}

func TestSQLiteDB_List(t *testing.T) {
	db := setupTestDB(t, textIDSchema)
	seedListing(t, db)
	ctx := context.Background()

	all, err := db.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	wantCols := []string{"id", "category", "event_date", "district", "title", "reported_dead", "link"}
	if !slices.Equal(all.Columns, wantCols) {
		t.Errorf("expected columns %v, got %v", wantCols, all.Columns)
	}
	if ids := listIDs(all); !slices.Equal(ids, []string{"c", "b", "a", "d"}) {
		t.Errorf("expected newest first, got %v", ids)
	}
	first := all.Rows[2]
	if first["title"] != "বাস দুর্ঘটনা" || first["reported_dead"] != int64(5) || first["district"] != "Dhaka" {
		t.Errorf("unexpected row: %v", first)
	}
	if all.Rows[0]["district"] != nil {
		t.Errorf("expected NULL district to stay nil, got %v", all.Rows[0]["district"])
	}
}

func TestSQLiteDB_ListFilters(t *testing.T) {
	db := setupTestDB(t, textIDSchema)
	seedListing(t, db)
	ctx := context.Background()

	from := time.Date(2024, 3, 11, 0, 0, 0, 0, temporal.Dhaka)
	to := time.Date(2024, 3, 13, 0, 0, 0, 0, temporal.Dhaka)

	tests := []struct {
		name   string
		filter ListFilter
		want   []string
	}{
		{"from", ListFilter{From: &from}, []string{"c", "b"}},
		{"to inclusive", ListFilter{To: &to}, []string{"b", "a", "d"}},
		{"range", ListFilter{From: &from, To: &to}, []string{"b"}},
		{"category", ListFilter{Category: "fire"}, []string{"c", "b"}},
		{"limit", ListFilter{Limit: 2}, []string{"c", "b"}},
		{"missing column matches nothing", ListFilter{Division: "Dhaka"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if ids := listIDs(got); !slices.Equal(ids, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, ids)
			}
		})
	}
}

func TestSQLiteDB_ListMissingTable(t *testing.T) {
	db := setupTestDB(t, "")

	got, err := db.List(context.Background(), ListFilter{Category: "fire"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got.Columns) != 0 || len(got.Rows) != 0 {
		t.Errorf("expected empty listing, got %+v", got)
	}
}

func TestSQLiteDB_WrappedLinks(t *testing.T) {
	db := setupTestDB(t, textIDSchema)
	ctx := context.Background()

	for _, r := range []map[string]any{
		{"id": "plain", "title": "x", "link": "https://example.com/a"},
		{"id": "wrapped", "title": "y", "link": "https://NEWS.GOOGLE.com/rss/articles/x?url=https://example.com/b"},
		{"id": "nolink", "title": "z"},
	} {
		if _, err := db.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	rows, err := db.WrappedLinks(ctx, 10)
	if err != nil {
		t.Fatalf("WrappedLinks failed: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "wrapped" || rows[0].Key != 2 {
		t.Fatalf("expected only the wrapped row, got %+v", rows)
	}

	if err := db.UpdateLink(ctx, rows[0].Key, "https://example.com/b"); err != nil {
		t.Fatalf("UpdateLink failed: %v", err)
	}
	var link string
	if err := db.db.QueryRow(`SELECT link FROM incidents WHERE id = 'wrapped'`).Scan(&link); err != nil {
		t.Fatalf("reading back failed: %v", err)
	}
	if link != "https://example.com/b" {
		t.Errorf("expected updated link, got %q", link)
	}

	if err := db.UpdateLink(ctx, 99, "x"); err == nil {
		t.Error("expected error updating a missing row, got nil")
	}
}

func TestSQLiteDB_WrappedLinksWithoutLinkColumn(t *testing.T) {
	db := setupTestDB(t, `CREATE TABLE incidents (title TEXT)`)

	rows, err := db.WrappedLinks(context.Background(), 10)
	if err != nil {
		t.Fatalf("WrappedLinks failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %+v", rows)
	}
}
