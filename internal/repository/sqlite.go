package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mr1hm/go-incident-dedupe/internal/models"
	"github.com/mr1hm/go-incident-dedupe/internal/temporal"
)

var (
	ErrNoColumns = errors.New("payload has no known columns")

	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

	// Fields the matcher reads from stored incidents.
	recentFields = []string{"id", "title", "category", "event_date", "district"}

	// Fields exported by List, in output order.
	listFields = []string{
		"id", "category", "event_date", "division", "district", "title",
		"reported_dead", "reported_injured", "deaths", "injuries", "confidence",
		"source_count", "link",
	}

	storedDateLayouts = []string{
		"2006-01-02",
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
)

// ValidTableName reports whether name can be used as an unquoted identifier.
func ValidTableName(name string) bool {
	return identPattern.MatchString(name)
}

type column struct {
	name     string
	declType string
}

// SQLiteDB works against an existing incidents table and adapts to whatever
// columns it has.
type SQLiteDB struct {
	db    *sql.DB
	table string
}

func NewSQLiteDB(path, table string) (*SQLiteDB, error) {
	if !ValidTableName(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// A single connection keeps :memory: databases and writes consistent.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	return &SQLiteDB{
		db:    db,
		table: table,
	}, nil
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) columns(ctx context.Context) ([]column, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", s.table))
	if err != nil {
		return nil, fmt.Errorf("error reading table info: %w", err)
	}
	defer rows.Close()

	var cols []column
	for rows.Next() {
		var (
			cid       int
			name      string
			declType  string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &declType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("error scanning table info: %w", err)
		}
		cols = append(cols, column{name: name, declType: strings.ToUpper(declType)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading table info: %w", err)
	}
	return cols, nil
}

// Columns lists the table's column names in declaration order. A missing
// table yields no columns.
func (s *SQLiteDB) Columns(ctx context.Context) ([]string, error) {
	cols, err := s.columns(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names, nil
}

// Recent returns incidents dated on or after since, newest first, ties in
// insertion order. Fields the table lacks are left empty; dates that cannot
// be parsed are treated as absent.
func (s *SQLiteDB) Recent(ctx context.Context, since time.Time, limit int) ([]models.Incident, error) {
	names, err := s.Columns(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}

	selected := []string{"rowid"}
	for _, f := range recentFields {
		if slices.Contains(names, f) {
			selected = append(selected, f)
		}
	}
	hasDate := slices.Contains(names, "event_date")

	query := fmt.Sprintf("SELECT %s FROM %s", quoteAll(selected), s.table)
	var args []any
	if hasDate {
		query += ` WHERE "event_date" >= ?`
		args = append(args, temporal.Day(since).Format("2006-01-02"))
		query += ` ORDER BY "event_date" DESC, rowid ASC`
	} else {
		query += " ORDER BY rowid ASC"
	}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying recent incidents: %w", err)
	}
	defer rows.Close()

	var incidents []models.Incident
	for rows.Next() {
		values := make([]any, len(selected))
		ptrs := make([]any, len(selected))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("error scanning incident: %w", err)
		}

		var inc models.Incident
		for i, name := range selected {
			switch name {
			case "rowid":
				inc.ID = asString(values[i])
			case "id":
				if id := asString(values[i]); id != "" {
					inc.ID = id
				}
			case "title":
				inc.Title = asString(values[i])
			case "category":
				inc.Category = models.Category(asString(values[i]))
			case "district":
				inc.District = asString(values[i])
			case "event_date":
				inc.EventDate = parseStoredDate(values[i])
			}
		}
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading incidents: %w", err)
	}
	return incidents, nil
}

// Insert writes payload after dropping keys the table does not have. A TEXT
// id column without a supplied id gets a random UUID; integer ids are left to
// sqlite.
func (s *SQLiteDB) Insert(ctx context.Context, payload map[string]any) (string, error) {
	cols, err := s.columns(ctx)
	if err != nil {
		return "", err
	}

	known := make(map[string]column, len(cols))
	for _, c := range cols {
		known[c.name] = c
	}

	row := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		if _, ok := known[k]; ok {
			row[k] = v
		}
	}
	if len(row) == 0 {
		return "", ErrNoColumns
	}

	var generatedID string
	if idCol, ok := known["id"]; ok && !strings.Contains(idCol.declType, "INT") {
		if v, supplied := row["id"]; !supplied || asString(v) == "" {
			generatedID = uuid.NewString()
			row["id"] = generatedID
		}
	}

	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = row[k]
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table, quoteAll(keys), strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", "))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return "", fmt.Errorf("error inserting incident: %w", err)
	}

	if generatedID != "" {
		return generatedID, nil
	}
	if v, ok := row["id"]; ok {
		return asString(v), nil
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("error reading inserted id: %w", err)
	}
	return strconv.FormatInt(lastID, 10), nil
}

// List returns stored incidents newest first, capped at MaxListLimit. A
// filter on a column the table lacks matches nothing.
func (s *SQLiteDB) List(ctx context.Context, filter ListFilter) (Listing, error) {
	names, err := s.Columns(ctx)
	if err != nil {
		return Listing{}, err
	}

	var listing Listing
	for _, f := range listFields {
		if slices.Contains(names, f) {
			listing.Columns = append(listing.Columns, f)
		}
	}
	if len(listing.Columns) == 0 {
		return listing, nil
	}

	var (
		where []string
		args  []any
	)
	addFilter := func(column, op string, value any) bool {
		if !slices.Contains(names, column) {
			return false
		}
		where = append(where, fmt.Sprintf(`"%s" %s ?`, column, op))
		args = append(args, value)
		return true
	}
	if filter.From != nil && !addFilter("event_date", ">=", temporal.Day(*filter.From).Format("2006-01-02")) {
		return listing, nil
	}
	if filter.To != nil && !addFilter("event_date", "<=", temporal.Day(*filter.To).Format("2006-01-02")) {
		return listing, nil
	}
	if filter.Category != "" && !addFilter("category", "=", filter.Category) {
		return listing, nil
	}
	if filter.Division != "" && !addFilter("division", "=", filter.Division) {
		return listing, nil
	}

	limit := filter.Limit
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := fmt.Sprintf("SELECT %s FROM %s", quoteAll(listing.Columns), s.table)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if slices.Contains(names, "event_date") {
		query += ` ORDER BY "event_date" DESC, rowid ASC`
	} else {
		query += " ORDER BY rowid DESC"
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Listing{}, fmt.Errorf("error listing incidents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		values := make([]any, len(listing.Columns))
		ptrs := make([]any, len(values))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Listing{}, fmt.Errorf("error scanning incident: %w", err)
		}
		row := make(map[string]any, len(values))
		for i, name := range listing.Columns {
			row[name] = exportValue(values[i])
		}
		listing.Rows = append(listing.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Listing{}, fmt.Errorf("error reading incidents: %w", err)
	}
	return listing, nil
}

// WrappedLinks returns up to limit incidents whose link is a Google News
// redirect. Tables without a link column have none.
func (s *SQLiteDB) WrappedLinks(ctx context.Context, limit int) ([]LinkRow, error) {
	names, err := s.Columns(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(names, "link") {
		return nil, nil
	}

	idExpr := "NULL"
	if slices.Contains(names, "id") {
		idExpr = `"id"`
	}
	query := fmt.Sprintf(`SELECT rowid, %s, "link" FROM %s WHERE "link" LIKE '%%news.google.%%' ORDER BY rowid`, idExpr, s.table)
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying wrapped links: %w", err)
	}
	defer rows.Close()

	var out []LinkRow
	for rows.Next() {
		var (
			r    LinkRow
			id   any
			link any
		)
		if err := rows.Scan(&r.Key, &id, &link); err != nil {
			return nil, fmt.Errorf("error scanning link: %w", err)
		}
		r.ID = asString(id)
		if r.ID == "" {
			r.ID = strconv.FormatInt(r.Key, 10)
		}
		r.Link = asString(link)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading links: %w", err)
	}
	return out, nil
}

// UpdateLink rewrites the link of the row with the given rowid.
func (s *SQLiteDB) UpdateLink(ctx context.Context, key int64, link string) error {
	query := fmt.Sprintf(`UPDATE %s SET "link" = ? WHERE rowid = ?`, s.table)
	res, err := s.db.ExecContext(ctx, query, link, key)
	if err != nil {
		return fmt.Errorf("error updating link: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("error updating link: no row %d", key)
	}
	return nil
}

// exportValue turns driver values into JSON and CSV friendly ones.
func exportValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		if x.Location() == time.UTC && x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	default:
		return v
	}
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		if n == "rowid" {
			quoted[i] = n
			continue
		}
		quoted[i] = `"` + strings.ReplaceAll(n, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ", ")
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// parseStoredDate places date-only values at midnight in Dhaka.
func parseStoredDate(v any) *time.Time {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return nil
		}
		if x.Location() == time.UTC && x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			y, m, d := x.Date()
			t := time.Date(y, m, d, 0, 0, 0, 0, temporal.Dhaka)
			return &t
		}
		t := x.In(temporal.Dhaka)
		return &t
	case string, []byte:
		s := strings.TrimSpace(asString(x))
		if s == "" {
			return nil
		}
		for _, layout := range storedDateLayouts {
			if t, err := time.ParseInLocation(layout, s, temporal.Dhaka); err == nil {
				t = t.In(temporal.Dhaka)
				return &t
			}
		}
	}
	return nil
}
