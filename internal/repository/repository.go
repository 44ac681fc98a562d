package repository

import (
	"context"
	"time"

	"github.com/mr1hm/go-incident-dedupe/internal/models"
)

// MaxListLimit caps how many incidents one List call returns.
const MaxListLimit = 1000

// IncidentStore is the storage collaborator of the ingestion pipeline. The
// store owns the schema; callers only learn which columns exist.
type IncidentStore interface {
	Columns(ctx context.Context) ([]string, error)
	Recent(ctx context.Context, since time.Time, limit int) ([]models.Incident, error)
	Insert(ctx context.Context, payload map[string]any) (string, error)
	List(ctx context.Context, filter ListFilter) (Listing, error)
	WrappedLinks(ctx context.Context, limit int) ([]LinkRow, error)
	UpdateLink(ctx context.Context, key int64, link string) error
}

// ListFilter narrows List. Zero fields do not filter. Dates are compared by
// Dhaka calendar day, both ends inclusive.
type ListFilter struct {
	From     *time.Time
	To       *time.Time
	Category string
	Division string
	Limit    int
}

// Listing is a page of stored incidents. Columns lists the exported columns
// the table has, in export order; each row maps those names to values.
type Listing struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"incidents"`
}

// LinkRow is a stored incident whose link still points at a news
// aggregator redirect. Key is the sqlite rowid.
type LinkRow struct {
	Key  int64
	ID   string
	Link string
}
