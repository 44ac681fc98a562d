package dedupe

import (
	"strings"

	"github.com/mr1hm/go-incident-dedupe/internal/models"
)

// Snapshot is an immutable view of recent records, bucketed by category so a
// categorised candidate is only scored against records the category gate
// would let through.
type Snapshot struct {
	all        []models.Incident
	byCategory map[string][]models.Incident
}

// NewSnapshot copies records; later changes to the slice are not seen.
func NewSnapshot(records []models.Incident) *Snapshot {
	s := &Snapshot{
		all:        append([]models.Incident(nil), records...),
		byCategory: make(map[string][]models.Incident),
	}
	for _, r := range s.all {
		k := categoryKey(r.Category)
		s.byCategory[k] = append(s.byCategory[k], r)
	}
	return s
}

func (s *Snapshot) Len() int {
	return len(s.all)
}

// Candidates returns the records c can be compared with, in input order.
func (s *Snapshot) Candidates(c models.Candidate) []models.Incident {
	if c.Category == "" {
		return s.all
	}
	return s.byCategory[categoryKey(c.Category)]
}

// Match is FindMatch over the snapshot.
func (e *Engine) Match(s *Snapshot, c models.Candidate, threshold float64) (Match, bool) {
	return e.FindMatch(c, s.Candidates(c), threshold)
}

func categoryKey(c models.Category) string {
	return strings.ToLower(string(c))
}
