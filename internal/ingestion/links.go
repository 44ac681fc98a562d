package ingestion

import (
	"context"
	"fmt"
	"log/slog"
)

// repairBatch is how many stored links one repair pass looks at.
const repairBatch = 1000

type LinkUpdate struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
}

type LinkRepair struct {
	Total   int          `json:"total"`
	Changed int          `json:"changed"`
	DryRun  bool         `json:"dry_run"`
	Updates []LinkUpdate `json:"updates"`
}

// RepairLinks rewrites stored Google News redirect links to the publisher
// URL they carry. With dryRun set the store is left untouched and the
// would-be updates are only reported.
func (m *Manager) RepairLinks(ctx context.Context, dryRun bool) (LinkRepair, error) {
	rows, err := m.store.WrappedLinks(ctx, repairBatch)
	if err != nil {
		return LinkRepair{}, fmt.Errorf("error loading wrapped links: %w", err)
	}

	res := LinkRepair{Total: len(rows), DryRun: dryRun, Updates: []LinkUpdate{}}
	for _, r := range rows {
		target := UnwrapLink(r.Link)
		if target == "" || target == r.Link {
			continue
		}
		if !dryRun {
			if err := m.store.UpdateLink(ctx, r.Key, target); err != nil {
				return res, fmt.Errorf("error repairing link of %s: %w", r.ID, err)
			}
			slog.Info("repaired link", "id", r.ID)
		}
		res.Changed++
		res.Updates = append(res.Updates, LinkUpdate{ID: r.ID, From: r.Link, To: target})
	}

	slog.Info("link repair complete", "changed", res.Changed, "total", res.Total, "dry_run", dryRun)
	return res, nil
}
