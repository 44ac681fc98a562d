package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mr1hm/go-incident-dedupe/internal/config"
	"github.com/mr1hm/go-incident-dedupe/internal/dedupe"
	"github.com/mr1hm/go-incident-dedupe/internal/metrics"
	"github.com/mr1hm/go-incident-dedupe/internal/models"
	"github.com/mr1hm/go-incident-dedupe/internal/repository"
	"github.com/mr1hm/go-incident-dedupe/internal/stream"
	"github.com/mr1hm/go-incident-dedupe/internal/worker"
)

// Manager runs batches of feed items through the matcher and writes the new
// incidents to the store.
type Manager struct {
	cfg         *config.Config
	store       repository.IncidentStore
	engine      *dedupe.Engine
	broadcaster *stream.Broadcaster
	metrics     *metrics.Metrics
	seen        *expirable.LRU[string, string]
	now         func() time.Time

	// Serializes inserts so concurrent workers and batches cannot both insert
	// the same incident.
	insertMu sync.Mutex
	// Incidents inserted by any batch within the recent window. Guarded by
	// insertMu.
	accepted []acceptedIncident
}

type acceptedIncident struct {
	incident models.Incident
	at       time.Time
}

// NewManager wires the collaborators together. broadcaster and m may be nil.
func NewManager(cfg *config.Config, store repository.IncidentStore, broadcaster *stream.Broadcaster, m *metrics.Metrics) *Manager {
	return &Manager{
		cfg:         cfg,
		store:       store,
		engine:      dedupe.Default(),
		broadcaster: broadcaster,
		metrics:     m,
		seen:        expirable.NewLRU[string, string](cfg.Seen.Size, nil, cfg.Seen.TTL),
		now:         time.Now,
	}
}

type job struct {
	index  int
	source string
	item   models.FeedItem
}

// batch is the state shared by the workers of one Ingest call.
type batch struct {
	snapshot *dedupe.Snapshot
	columns  []string
	now      time.Time
	// Dry-run acceptances of this batch. Guarded by Manager.insertMu.
	pending   []models.Incident
	decisions []models.Decision
}

// Ingest decides every item of sources against one snapshot of recent
// incidents. At most ItemsPerSource items are taken from each source, and
// items whose link was already handled recently are skipped. The returned
// decisions follow input order. Errors from individual items are reported in
// their decision; only failures to load the snapshot abort the batch.
func (m *Manager) Ingest(ctx context.Context, sources []models.Source) ([]models.Decision, error) {
	start := time.Now()
	now := m.now()

	columns, err := m.store.Columns(ctx)
	if err != nil {
		return nil, fmt.Errorf("error discovering columns: %w", err)
	}

	since := now.AddDate(0, 0, -m.cfg.Match.RecentDays)
	recent, err := m.store.Recent(ctx, since, m.cfg.Match.RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("error loading recent incidents: %w", err)
	}

	var jobs []job
	for _, src := range sources {
		items := src.Items
		if len(items) > m.cfg.Match.ItemsPerSource {
			items = items[:m.cfg.Match.ItemsPerSource]
		}
		for _, item := range items {
			if link := UnwrapLink(item.Link); link != "" && m.seen.Contains(link) {
				slog.Debug("skipping seen link", "source", src.Name, "link", link)
				m.metrics.SeenSkipped()
				continue
			}
			jobs = append(jobs, job{index: len(jobs), source: src.Name, item: item})
		}
	}

	b := &batch{
		snapshot:  dedupe.NewSnapshot(recent),
		columns:   columns,
		now:       now,
		decisions: make([]models.Decision, len(jobs)),
	}

	pool := worker.NewWorkerPool("ingest", m.cfg.Worker.Count, m.cfg.Worker.BufferSize, func(ctx context.Context, j job) error {
		d, err := m.decide(ctx, b, j)
		b.decisions[j.index] = d
		return err
	})
	pool.Start(ctx)
	for _, j := range jobs {
		if !pool.Submit(ctx, j) {
			break
		}
	}
	pool.Stop()

	// Jobs left unprocessed after cancellation have no status yet.
	for i := range b.decisions {
		if b.decisions[i].Status == "" {
			j := jobs[i]
			b.decisions[i] = models.Decision{
				Source: j.source,
				Status: models.DecisionError,
				Title:  j.item.Title,
				Error:  "not processed",
			}
			if err := context.Cause(ctx); err != nil {
				b.decisions[i].Error = err.Error()
			}
		}
		m.publish(b.decisions[i])
	}

	m.metrics.ObserveBatch(start, b.snapshot.Len())
	slog.Info("ingest batch complete", "sources", len(sources), "items", len(jobs), "recent", b.snapshot.Len())

	return b.decisions, nil
}

func (m *Manager) decide(ctx context.Context, b *batch, j job) (models.Decision, error) {
	row := MakeRow(j.item, b.now)
	cand := row.Candidate()
	d := models.Decision{Source: j.source, Title: row.Title}

	if match, ok := m.engine.Match(b.snapshot, cand, m.cfg.Match.Threshold); ok {
		m.markSeen(row.Link, match.Incident.ID)
		d.Status = models.DecisionDeduped
		d.ID = match.Incident.ID
		d.Score = match.Score
		slog.Info("deduped", "source", j.source, "id", d.ID, "score", d.Score, "title", truncate(row.Title, 70))
		return d, nil
	}

	m.insertMu.Lock()
	defer m.insertMu.Unlock()

	// Incidents accepted after this batch took its snapshot, here or in a
	// concurrent batch.
	since := b.now.AddDate(0, 0, -m.cfg.Match.RecentDays)
	records := append(m.acceptedSince(since), b.pending...)
	if match, ok := m.engine.FindMatch(cand, records, m.cfg.Match.Threshold); ok {
		if match.Incident.ID != "" {
			m.markSeen(row.Link, match.Incident.ID)
		}
		d.Status = models.DecisionDeduped
		d.ID = match.Incident.ID
		d.Score = match.Score
		slog.Info("deduped against recent insert", "source", j.source, "id", d.ID, "score", d.Score, "title", truncate(row.Title, 70))
		return d, nil
	}

	payload := FilterColumns(row.Payload(), b.columns)
	d.Payload = payload

	if m.cfg.Match.DryRun {
		d.Status = models.DecisionDryRun
		b.pending = append(b.pending, models.Incident{
			Title:     row.Title,
			Category:  row.Category,
			District:  row.District,
			EventDate: row.EventDate,
		})
		slog.Info("dry run insert", "source", j.source, "payload", payload)
		return d, nil
	}

	id, err := m.store.Insert(ctx, payload)
	if err != nil {
		d.Status = models.DecisionError
		d.Error = err.Error()
		if !errors.Is(err, context.Canceled) {
			slog.Error("error inserting incident", "source", j.source, "title", truncate(row.Title, 70), "error", err)
		}
		return d, fmt.Errorf("error inserting incident: %w", err)
	}

	m.accepted = append(m.accepted, acceptedIncident{
		incident: models.Incident{
			ID:        id,
			Title:     row.Title,
			Category:  row.Category,
			District:  row.District,
			EventDate: row.EventDate,
		},
		at: b.now,
	})
	m.markSeen(row.Link, id)

	d.Status = models.DecisionInserted
	d.ID = id
	slog.Info("inserted", "source", j.source, "id", id, "title", truncate(row.Title, 70))
	return d, nil
}

// acceptedSince drops accepted incidents older than since and returns the
// rest. The caller holds insertMu.
func (m *Manager) acceptedSince(since time.Time) []models.Incident {
	keep := m.accepted[:0]
	for _, a := range m.accepted {
		if !a.at.Before(since) {
			keep = append(keep, a)
		}
	}
	clear(m.accepted[len(keep):])
	m.accepted = keep

	out := make([]models.Incident, len(keep))
	for i, a := range keep {
		out[i] = a.incident
	}
	return out
}

func (m *Manager) markSeen(link, id string) {
	if link == "" {
		return
	}
	m.seen.Add(link, id)
}

func (m *Manager) publish(d models.Decision) {
	m.metrics.ObserveDecision(d)
	if m.broadcaster != nil {
		m.broadcaster.Broadcast(d)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
