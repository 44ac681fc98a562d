package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mr1hm/go-incident-dedupe/internal/category"
	"github.com/mr1hm/go-incident-dedupe/internal/dedupe"
	"github.com/mr1hm/go-incident-dedupe/internal/ingestion"
	"github.com/mr1hm/go-incident-dedupe/internal/models"
	"github.com/mr1hm/go-incident-dedupe/internal/normalize"
	"github.com/mr1hm/go-incident-dedupe/internal/repository"
	"github.com/mr1hm/go-incident-dedupe/internal/stream"
	"github.com/mr1hm/go-incident-dedupe/internal/temporal"
	"github.com/mr1hm/go-incident-dedupe/internal/vote"
)

// Ingester runs a batch of feed sources through dedupe and storage.
type Ingester interface {
	Ingest(ctx context.Context, sources []models.Source) ([]models.Decision, error)
	RepairLinks(ctx context.Context, dryRun bool) (ingestion.LinkRepair, error)
}

// IncidentReader lists stored incidents.
type IncidentReader interface {
	List(ctx context.Context, filter repository.ListFilter) (repository.Listing, error)
}

type Handler struct {
	ingester    Ingester
	reader      IncidentReader
	engine      *dedupe.Engine
	broadcaster *stream.Broadcaster
	gatherer    prometheus.Gatherer
	threshold   float64
}

// NewHandler builds the API handler. reader, broadcaster and gatherer may be
// nil, in which case the incident listing, stream and metrics routes are not
// registered.
func NewHandler(ingester Ingester, reader IncidentReader, broadcaster *stream.Broadcaster, gatherer prometheus.Gatherer, threshold float64) *Handler {
	return &Handler{
		ingester:    ingester,
		reader:      reader,
		engine:      dedupe.Default(),
		broadcaster: broadcaster,
		gatherer:    gatherer,
		threshold:   threshold,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	if h.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.POST("/normalize", h.normalize)
	api.POST("/classify", h.classify)
	api.POST("/resolve", h.resolve)
	api.POST("/vote", h.vote)
	api.POST("/match", h.match)
	api.POST("/ingest", h.ingest)
	api.POST("/links/repair", h.repairLinks)
	if h.reader != nil {
		api.GET("/incidents", h.listIncidents)
		api.GET("/incidents.csv", h.exportIncidents)
	}
	if h.broadcaster != nil {
		api.GET("/decisions/stream", h.streamDecisions)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) normalize(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"title":  normalize.Title(req.Text),
		"digits": normalize.Digits(req.Text),
	})
}

func (h *Handler) classify(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category.Classify(req.Text)})
}

func (h *Handler) resolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ref := time.Now().In(temporal.Dhaka)
	if req.Reference != "" {
		t, err := time.Parse(time.RFC3339, req.Reference)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reference must be RFC 3339"})
			return
		}
		ref = t
	}

	t, ok := temporal.Resolve(req.Text, ref)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"found": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"found": true,
		"time":  t.Format(time.RFC3339),
		"day":   t.Format("2006-01-02"),
	})
}

func (h *Handler) vote(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	value, confidence := vote.Vote(req.Observations)
	c.JSON(http.StatusOK, gin.H{"value": value, "confidence": confidence})
}

func (h *Handler) match(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cand, err := req.Candidate.candidate()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	records := make([]models.Incident, 0, len(req.Records))
	for _, r := range req.Records {
		inc, err := r.incident()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		records = append(records, inc)
	}

	threshold := h.threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	m, ok := h.engine.FindMatch(cand, records, threshold)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"matched": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"matched":  true,
		"id":       m.Incident.ID,
		"score":    m.Score,
		"incident": m.Incident,
	})
}

func (h *Handler) ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decisions, err := h.ingester.Ingest(c.Request.Context(), req.Sources)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to ingest sources",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"decisions": decisions})
}

func (h *Handler) streamDecisions(c *gin.Context) {
	id, ch := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case d, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("decision", d)
			return true
		}
	})
}
