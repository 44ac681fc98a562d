package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/mr1hm/go-incident-dedupe/internal/models"
	"github.com/mr1hm/go-incident-dedupe/internal/temporal"
)

type textRequest struct {
	Text string `json:"text"`
}

type resolveRequest struct {
	Text      string `json:"text"`
	Reference string `json:"reference"`
}

type voteRequest struct {
	Observations []any `json:"observations"`
}

// record is the wire form of a candidate or stored incident. Dates are
// YYYY-MM-DD (a Dhaka calendar day) or RFC 3339.
type record struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Category  string `json:"category"`
	District  string `json:"district"`
	EventDate string `json:"event_date"`
}

type matchRequest struct {
	Candidate record   `json:"candidate"`
	Records   []record `json:"records"`
	Threshold *float64 `json:"threshold"`
}

type ingestRequest struct {
	Sources []models.Source `json:"sources" binding:"required"`
}

func (r record) candidate() (models.Candidate, error) {
	d, err := parseDate(r.EventDate)
	if err != nil {
		return models.Candidate{}, err
	}
	return models.Candidate{
		Title:     r.Title,
		Category:  models.Category(r.Category),
		District:  r.District,
		EventDate: d,
	}, nil
}

func (r record) incident() (models.Incident, error) {
	d, err := parseDate(r.EventDate)
	if err != nil {
		return models.Incident{}, err
	}
	return models.Incident{
		ID:        r.ID,
		Title:     r.Title,
		Category:  models.Category(r.Category),
		District:  r.District,
		EventDate: d,
	}, nil
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, temporal.Dhaka); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", s)
	}
	t = t.In(temporal.Dhaka)
	return &t, nil
}
