package models

import (
	"strings"
	"time"
)

type Category string

const (
	CategoryRoadAccident Category = "road_accident"
	CategoryFire         Category = "fire"
	CategoryCrime        Category = "crime"
	CategoryRape         Category = "rape"
	CategoryMurder       Category = "murder"
	CategoryFlood        Category = "flood"
	CategoryOther        Category = "other"
)

// Categories lists the closed category vocabulary. CategoryOther is the catch-all.
var Categories = []Category{
	CategoryRoadAccident,
	CategoryFire,
	CategoryCrime,
	CategoryRape,
	CategoryMurder,
	CategoryFlood,
	CategoryOther,
}

func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Candidate is an incident under evaluation that has not been stored yet.
type Candidate struct {
	Title     string     `json:"title"`
	Category  Category   `json:"category,omitempty"`
	District  string     `json:"district,omitempty"`
	EventDate *time.Time `json:"event_date,omitempty"`
}

// Incident is a previously accepted record used as a comparison target.
type Incident struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Category  Category   `json:"category,omitempty"`
	District  string     `json:"district,omitempty"`
	EventDate *time.Time `json:"event_date,omitempty"`
}
