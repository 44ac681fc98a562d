package models

// FeedItem is one raw entry handed over by a feed collaborator.
type FeedItem struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Published string `json:"published"`
	Summary   string `json:"summary"`
}

type Source struct {
	Name  string     `json:"name"`
	Items []FeedItem `json:"items"`
}

type DecisionStatus string

const (
	DecisionDeduped  DecisionStatus = "deduped"
	DecisionInserted DecisionStatus = "inserted"
	DecisionDryRun   DecisionStatus = "dryrun"
	DecisionError    DecisionStatus = "error"
)

// Decision is the outcome of ingesting a single feed item.
type Decision struct {
	Source  string         `json:"source"`
	Status  DecisionStatus `json:"status"`
	ID      string         `json:"id,omitempty"`
	Title   string         `json:"title"`
	Score   float64        `json:"score,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
	Error   string         `json:"error,omitempty"`
}
