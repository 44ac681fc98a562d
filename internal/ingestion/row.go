package ingestion

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/mr1hm/go-incident-dedupe/internal/category"
	"github.com/mr1hm/go-incident-dedupe/internal/models"
	"github.com/mr1hm/go-incident-dedupe/internal/normalize"
	"github.com/mr1hm/go-incident-dedupe/internal/place"
	"github.com/mr1hm/go-incident-dedupe/internal/temporal"
	"github.com/mr1hm/go-incident-dedupe/internal/vote"
)

var digitRun = regexp.MustCompile(`[0-9]+`)

// Row is a feed item reduced to the incident shape.
type Row struct {
	Title           string
	Category        models.Category
	EventDate       *time.Time
	District        string
	ReportedDead    int
	ReportedInjured int
	SourceCount     int
	Link            string
}

// MakeRow builds a Row from item. Relative dates in the item are anchored at
// now.
func MakeRow(item models.FeedItem, now time.Time) Row {
	title := strings.TrimSpace(item.Title)
	summary := strings.TrimSpace(item.Summary)
	text := title + " " + summary

	row := Row{
		Title:       title,
		Category:    category.Classify(text),
		District:    place.Detect(text),
		SourceCount: 1,
		Link:        UnwrapLink(strings.TrimSpace(item.Link)),
	}

	if t, ok := temporal.Resolve(item.Published, now); ok {
		row.EventDate = &t
	} else if t, ok := temporal.Resolve(summary, now); ok {
		row.EventDate = &t
	}

	// The first three figures are read as deaths, the next three as injuries.
	nums := ExtractNumbers(text)
	row.ReportedDead, _ = vote.Ints(window(nums, 0, 3))
	row.ReportedInjured, _ = vote.Ints(window(nums, 3, 6))

	return row
}

// Candidate is the view of r the match engine scores.
func (r Row) Candidate() models.Candidate {
	return models.Candidate{
		Title:     r.Title,
		Category:  r.Category,
		District:  r.District,
		EventDate: r.EventDate,
	}
}

// Payload is the insert payload for r. Absent values are nil so the store
// writes NULL.
func (r Row) Payload() map[string]any {
	p := map[string]any{
		"title":            r.Title,
		"category":         string(r.Category),
		"event_date":       nil,
		"district":         nil,
		"location":         nil,
		"reported_dead":    r.ReportedDead,
		"reported_injured": r.ReportedInjured,
		"source_count":     r.SourceCount,
		"link":             r.Link,
	}
	if r.EventDate != nil {
		p["event_date"] = temporal.Day(*r.EventDate).Format("2006-01-02")
	}
	if r.District != "" {
		p["district"] = r.District
	}
	return p
}

// ExtractNumbers returns the standalone one to three digit figures in text,
// after Bangla digits are transliterated. Digits glued to letters or longer
// runs such as years are ignored.
func ExtractNumbers(text string) []int {
	t := normalize.Digits(text)
	var nums []int
	for _, loc := range digitRun.FindAllStringIndex(t, -1) {
		start, end := loc[0], loc[1]
		if end-start > 3 {
			continue
		}
		if r, _ := utf8.DecodeLastRuneInString(t[:start]); start > 0 && isWordRune(r) {
			continue
		}
		if r, _ := utf8.DecodeRuneInString(t[end:]); end < len(t) && isWordRune(r) {
			continue
		}
		n, err := strconv.Atoi(t[start:end])
		if err != nil {
			continue
		}
		nums = append(nums, n)
	}
	return nums
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// FilterColumns keeps the payload keys the store has a column for.
func FilterColumns(payload map[string]any, columns []string) map[string]any {
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		known[c] = struct{}{}
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if _, ok := known[k]; ok {
			out[k] = v
		}
	}
	return out
}

// UnwrapLink returns the publisher URL carried in the url parameter of a
// Google News redirect link. Other links are returned unchanged.
func UnwrapLink(link string) string {
	if link == "" || !strings.Contains(link, "news.google.") {
		return link
	}
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	if target := u.Query().Get("url"); target != "" {
		return target
	}
	return link
}

func window(nums []int, from, to int) []int {
	if from >= len(nums) {
		return nil
	}
	return nums[from:min(to, len(nums))]
}
