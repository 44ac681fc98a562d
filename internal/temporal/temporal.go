// Package temporal resolves absolute and relative date expressions to an
// instant in Bangladesh civil time.
package temporal

import (
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/araddon/dateparse"

	"github.com/mr1hm/go-incident-dedupe/internal/normalize"
)

// Dhaka is the civil timezone every resolved instant is expressed in.
var Dhaka = loadDhaka()

func loadDhaka() *time.Location {
	loc, err := time.LoadLocation("Asia/Dhaka")
	if err != nil {
		return time.FixedZone("Asia/Dhaka", 6*60*60)
	}
	return loc
}

// Date-looking fragments tried when the whole text does not parse.
var fragmentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:mon|tue|wed|thu|fri|sat|sun)[a-z]*,?\s+\d{1,2}\s+[a-z]{3,9}\s+\d{4}(?:\s+\d{1,2}:\d{2}(?::\d{2})?(?:\s*(?:[+-]\d{4}|[a-z]{2,5}))?)?`),
	regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}(?:[T ]\d{1,2}:\d{2}(?::\d{2})?(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?)?`),
	regexp.MustCompile(`\b\d{1,2}[/.-]\d{1,2}[/.-]\d{4}\b`),
	regexp.MustCompile(`(?i)\b\d{1,2}\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*,?\s+\d{4}\b`),
	regexp.MustCompile(`(?i)\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+\d{1,2},?\s+\d{4}\b`),
}

type relativePhrase struct {
	re    *regexp.Regexp
	apply func(ref time.Time) time.Time
}

// phrase builds a case-insensitive matcher bounded by non-letters. Unlike \b
// it sees Bangla letters, and a trailing vowel sign still ends the phrase
// (গত রাতে matches গত রাত).
func phrase(alternatives ...string) *regexp.Regexp {
	quoted := make([]string, len(alternatives))
	for i, a := range alternatives {
		quoted[i] = regexp.QuoteMeta(a)
	}
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])(?:` + strings.Join(quoted, "|") + `)(?:$|[^\p{L}\p{N}_])`)
}

// Checked in order; the first hit wins.
var relativePhrases = []relativePhrase{
	{phrase("গতকাল", "yesterday"), func(ref time.Time) time.Time {
		return ref.AddDate(0, 0, -1)
	}},
	{phrase("আজ", "today"), func(ref time.Time) time.Time {
		return ref
	}},
	{phrase("last night", "গত রাত", "গতরাত"), func(ref time.Time) time.Time {
		y, m, d := ref.AddDate(0, 0, -1).Date()
		return time.Date(y, m, d, 22, 0, 0, 0, ref.Location())
	}},
}

// Resolve parses text into an instant in Dhaka time. Absolute dates take
// precedence over relative phrases, which are anchored at ref. The second
// return value is false when nothing in text could be read as a date.
func Resolve(text string, ref time.Time) (time.Time, bool) {
	s := strings.TrimSpace(normalize.Digits(text))
	if s == "" {
		return time.Time{}, false
	}

	if t, ok := parseAbsolute(s); ok {
		return t, true
	}

	ref = ref.In(Dhaka)
	for _, p := range relativePhrases {
		if p.re.MatchString(s) {
			return p.apply(ref), true
		}
	}
	return time.Time{}, false
}

// ResolveNow resolves text relative to the current time in Dhaka.
func ResolveNow(text string) (time.Time, bool) {
	return Resolve(text, time.Now().In(Dhaka))
}

// Day truncates t to midnight of its calendar day in Dhaka.
func Day(t time.Time) time.Time {
	y, m, d := t.In(Dhaka).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, Dhaka)
}

func parseAbsolute(s string) (time.Time, bool) {
	if t, ok := tryParse(s); ok {
		return t, true
	}
	for _, re := range fragmentPatterns {
		for _, frag := range re.FindAllString(s, -1) {
			if t, ok := tryParse(frag); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// tryParse reads s day-first. Naive values are placed in Dhaka and zoned
// values converted to it. Parser panics count as a failed parse.
func tryParse(s string) (t time.Time, ok bool) {
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()
	parsed, err := dateparse.ParseIn(s, Dhaka, dateparse.PreferMonthFirst(false))
	if err != nil || parsed.IsZero() {
		return time.Time{}, false
	}
	return parsed.In(Dhaka), true
}
