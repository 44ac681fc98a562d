// Package dedupe decides whether a candidate incident is the same real-world
// event as one already on record.
//
// Records pass three blocking gates before they are scored: category, district
// and date proximity. A gate only applies when both sides carry the field it
// looks at, except the category gate, which applies whenever the candidate has
// a category. Survivors are scored by token-set similarity of their titles plus
// small bonuses for an exact district and same-day match.
package dedupe

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mr1hm/go-incident-dedupe/internal/fuzz"
	"github.com/mr1hm/go-incident-dedupe/internal/models"
	"github.com/mr1hm/go-incident-dedupe/internal/temporal"
)

const (
	DefaultThreshold = 60

	DistrictBonus = 5
	SameDayBonus  = 5

	// MaxDayGap is the widest calendar-day distance that can still match.
	MaxDayGap = 1
)

type gateOutcome int

const (
	gateSkipped gateOutcome = iota
	gatePassed
	gateFailed
)

// Match is the best record found for a candidate.
type Match struct {
	Incident models.Incident
	Score    float64
}

// Engine is stateless apart from its lexicon and safe for concurrent use.
type Engine struct {
	lexicon *Lexicon
}

// NewEngine returns an engine that builds title keys with lex. A nil lexicon
// compares plain normalized titles.
func NewEngine(lex *Lexicon) *Engine {
	return &Engine{lexicon: lex}
}

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
)

// Default returns the engine built on the embedded lexicon.
func Default() *Engine {
	defaultOnce.Do(func() {
		lex, err := LoadLexicon(defaultLexicon)
		if err != nil {
			panic(fmt.Sprintf("dedupe: embedded lexicon: %v", err))
		}
		defaultEngine = NewEngine(lex)
	})
	return defaultEngine
}

// FindMatch runs the default engine.
func FindMatch(c models.Candidate, records []models.Incident, threshold float64) (Match, bool) {
	return Default().FindMatch(c, records, threshold)
}

// FindMatch returns the highest scoring record that survives every gate, if
// its score reaches threshold. Among equal scores the earliest record wins.
func (e *Engine) FindMatch(c models.Candidate, records []models.Incident, threshold float64) (Match, bool) {
	key := e.lexicon.Key(c.Title)

	var best Match
	found := false
	for _, r := range records {
		score, ok := e.score(c, key, r)
		if !ok {
			continue
		}
		if !found || score > best.Score {
			best = Match{Incident: r, Score: score}
			found = true
		}
	}

	if !found || best.Score < threshold {
		return Match{}, false
	}
	return best, true
}

// Score reports the similarity of c and r, and false if a gate excludes r.
func (e *Engine) Score(c models.Candidate, r models.Incident) (float64, bool) {
	return e.score(c, e.lexicon.Key(c.Title), r)
}

func (e *Engine) score(c models.Candidate, key string, r models.Incident) (float64, bool) {
	if categoryGate(c.Category, r.Category) == gateFailed {
		return 0, false
	}
	district := districtGate(c.District, r.District)
	if district == gateFailed {
		return 0, false
	}
	gap, date := dateGate(c.EventDate, r.EventDate)
	if date == gateFailed {
		return 0, false
	}

	score := fuzz.TokenSetRatio(key, e.lexicon.Key(r.Title))
	if district == gatePassed {
		score += DistrictBonus
	}
	if date == gatePassed && gap == 0 {
		score += SameDayBonus
	}
	return score, true
}

func categoryGate(candidate, record models.Category) gateOutcome {
	if candidate == "" {
		return gateSkipped
	}
	if strings.EqualFold(string(candidate), string(record)) {
		return gatePassed
	}
	return gateFailed
}

func districtGate(candidate, record string) gateOutcome {
	candidate, record = strings.TrimSpace(candidate), strings.TrimSpace(record)
	if candidate == "" || record == "" {
		return gateSkipped
	}
	if strings.EqualFold(candidate, record) {
		return gatePassed
	}
	return gateFailed
}

// dateGate compares calendar days in Dhaka. A zero instant cannot be placed on
// a day and fails the gate.
func dateGate(candidate, record *time.Time) (int, gateOutcome) {
	if candidate == nil || record == nil {
		return 0, gateSkipped
	}
	gap, ok := dayGap(*candidate, *record)
	if !ok || gap > MaxDayGap {
		return gap, gateFailed
	}
	return gap, gatePassed
}

func dayGap(a, b time.Time) (int, bool) {
	if a.IsZero() || b.IsZero() {
		return 0, false
	}
	ay, am, ad := a.In(temporal.Dhaka).Date()
	by, bm, bd := b.In(temporal.Dhaka).Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	days := int(da.Sub(db).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days, true
}
