package dedupe

import (
	_ "embed"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/mr1hm/go-incident-dedupe/internal/normalize"
)

//go:embed lexicon.yaml
var defaultLexicon []byte

// Lexicon rewrites title tokens so that Bangla and English headlines about the
// same event share vocabulary. Tokens are only ever rewritten, never dropped,
// so function words still count against the match score. A nil Lexicon only
// normalizes and trims punctuation.
type Lexicon struct {
	canonical map[string]string
}

type lexiconFile struct {
	Canonical map[string][]string `yaml:"canonical"`
}

// LoadLexicon parses a YAML lexicon. An alias claimed by two canonical tokens
// is rejected.
func LoadLexicon(data []byte) (*Lexicon, error) {
	var f lexiconFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("error parsing lexicon: %w", err)
	}

	lex := &Lexicon{canonical: make(map[string]string)}
	for canon, aliases := range f.Canonical {
		c := normalize.Title(canon)
		if c == "" {
			continue
		}
		for _, a := range aliases {
			a = normalize.Title(a)
			if a == "" {
				continue
			}
			if prev, ok := lex.canonical[a]; ok && prev != c {
				return nil, fmt.Errorf("alias %q maps to both %q and %q", a, prev, c)
			}
			lex.canonical[a] = c
		}
	}
	return lex, nil
}

// Key returns the comparison key of a title.
func (l *Lexicon) Key(title string) string {
	fields := strings.Fields(normalize.Title(title))
	out := fields[:0]
	for _, tok := range fields {
		tok = strings.TrimFunc(tok, unicode.IsPunct)
		if tok == "" {
			continue
		}
		if l != nil {
			if c, ok := l.canonical[tok]; ok {
				tok = c
			}
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}
