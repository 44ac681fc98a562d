// Package category maps free text to an incident category using an ordered
// bilingual keyword table.
package category

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mr1hm/go-incident-dedupe/internal/models"
	"github.com/mr1hm/go-incident-dedupe/internal/normalize"
)

//go:embed categories.yaml
var defaultTable []byte

// Rule binds a category to the literals that select it.
type Rule struct {
	Category models.Category `yaml:"category"`
	Keywords []string        `yaml:"keywords"`
}

// Classifier evaluates its rules in order. It is safe for concurrent use.
type Classifier struct {
	rules []Rule
}

// New builds a classifier from rules, keeping their order. Keywords are
// normalized the same way as classified text; empty keywords are dropped.
func New(rules []Rule) (*Classifier, error) {
	c := &Classifier{rules: make([]Rule, 0, len(rules))}
	for i, r := range rules {
		cat, ok := models.ParseCategory(string(r.Category))
		if !ok {
			return nil, fmt.Errorf("rule %d: unknown category %q", i, r.Category)
		}
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			if kw = normalize.Title(kw); kw != "" {
				kws = append(kws, kw)
			}
		}
		c.rules = append(c.rules, Rule{Category: cat, Keywords: kws})
	}
	return c, nil
}

// Load parses a YAML rule table.
func Load(data []byte) (*Classifier, error) {
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("error parsing category table: %w", err)
	}
	return New(rules)
}

var (
	defaultOnce       sync.Once
	defaultClassifier *Classifier
)

// Default returns the classifier built from the embedded table.
func Default() *Classifier {
	defaultOnce.Do(func() {
		c, err := Load(defaultTable)
		if err != nil {
			panic(fmt.Sprintf("category: embedded table: %v", err))
		}
		defaultClassifier = c
	})
	return defaultClassifier
}

// Classify returns the first category whose keyword occurs in text, or
// CategoryOther.
func (c *Classifier) Classify(text string) models.Category {
	if strings.TrimSpace(text) == "" {
		return models.CategoryOther
	}
	t := normalize.Title(text)
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(t, kw) {
				return r.Category
			}
		}
	}
	return models.CategoryOther
}

// Rules returns a copy of the normalized rule table.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = Rule{Category: r.Category, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

// Classify uses the embedded table.
func Classify(text string) models.Category {
	return Default().Classify(text)
}
