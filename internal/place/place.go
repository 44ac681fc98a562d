// Package place detects Bangladeshi district names in Bangla or English text.
package place

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mr1hm/go-incident-dedupe/internal/normalize"
)

//go:embed districts.yaml
var defaultTable []byte

type District struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

type Gazetteer struct {
	districts []District
}

func New(districts []District) (*Gazetteer, error) {
	g := &Gazetteer{districts: make([]District, 0, len(districts))}
	for i, d := range districts {
		if strings.TrimSpace(d.Name) == "" {
			return nil, fmt.Errorf("district %d: missing name", i)
		}
		aliases := make([]string, 0, len(d.Aliases)+1)
		for _, a := range append([]string{d.Name}, d.Aliases...) {
			if a = normalize.Title(a); a != "" {
				aliases = append(aliases, a)
			}
		}
		g.districts = append(g.districts, District{Name: d.Name, Aliases: aliases})
	}
	return g, nil
}

func Load(data []byte) (*Gazetteer, error) {
	var districts []District
	if err := yaml.Unmarshal(data, &districts); err != nil {
		return nil, fmt.Errorf("error parsing district table: %w", err)
	}
	return New(districts)
}

var (
	defaultOnce      sync.Once
	defaultGazetteer *Gazetteer
)

func Default() *Gazetteer {
	defaultOnce.Do(func() {
		g, err := Load(defaultTable)
		if err != nil {
			panic(fmt.Sprintf("place: embedded table: %v", err))
		}
		defaultGazetteer = g
	})
	return defaultGazetteer
}

// Detect returns the canonical name of the first district mentioned in text,
// or "" when none is.
func (g *Gazetteer) Detect(text string) string {
	t := normalize.Title(text)
	if t == "" {
		return ""
	}
	for _, d := range g.districts {
		for _, a := range d.Aliases {
			if strings.Contains(t, a) {
				return d.Name
			}
		}
	}
	return ""
}

func Detect(text string) string {
	return Default().Detect(text)
}
