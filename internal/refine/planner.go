// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refine

import (
	"strconv"
	"strings"

	"github.com/pdiddy/company-research/internal/gaps"
	"github.com/pdiddy/company-research/pkg/types"
)

// genericAngles are tried after a field's own templates. Each targets a
// different kind of source.
var genericAngles = []string{
	"{company} {field}",
	"{company} {field} {year}",
	"{company} {field} annual report",
	"{company} {field} press release",
	"{company} {field} investor presentation",
	"{company} {field} news",
	"{company} {field} SEC filing",
	"{company} {field} interview",
}

// Planner turns gaps into search queries. It is deterministic: the same gap
// and history always produce the same plan.
type Planner struct {
	Company string
	Year    int
	Schema  *gaps.Schema

	// Budget is the lifetime query budget per (topic, field).
	Budget int

	// PerPlan bounds the queries returned by one Plan call. Zero means Budget.
	PerPlan int

	// MaxOverlap rejects a candidate whose word overlap (Jaccard index) with
	// any previously issued query for the same gap exceeds it. Zero disables
	// the check; exact duplicates are always rejected.
	MaxOverlap float64
}

// Plan returns up to min(PerPlan, Budget-attempts) queries for g that have not
// been issued before. An empty plan means the gap is planning-exhausted.
func (p *Planner) Plan(g types.Gap, h *History) []string {
	key := g.Key()
	remaining := p.Budget - h.Attempts(key)
	limit := p.PerPlan
	if limit <= 0 || limit > remaining {
		limit = remaining
	}
	if limit <= 0 {
		return nil
	}

	previous := h.Queries(key)
	planned := make(map[string]bool)
	var out []string
	for _, c := range p.candidates(g) {
		n := Normalize(c)
		if n == "" || planned[n] || h.Contains(key, c) {
			continue
		}
		if p.MaxOverlap > 0 && tooSimilar(n, previous, p.MaxOverlap) {
			continue
		}
		planned[n] = true
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out
}

// DefaultQueries expands a topic's initial-round templates. A topic without
// templates gets a single overview query.
func (p *Planner) DefaultQueries(t types.Topic) []string {
	var templates []string
	if p.Schema != nil {
		if ts, ok := p.Schema.Topic(t); ok {
			templates = ts.Queries
		}
	}
	if len(templates) == 0 {
		templates = []string{"{company} {topic}"}
	}

	var out []string
	seen := make(map[string]bool)
	for _, tmpl := range templates {
		q := p.expand(tmpl, t, "")
		n := Normalize(q)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, q)
	}
	return out
}

func (p *Planner) candidates(g types.Gap) []string {
	var templates []string
	if p.Schema != nil {
		if ts, ok := p.Schema.Topic(g.Topic); ok {
			if f, ok := ts.Field(g.Field); ok {
				templates = append(templates, f.Queries...)
			}
		}
	}
	templates = append(templates, genericAngles...)

	out := make([]string, 0, len(templates))
	for _, tmpl := range templates {
		out = append(out, p.expand(tmpl, g.Topic, g.Field))
	}
	return out
}

func (p *Planner) expand(tmpl string, t types.Topic, field string) string {
	year := ""
	if p.Year > 0 {
		year = strconv.Itoa(p.Year)
	}
	r := strings.NewReplacer(
		"{company}", p.Company,
		"{field}", strings.ReplaceAll(field, "_", " "),
		"{topic}", string(t),
		"{year}", year,
	)
	return strings.Join(strings.Fields(r.Replace(tmpl)), " ")
}

func tooSimilar(normalized string, previous []string, limit float64) bool {
	words := wordSet(normalized)
	for _, prev := range previous {
		if jaccard(words, wordSet(Normalize(prev))) > limit {
			return true
		}
	}
	return false
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
