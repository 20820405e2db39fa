// Package corpus loads exam reading passages from a directory tree and
// precomputes their lemma sets.
package corpus

import (
	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/analysis/normalizer"
)

// UnknownYear is the Year of a document whose file name carries no year.
const UnknownYear = 0

// Document is a single passage. It is immutable after Load and may be shared
// between concurrent queries; per-query state lives on ranker results.
type Document struct {
	Title    string              `json:"title"`
	Path     string              `json:"path"`
	Year     int                 `json:"year"`
	Category string              `json:"category"`
	Content  string              `json:"content"`
	Lemmas   normalizer.LemmaSet `json:"-"`
}

// Filter selects documents by year range and category. Zero values disable
// the corresponding constraint.
type Filter struct {
	YearFrom   int      `json:"year_from,omitempty"`
	YearTo     int      `json:"year_to,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// IsZero reports whether f selects every document.
func (f Filter) IsZero() bool {
	return f.YearFrom == 0 && f.YearTo == 0 && len(f.Categories) == 0
}

// Match reports whether d passes the filter. When a year bound is set,
// documents of unknown year are excluded, as they fall outside any range.
func (f Filter) Match(d *Document) bool {
	if (f.YearFrom > 0 || f.YearTo > 0) && d.Year == UnknownYear {
		return false
	}
	if f.YearFrom > 0 && d.Year < f.YearFrom {
		return false
	}
	if f.YearTo > 0 && d.Year > f.YearTo {
		return false
	}
	if len(f.Categories) == 0 {
		return true
	}
	for _, c := range f.Categories {
		if c == d.Category {
			return true
		}
	}
	return false
}

// Apply returns the documents matching f, preserving order.
func (f Filter) Apply(docs []*Document) []*Document {
	if f.IsZero() {
		return docs
	}
	out := make([]*Document, 0, len(docs))
	for _, d := range docs {
		if f.Match(d) {
			out = append(out, d)
		}
	}
	return out
}

// Overview summarises a corpus for display.
type Overview struct {
	Total      int            `json:"total"`
	MinYear    int            `json:"min_year"`
	MaxYear    int            `json:"max_year"`
	Categories map[string]int `json:"categories"`
}

// Default year bounds reported when no document has a known year.
const (
	defaultMinYear = 2010
	defaultMaxYear = 2025
)

// Summarize computes an Overview of docs. Unknown years are ignored for the
// year bounds.
func Summarize(docs []*Document) Overview {
	ov := Overview{Total: len(docs), Categories: make(map[string]int)}
	for _, d := range docs {
		ov.Categories[d.Category]++
		if d.Year == UnknownYear {
			continue
		}
		if ov.MinYear == 0 || d.Year < ov.MinYear {
			ov.MinYear = d.Year
		}
		if d.Year > ov.MaxYear {
			ov.MaxYear = d.Year
		}
	}
	if ov.MinYear == 0 {
		ov.MinYear, ov.MaxYear = defaultMinYear, defaultMaxYear
	}
	return ov
}
