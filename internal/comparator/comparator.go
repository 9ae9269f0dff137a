// Package comparator classifies a sampled frame's fingerprint against the
// slate library. It holds no state of its own; the Transition Engine
// layers debouncing on top of its verdicts.
package comparator

import (
	"hawkeye/internal/slate"
	"hawkeye/pkg/models"
)

// Library is the subset of *slate.Library the comparator depends on.
type Library interface {
	FindBestMatch(fp models.Fingerprint, threshold float64) (slate.Match, bool)
}

// Comparator turns a frame fingerprint into a Classification.
type Comparator struct {
	lib       Library
	threshold float64
}

// New builds a Comparator that classifies against lib using threshold as
// the minimum cosine similarity a slate match must clear.
func New(lib Library, threshold float64) *Comparator {
	return &Comparator{lib: lib, threshold: threshold}
}

// Result pairs a classification with the matched slate's score, for
// metrics and diagnostics. Score is 0 for a content classification; the
// best below-threshold score is not reported.
type Result struct {
	Classification models.Classification
	Score          float64
}

// Classify compares fp against every known slate. A match at or above the
// configured threshold yields ClassSlate; otherwise the frame is content.
func (c *Comparator) Classify(fp models.Fingerprint) Result {
	m, ok := c.lib.FindBestMatch(fp, c.threshold)
	if !ok {
		return Result{Classification: models.Content()}
	}
	return Result{Classification: models.Slate(m.SlateID), Score: m.Score}
}
