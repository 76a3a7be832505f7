// Package measure defines the standardized questionnaires the engine can
// schedule and score. Measures are code-defined: each one carries its
// question list and a severity-band table that must partition the full score
// range. Scoring is a lookup-table dispatch keyed by measure name.
package measure

import (
	"errors"
	"fmt"
)

// ErrValidation marks answer or definition validation failures so callers can
// map them to a 400-class response.
var ErrValidation = errors.New("validation failed")

// Question is a single item with a bounded numeric answer range.
type Question struct {
	Text string `json:"text"`
	Min  int    `json:"min"`
	Max  int    `json:"max"`
}

// SeverityBand labels a sub-range of possible total scores.
type SeverityBand struct {
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Label string `json:"label"`
}

// Measure is an assessment definition: ordered questions plus an exhaustive,
// non-overlapping severity-band table over [MinScore, MaxScore].
type Measure struct {
	Name      string         `json:"name"`
	Title     string         `json:"title"`
	Questions []Question     `json:"questions"`
	Bands     []SeverityBand `json:"bands"`
}

// MinScore is the lowest possible total score.
func (m *Measure) MinScore() int {
	total := 0
	for _, q := range m.Questions {
		total += q.Min
	}
	return total
}

// MaxScore is the highest possible total score.
func (m *Measure) MaxScore() int {
	total := 0
	for _, q := range m.Questions {
		total += q.Max
	}
	return total
}

// Validate checks the definition invariants: at least one question, valid
// answer ranges, and severity bands that cover [MinScore, MaxScore] in order
// with no gaps and no overlaps.
func (m *Measure) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: measure name is required", ErrValidation)
	}
	if len(m.Questions) == 0 {
		return fmt.Errorf("%w: measure %s has no questions", ErrValidation, m.Name)
	}
	for i, q := range m.Questions {
		if q.Min > q.Max {
			return fmt.Errorf("%w: measure %s question %d has min > max", ErrValidation, m.Name, i+1)
		}
	}
	if len(m.Bands) == 0 {
		return fmt.Errorf("%w: measure %s has no severity bands", ErrValidation, m.Name)
	}

	next := m.MinScore()
	for i, b := range m.Bands {
		if b.Label == "" {
			return fmt.Errorf("%w: measure %s band %d has no label", ErrValidation, m.Name, i+1)
		}
		if b.Min != next {
			return fmt.Errorf("%w: measure %s bands have a gap or overlap at score %d", ErrValidation, m.Name, b.Min)
		}
		if b.Max < b.Min {
			return fmt.Errorf("%w: measure %s band %q has max < min", ErrValidation, m.Name, b.Label)
		}
		next = b.Max + 1
	}
	if next != m.MaxScore()+1 {
		return fmt.Errorf("%w: measure %s bands stop at %d, max score is %d", ErrValidation, m.Name, next-1, m.MaxScore())
	}
	return nil
}

// Score validates the answers against the question ranges and returns the
// total score with its severity label.
func (m *Measure) Score(answers []int) (int, string, error) {
	if len(answers) != len(m.Questions) {
		return 0, "", fmt.Errorf("%w: measure %s expects %d answers, got %d",
			ErrValidation, m.Name, len(m.Questions), len(answers))
	}

	total := 0
	for i, a := range answers {
		q := m.Questions[i]
		if a < q.Min || a > q.Max {
			return 0, "", fmt.Errorf("%w: answer %d out of range [%d,%d] for question %d",
				ErrValidation, a, q.Min, q.Max, i+1)
		}
		total += a
	}

	for _, b := range m.Bands {
		if total >= b.Min && total <= b.Max {
			return total, b.Label, nil
		}
	}
	// Unreachable when Validate holds; bands partition the score range.
	return 0, "", fmt.Errorf("%w: score %d outside severity bands of %s", ErrValidation, total, m.Name)
}
