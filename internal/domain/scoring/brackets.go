package scoring

import (
	"fmt"
	"math"
)

// Bracket maps a numeric boundary to a sub-score. ExcludeBound opts a single
// bracket out of the table's InclusiveBound matching, for tables whose two
// endpoints need different boundary semantics.
type Bracket struct {
	Bound        float64 `yaml:"bound" json:"bound"`
	Score        int     `yaml:"score" json:"score"`
	ExcludeBound bool    `yaml:"exclude_bound,omitempty" json:"exclude_bound,omitempty"`
}

func (b Bracket) inclusiveIn(t *BracketTable) bool {
	return t.InclusiveBound && !b.ExcludeBound
}

// BracketTable maps a raw metric into a bounded sub-score through an ordered
// list of brackets. Two orientations exist:
//
//   - Descending (Inverse=false): brackets sorted by Bound descending, the
//     first bracket with value >= Bound wins. Higher input, higher score.
//   - Inverse (Inverse=true): brackets sorted by Bound ascending, the first
//     bracket with value < Bound (or <= when InclusiveBound) wins. Higher
//     input, lower score.
//
// Floor is the score for values beyond the last bracket.
type BracketTable struct {
	Name           string    `yaml:"name" json:"name"`
	Inverse        bool      `yaml:"inverse" json:"inverse"`
	InclusiveBound bool      `yaml:"inclusive_bound" json:"inclusive_bound"`
	Brackets       []Bracket `yaml:"brackets" json:"brackets"`
	Floor          int       `yaml:"floor" json:"floor"`
}

// Score resolves value against the table. The result is always within
// [MinScore, MaxScore] for a validated table.
func (t *BracketTable) Score(value float64) int {
	for _, b := range t.Brackets {
		if t.Inverse {
			if value < b.Bound || (b.inclusiveIn(t) && value == b.Bound) {
				return b.Score
			}
		} else if value >= b.Bound {
			return b.Score
		}
	}
	return t.Floor
}

// Label returns the bracket description the value landed in, for audit output.
func (t *BracketTable) Label(value float64) string {
	for _, b := range t.Brackets {
		if t.Inverse {
			if value < b.Bound || (b.inclusiveIn(t) && value == b.Bound) {
				op := "<"
				if b.inclusiveIn(t) {
					op = "<="
				}
				return fmt.Sprintf("%s %s", op, formatBound(b.Bound))
			}
		} else if value >= b.Bound {
			return fmt.Sprintf(">= %s", formatBound(b.Bound))
		}
	}
	if len(t.Brackets) == 0 {
		return "unbounded"
	}
	last := t.Brackets[len(t.Brackets)-1]
	if t.Inverse {
		return fmt.Sprintf(">= %s", formatBound(last.Bound))
	}
	return fmt.Sprintf("< %s", formatBound(last.Bound))
}

// Validate checks ordering and score monotonicity. A broken table corrupts
// every ticker's score, so this is fatal at engine construction.
func (t *BracketTable) Validate() error {
	if len(t.Brackets) == 0 {
		return fmt.Errorf("bracket table %q is empty", t.Name)
	}
	for i, b := range t.Brackets {
		if b.Score < MinScore || b.Score > MaxScore {
			return fmt.Errorf("bracket table %q: score %d at index %d outside [%d,%d]",
				t.Name, b.Score, i, MinScore, MaxScore)
		}
		if i == 0 {
			continue
		}
		prev := t.Brackets[i-1]
		if t.Inverse {
			if b.Bound <= prev.Bound {
				return fmt.Errorf("bracket table %q: bounds not strictly ascending at index %d", t.Name, i)
			}
			if b.Score > prev.Score {
				return fmt.Errorf("bracket table %q: scores not non-increasing at index %d", t.Name, i)
			}
		} else {
			if b.Bound >= prev.Bound {
				return fmt.Errorf("bracket table %q: bounds not strictly descending at index %d", t.Name, i)
			}
			if b.Score > prev.Score {
				return fmt.Errorf("bracket table %q: scores not non-increasing at index %d", t.Name, i)
			}
		}
	}
	last := t.Brackets[len(t.Brackets)-1]
	if t.Floor < MinScore || t.Floor > MaxScore {
		return fmt.Errorf("bracket table %q: floor %d outside [%d,%d]", t.Name, t.Floor, MinScore, MaxScore)
	}
	if t.Inverse {
		if t.Floor > last.Score {
			return fmt.Errorf("bracket table %q: floor %d exceeds last bracket score %d", t.Name, t.Floor, last.Score)
		}
	} else if t.Floor > last.Score {
		return fmt.Errorf("bracket table %q: floor %d exceeds last bracket score %d", t.Name, t.Floor, last.Score)
	}
	return nil
}

func formatBound(v float64) string {
	switch {
	case math.Abs(v) >= 1e12:
		return fmt.Sprintf("%.4gT", v/1e12)
	case math.Abs(v) >= 1e9:
		return fmt.Sprintf("%.4gB", v/1e9)
	case math.Abs(v) >= 1e6:
		return fmt.Sprintf("%.4gM", v/1e6)
	default:
		return fmt.Sprintf("%.4g", v)
	}
}

func clampScore(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
