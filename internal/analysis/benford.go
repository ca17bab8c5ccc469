package analysis

import (
	"math"
	"strconv"

	"github.com/floodaudit/floodaudit/internal/model"
)

// DigitFrequency compares observed and expected first-digit percentages.
type DigitFrequency struct {
	Digit    int     `json:"digit"`
	Observed float64 `json:"observed"`
	Expected float64 `json:"expected"`
}

// BenfordView is the first-significant-digit test over ContractCost.
type BenfordView struct {
	Sample int              `json:"sample"`
	Digits []DigitFrequency `json:"digits"`
}

// Benford tallies the first significant digit of every ContractCost. Expected
// frequencies follow log10(1 + 1/d). Zero amounts have no significant digit and
// are left out of the sample.
func Benford(projects []model.Project) BenfordView {
	var counts [10]int
	sample := 0
	for i := range projects {
		if d := firstDigit(projects[i].ContractCost); d > 0 {
			counts[d]++
			sample++
		}
	}

	view := BenfordView{Sample: sample, Digits: make([]DigitFrequency, 0, 9)}
	for d := 1; d <= 9; d++ {
		f := DigitFrequency{Digit: d, Expected: math.Log10(1+1/float64(d)) * 100}
		if sample > 0 {
			f.Observed = float64(counts[d]) / float64(sample) * 100
		}
		view.Digits = append(view.Digits, f)
	}
	return view
}

// firstDigit returns the leading non-zero digit of v, or 0 when there is none.
func firstDigit(v float64) int {
	for _, c := range strconv.FormatFloat(v, 'f', -1, 64) {
		if c >= '1' && c <= '9' {
			return int(c - '0')
		}
	}
	return 0
}
