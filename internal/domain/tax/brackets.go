// Package tax progressive soliq hisoblash mantiqini saqlaydi.
package tax

import (
	"math"
	"strconv"

	"github.com/fingenie/assistant/internal/domain/entity"
)

// Bracket bitta progressiv soliq oralig'i. Oxirgi oraliqning Upper qiymati +Inf.
type Bracket struct {
	Rate  float64
	Lower float64
	Upper float64
}

// Label "22%" ko'rinishidagi yorliq
func (b Bracket) Label() string {
	return FormatRate(b.Rate)
}

// FormatRate stavkani foizda chiqarish
func FormatRate(rate float64) string {
	pct := math.Round(rate*10000) / 100
	return strconv.FormatFloat(pct, 'f', -1, 64) + "%"
}

// progressive ketma-ket chegaralardan jadval tuzish: len(rates) == len(thresholds)+1
func progressive(rates []float64, thresholds ...float64) []Bracket {
	brackets := make([]Bracket, 0, len(rates))
	lower := 0.0
	for i, rate := range rates {
		upper := math.Inf(1)
		if i < len(thresholds) {
			upper = thresholds[i]
		}
		brackets = append(brackets, Bracket{Rate: rate, Lower: lower, Upper: upper})
		lower = upper
	}
	return brackets
}

var federalRates2023 = []float64{0.10, 0.12, 0.22, 0.24, 0.32, 0.35, 0.37}

// FederalBrackets2023 AQSh federal jadvallari (2023)
var FederalBrackets2023 = map[entity.FilingStatus][]Bracket{
	entity.FilingSingle:          progressive(federalRates2023, 11000, 44725, 95375, 182100, 231250, 578125),
	entity.FilingMarriedJoint:    progressive(federalRates2023, 22000, 89450, 190750, 364200, 462500, 693750),
	entity.FilingMarriedSeparate: progressive(federalRates2023, 11000, 44725, 95375, 182100, 231250, 346875),
	entity.FilingHeadOfHousehold: progressive(federalRates2023, 15700, 59850, 95350, 182100, 231250, 578100),
}

// BracketsFor filing status bo'yicha jadval; noma'lum status single deb olinadi
func BracketsFor(status entity.FilingStatus) []Bracket {
	if brackets, ok := FederalBrackets2023[status]; ok {
		return brackets
	}
	return FederalBrackets2023[entity.FilingSingle]
}

// BaseTax har bir oraliq bo'lagini alohida soliqqa tortadi:
// sum((min(I, upper) - lower) * rate) for lower < I.
func BaseTax(income float64, brackets []Bracket) float64 {
	income = sanitize(income)
	total := 0.0
	for _, b := range brackets {
		if income <= b.Lower {
			break
		}
		total += (math.Min(income, b.Upper) - b.Lower) * b.Rate
	}
	return total
}

// BracketFor daromad tushadigan oraliq. Nol daromad birinchi oraliqqa tegishli.
func BracketFor(income float64, brackets []Bracket) Bracket {
	income = sanitize(income)
	for _, b := range brackets {
		if income <= b.Upper {
			return b
		}
	}
	return brackets[len(brackets)-1]
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
