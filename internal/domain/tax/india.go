package tax

import (
	"math"

	"github.com/fingenie/assistant/internal/domain/entity"
)

var (
	indiaOldSlabs = progressive([]float64{0, 0.05, 0.20, 0.30}, 250000, 500000, 1000000)
	indiaNewSlabs = progressive([]float64{0, 0.05, 0.10, 0.15, 0.20, 0.30}, 300000, 600000, 900000, 1200000, 1500000)
)

const (
	india80CLimit      = 150000
	india80DLimit      = 25000
	indiaHomeLoanLimit = 200000
	indiaNPSLimit      = 50000
	indiaCessRate      = 0.04
)

// Section 87A rebate
type rebate struct {
	ceiling float64
	amount  float64
}

var (
	indiaOldRebate = rebate{ceiling: 500000, amount: 12500}
	indiaNewRebate = rebate{ceiling: 700000, amount: 25000}
)

// surcharge oralig'i: taxable > above bo'lsa rate qo'llanadi
var indiaSurcharges = []struct {
	above float64
	rate  float64
}{
	{above: 50000000, rate: 0.37},
	{above: 20000000, rate: 0.25},
	{above: 10000000, rate: 0.15},
	{above: 5000000, rate: 0.10},
}

// CalculateIndia eski yoki yangi rejim bo'yicha Hindiston daromad solig'i (FY 2023-24)
func CalculateIndia(in entity.IndiaInput) entity.IndiaResult {
	gross := sanitize(in.Income)
	taxable := gross
	slabs, rb := indiaNewSlabs, indiaNewRebate

	if in.Regime != entity.IndiaNewRegime {
		deductions := math.Min(sanitize(in.Sec80C), india80CLimit) +
			math.Min(sanitize(in.Sec80D), india80DLimit) +
			sanitize(in.HRA) +
			math.Min(sanitize(in.HomeLoan), indiaHomeLoanLimit) +
			sanitize(in.OtherExemptions) +
			math.Min(sanitize(in.NPS), indiaNPSLimit)
		taxable = math.Max(0, gross-deductions)
		slabs, rb = indiaOldSlabs, indiaOldRebate
	}

	base := BaseTax(taxable, slabs)
	if taxable <= rb.ceiling {
		base = math.Max(0, base-rb.amount)
	}

	surcharge := 0.0
	for _, s := range indiaSurcharges {
		if taxable > s.above {
			surcharge = base * s.rate
			break
		}
	}

	cess := (base + surcharge) * indiaCessRate

	return entity.IndiaResult{
		GrossIncome:   gross,
		TaxableIncome: taxable,
		BaseTax:       base,
		Surcharge:     surcharge,
		Cess:          cess,
		FinalTax:      base + surcharge + cess,
	}
}
