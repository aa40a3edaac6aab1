package tax

import (
	"math"
	"strings"

	"github.com/fingenie/assistant/internal/domain/entity"
)

const (
	MedicareRate       = 0.0145
	SocialSecurityRate = 0.062
	SocialSecurityBase = 160200 // 2023 wage base
	DependentCredit    = 2000

	RetirementLimit    = 22500 // 401k, 2023
	HSALimit           = 3850  // self-only HSA, 2023
	CharitableFraction = 0.10
)

// StateRates soddalashtirilgan shtat stavkalari
var StateRates = map[string]float64{
	"CA": 0.093,
}

// Calculate TaxInput dan TaxResult hisoblash. Manfiy yoki noto'g'ri qiymatlar nol deb olinadi.
func Calculate(in entity.TaxInput) entity.TaxResult {
	totalIncome := sum(in.Income)
	totalDeductions := sum(in.Deductions)
	totalExpenses := sum(in.Expenses)
	taxable := math.Max(0, totalIncome-totalDeductions-totalExpenses)

	brackets := BracketsFor(in.FilingStatus)
	current := BracketFor(taxable, brackets)
	baseTax := BaseTax(taxable, brackets)

	dependents := in.Dependents
	if dependents < 0 {
		dependents = 0
	}
	credits := float64(dependents) * DependentCredit

	res := entity.TaxResult{
		TotalIncome:       totalIncome,
		TotalDeductions:   totalDeductions,
		TotalExpenses:     totalExpenses,
		TaxableIncome:     taxable,
		BaseTax:           baseTax,
		FederalTax:        baseTax,
		StateTax:          taxable * stateRate(in.Country, in.State),
		MedicareTax:       totalIncome * MedicareRate,
		SocialSecurityTax: math.Min(totalIncome, SocialSecurityBase) * SocialSecurityRate,
		TaxCredits:        credits,
		MarginalRate:      current.Rate,
		Bracket:           current.Label(),
	}
	if !math.IsInf(current.Upper, 1) {
		res.NextBracketThreshold = current.Upper
	}

	res.TotalTax = res.FederalTax + res.StateTax + res.MedicareTax + res.SocialSecurityTax
	if totalIncome > 0 {
		res.EffectiveRate = res.TotalTax / totalIncome
	}

	res.SuggestedDeductions = SuggestDeductions(in.Deductions, taxable)
	for _, s := range res.SuggestedDeductions {
		res.PotentialSavings += s.Potential * res.MarginalRate
	}

	return res
}

// SuggestDeductions qonuniy limitlardan kam ishlatilgan chegirmalar
func SuggestDeductions(deductions map[string]float64, taxable float64) []entity.Suggestion {
	suggestions := []entity.Suggestion{}

	add := func(kind, description string, current, target float64) {
		if current < target {
			suggestions = append(suggestions, entity.Suggestion{
				Type:        kind,
				Description: description,
				Current:     current,
				Suggested:   target,
				Potential:   target - current,
			})
		}
	}

	add("retirement", "Increase retirement contributions", amount(deductions, "retirement"), RetirementLimit)
	add("hsa", "Contribute to Health Savings Account (HSA)", amount(deductions, "health_insurance"), HSALimit)
	add("charitable", "Consider charitable donations", amount(deductions, "charitable"), math.Round(sanitize(taxable)*CharitableFraction))

	return suggestions
}

func stateRate(country, state string) float64 {
	country = strings.ToUpper(strings.TrimSpace(country))
	if country != "" && country != "US" {
		return 0
	}
	return StateRates[strings.ToUpper(strings.TrimSpace(state))]
}

func amount(values map[string]float64, key string) float64 {
	return sanitize(values[key])
}

func sum(values map[string]float64) float64 {
	total := 0.0
	for _, v := range values {
		total += sanitize(v)
	}
	return total
}
