package tax

import (
	"maps"

	"github.com/fingenie/assistant/internal/domain/entity"
)

// Simulate qo'shimcha daromad va chegirmalar bilan qayta hisoblash
func Simulate(in entity.TaxInput, params entity.SimulationParams) entity.SimulationResult {
	before := Calculate(in)

	extraIncome := sanitize(params.IncomeIncrease)
	extraRetirement := sanitize(params.RetirementIncrease)
	extraCharitable := sanitize(params.CharitableIncrease)

	next := in
	next.Income = withExtra(in.Income, "simulated", extraIncome)
	next.Deductions = withExtra(in.Deductions, "retirement", extraRetirement)
	next.Deductions = withExtra(next.Deductions, "charitable", extraCharitable)

	after := Calculate(next)

	return entity.SimulationResult{
		TaxableIncome:        after.TaxableIncome,
		FederalTax:           after.FederalTax,
		StateTax:             after.StateTax,
		MedicareTax:          after.MedicareTax,
		SocialSecurityTax:    after.SocialSecurityTax,
		TotalTax:             after.TotalTax,
		EffectiveRate:        after.EffectiveRate,
		MarginalRate:         after.MarginalRate,
		TaxSavings:           (before.FederalTax + before.StateTax) - (after.FederalTax + after.StateTax),
		AdditionalDeductions: extraRetirement + extraCharitable,
		AdditionalIncome:     extraIncome,
	}
}

// withExtra asl map ni o'zgartirmasdan nusxa qaytaradi
func withExtra(values map[string]float64, key string, extra float64) map[string]float64 {
	out := make(map[string]float64, len(values)+1)
	maps.Copy(out, values)
	if extra > 0 {
		out[key] = sanitize(out[key]) + extra
	}
	return out
}
