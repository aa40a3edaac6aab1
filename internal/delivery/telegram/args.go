package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fingenie/assistant/internal/domain/entity"
)

// parseKeyValues "a=1 b=2" ko'rinishidagi argumentlarni o'qish
func parseKeyValues(args string) (map[string]string, error) {
	out := make(map[string]string)
	for _, field := range strings.Fields(args) {
		key, value, ok := strings.Cut(field, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("expected key=value, got %q", field)
		}
		out[key] = value
	}
	return out, nil
}

// parseNumber "63,850" yoki "$1200" kabi qiymatlarni o'qish
func parseNumber(s string) (float64, error) {
	clean := strings.NewReplacer(",", "", "$", "", "_", "").Replace(strings.TrimSpace(s))
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("amount must not be negative: %q", s)
	}
	return v, nil
}

var filingAliases = map[string]entity.FilingStatus{
	"single":           entity.FilingSingle,
	"married_joint":    entity.FilingMarriedJoint,
	"joint":            entity.FilingMarriedJoint,
	"married_separate": entity.FilingMarriedSeparate,
	"separate":         entity.FilingMarriedSeparate,
	"head_household":   entity.FilingHeadOfHousehold,
	"head":             entity.FilingHeadOfHousehold,
}

// parseTaxArgs /tax argumentlaridan TaxInput yig'ish.
// Summalar bo'lim prefiksi bilan yoziladi: income.salary=, deduction.retirement=, expense.travel=
func parseTaxArgs(args string) (entity.TaxInput, error) {
	in := entity.TaxInput{
		FilingStatus: entity.FilingSingle,
		Country:      "US",
		Income:       map[string]float64{},
		Deductions:   map[string]float64{},
		Expenses:     map[string]float64{},
	}

	kv, err := parseKeyValues(args)
	if err != nil {
		return in, err
	}
	if len(kv) == 0 {
		return in, fmt.Errorf("no values given")
	}

	for key, value := range kv {
		switch key {
		case "status", "filing", "filing_status":
			status, ok := filingAliases[strings.ToLower(value)]
			if !ok {
				return in, fmt.Errorf("unknown filing status %q", value)
			}
			in.FilingStatus = status
		case "year", "tax_year":
			year, err := strconv.Atoi(value)
			if err != nil {
				return in, fmt.Errorf("invalid tax year %q", value)
			}
			in.TaxYear = year
		case "country":
			in.Country = strings.ToUpper(value)
		case "state":
			in.State = strings.ToUpper(value)
		case "dependents":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return in, fmt.Errorf("invalid dependents count %q", value)
			}
			in.Dependents = n
		default:
			section, category, ok := strings.Cut(key, ".")
			if !ok || category == "" {
				return in, fmt.Errorf("unknown field %q (use income.<name>, deduction.<name> or expense.<name>)", key)
			}
			amount, err := parseNumber(value)
			if err != nil {
				return in, err
			}
			switch section {
			case "income", "i":
				in.Income[category] += amount
			case "deduction", "deductions", "d":
				in.Deductions[category] += amount
			case "expense", "expenses", "e":
				in.Expenses[category] += amount
			default:
				return in, fmt.Errorf("unknown section %q", section)
			}
		}
	}
	return in, nil
}

// parseIndiaArgs /india argumentlaridan IndiaInput yig'ish
func parseIndiaArgs(args string) (entity.IndiaInput, error) {
	in := entity.IndiaInput{Regime: entity.IndiaNewRegime}

	kv, err := parseKeyValues(args)
	if err != nil {
		return in, err
	}

	amounts := map[string]*float64{
		"income":     &in.Income,
		"80c":        &in.Sec80C,
		"80d":        &in.Sec80D,
		"hra":        &in.HRA,
		"home_loan":  &in.HomeLoan,
		"other":      &in.OtherExemptions,
		"nps":        &in.NPS,
		"exemptions": &in.OtherExemptions,
	}

	for key, value := range kv {
		if key == "regime" {
			switch entity.IndiaRegime(strings.ToLower(value)) {
			case entity.IndiaOldRegime:
				in.Regime = entity.IndiaOldRegime
			case entity.IndiaNewRegime:
				in.Regime = entity.IndiaNewRegime
			default:
				return in, fmt.Errorf("unknown regime %q (old or new)", value)
			}
			continue
		}
		dst, ok := amounts[key]
		if !ok {
			return in, fmt.Errorf("unknown field %q", key)
		}
		amount, err := parseNumber(value)
		if err != nil {
			return in, err
		}
		*dst = amount
	}

	if in.Income == 0 {
		return in, fmt.Errorf("income is required")
	}
	return in, nil
}

// splitMessage Telegram chegarasiga sig'adigan bo'laklarga ajratish
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var parts []string
	for len(runes) > limit {
		cut := limit
		// qator oxiridan bo'lishga harakat qilamiz
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
