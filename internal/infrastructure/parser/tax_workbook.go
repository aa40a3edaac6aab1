package parser

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/fingenie/assistant/internal/domain/entity"
	"github.com/fingenie/assistant/internal/domain/repository"
	"github.com/fingenie/assistant/internal/domain/tax"
)

// Sheet nomlari
const (
	InputSheet       = "Input"
	ResultsSheet     = "Results"
	SuggestionsSheet = "Suggestions"
)

const (
	sectionIncome     = "income"
	sectionDeductions = "deductions"
	sectionExpenses   = "expenses"
)

type taxWorkbook struct {
	logger *zap.Logger
}

// NewTaxWorkbook yangi Excel soliq workbook parser yaratish
func NewTaxWorkbook(logger *zap.Logger) repository.TaxWorkbook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &taxWorkbook{logger: logger}
}

// ParseInput birinchi sheet dan `section | category | amount` qatorlarini o'qish
func (w *taxWorkbook) ParseInput(ctx context.Context, data []byte) (entity.TaxInput, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return entity.TaxInput{}, fmt.Errorf("failed to open excel from bytes: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return entity.TaxInput{}, fmt.Errorf("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return entity.TaxInput{}, fmt.Errorf("failed to get rows: %w", err)
	}
	if len(rows) == 0 {
		return entity.TaxInput{}, fmt.Errorf("excel file is empty")
	}

	return w.parseRows(rows)
}

func (w *taxWorkbook) parseRows(rows [][]string) (entity.TaxInput, error) {
	in := entity.TaxInput{
		Income:     map[string]float64{},
		Deductions: map[string]float64{},
		Expenses:   map[string]float64{},
	}

	// Header bormi: 3-ustun raqam yoki metadata qatori bo'lsa, birinchi qator data
	startRow := 0
	columns := mapColumns(nil)
	if _, err := parseAmount(cell(rows[0], 2)); err != nil && !isMetadataRow(rows[0]) {
		columns = mapColumns(rows[0])
		startRow = 1
	}
	w.logger.Debug("tax workbook column mapping", zap.Any("columns", columns), zap.Int("rows", len(rows)))

	sectionCol, categoryCol, amountCol := columns["section"], columns["category"], columns["amount"]
	found := 0

	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		if isMetadataRow(row) {
			if err := applyMetadata(&in, row); err != nil {
				return entity.TaxInput{}, fmt.Errorf("row %d: %w", i+1, err)
			}
			found++
			continue
		}

		section := normalizeSection(cell(row, sectionCol))
		category := normalizeKey(cell(row, categoryCol))
		if section == "" || category == "" {
			w.logger.Debug("skipping tax workbook row", zap.Int("row", i+1), zap.Strings("cells", row))
			continue
		}

		amount, err := parseAmount(cell(row, amountCol))
		if err != nil {
			w.logger.Debug("invalid amount in tax workbook", zap.Int("row", i+1), zap.Error(err))
			continue
		}

		switch section {
		case sectionIncome:
			in.Income[category] += amount
		case sectionDeductions:
			in.Deductions[category] += amount
		case sectionExpenses:
			in.Expenses[category] += amount
		}
		found++
	}

	if found == 0 {
		return entity.TaxInput{}, fmt.Errorf("no valid tax rows found in excel file (parsed %d rows)", len(rows))
	}
	return in, nil
}

var metadataKeys = map[string]struct{}{
	"filing_status": {},
	"tax_year":      {},
	"state":         {},
	"country":       {},
	"dependents":    {},
}

func isMetadataRow(row []string) bool {
	_, ok := metadataKeys[normalizeKey(cell(row, 0))]
	return ok
}

// applyMetadata `filing_status | single` kabi qatorlar; qiymat 2- yoki 3-ustunda
func applyMetadata(in *entity.TaxInput, row []string) error {
	value := strings.TrimSpace(cell(row, 1))
	if value == "" {
		value = strings.TrimSpace(cell(row, 2))
	}

	switch normalizeKey(cell(row, 0)) {
	case "filing_status":
		in.FilingStatus = entity.FilingStatus(normalizeKey(value))
	case "tax_year":
		if value == "" {
			return nil
		}
		year, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid tax year %q", value)
		}
		in.TaxYear = year
	case "state":
		in.State = strings.ToUpper(value)
	case "country":
		in.Country = strings.ToUpper(value)
	case "dependents":
		if value == "" {
			return nil
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid dependents count %q", value)
		}
		in.Dependents = n
	}
	return nil
}

// mapColumns header qatoridan column mapping yaratish
func mapColumns(header []string) map[string]int {
	columns := map[string]int{}
	for i, col := range header {
		name := strings.ToLower(strings.TrimSpace(col))
		switch {
		case contains(name, "section", "type", "group", "bo'lim"):
			columns["section"] = i
		case contains(name, "category", "item", "name", "kategoriya"):
			columns["category"] = i
		case contains(name, "amount", "value", "sum", "$", "usd"):
			columns["amount"] = i
		}
	}

	// topilmagan ustunlar uchun default tartib
	for key, def := range map[string]int{"section": 0, "category": 1, "amount": 2} {
		if _, ok := columns[key]; !ok {
			columns[key] = def
		}
	}
	return columns
}

func normalizeSection(s string) string {
	switch normalizeKey(s) {
	case "income", "incomes", "daromad":
		return sectionIncome
	case "deduction", "deductions":
		return sectionDeductions
	case "expense", "expenses", "xarajat":
		return sectionExpenses
	}
	return ""
}

// normalizeKey "Health Insurance" -> "health_insurance"
func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// isEmptyRow qator bo'sh yoki yo'qligini tekshirish
func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// contains tekshirish uchun helper
func contains(str string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(str, keyword) {
			return true
		}
	}
	return false
}

// parseAmount summani parse qilish ("$1,200.50", "₹ 250000")
func parseAmount(s string) (float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	for _, junk := range []string{",", " ", "$", "€", "£", "₹", "usd", "inr"} {
		s = strings.ReplaceAll(s, junk, "")
	}

	amount, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount format: %s", s)
	}
	return amount, nil
}

// WriteReport hisobotni xlsx formatida yozish. Input sheet ParseInput bilan qayta o'qiladi.
func (w *taxWorkbook) WriteReport(ctx context.Context, report entity.TaxReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", InputSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{ResultsSheet, SuggestionsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	if err := writeRows(f, InputSheet, inputRows(report.TaxData)); err != nil {
		return nil, err
	}
	if err := writeRows(f, ResultsSheet, resultRows(report)); err != nil {
		return nil, err
	}
	if err := writeRows(f, SuggestionsSheet, suggestionRows(report.TaxResults.SuggestedDeductions)); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		addr, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, addr, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func inputRows(in entity.TaxInput) [][]any {
	rows := [][]any{
		{"section", "category", "amount"},
		{"filing_status", string(in.FilingStatus)},
		{"tax_year", in.TaxYear},
		{"state", in.State},
		{"country", in.Country},
		{"dependents", in.Dependents},
	}
	for _, sec := range []struct {
		name   string
		values map[string]float64
	}{
		{sectionIncome, in.Income},
		{sectionDeductions, in.Deductions},
		{sectionExpenses, in.Expenses},
	} {
		for _, key := range sortedKeys(sec.values) {
			rows = append(rows, []any{sec.name, key, sec.values[key]})
		}
	}
	return rows
}

func resultRows(report entity.TaxReport) [][]any {
	r := report.TaxResults
	return [][]any{
		{"metric", "value"},
		{"name", report.User.Name},
		{"did", report.User.DID},
		{"generated_at", report.GeneratedAt.Format(time.RFC3339)},
		{"total_income", r.TotalIncome},
		{"total_deductions", r.TotalDeductions},
		{"total_expenses", r.TotalExpenses},
		{"taxable_income", r.TaxableIncome},
		{"federal_tax", r.FederalTax},
		{"state_tax", r.StateTax},
		{"medicare_tax", r.MedicareTax},
		{"social_security_tax", r.SocialSecurityTax},
		{"tax_credits", r.TaxCredits},
		{"total_tax", r.TotalTax},
		{"effective_rate", tax.FormatRate(r.EffectiveRate)},
		{"marginal_rate", tax.FormatRate(r.MarginalRate)},
		{"tax_bracket", r.Bracket},
		{"next_bracket_threshold", r.NextBracketThreshold},
		{"potential_savings", r.PotentialSavings},
	}
}

func suggestionRows(suggestions []entity.Suggestion) [][]any {
	rows := [][]any{{"type", "description", "current", "suggested", "potential"}}
	for _, s := range suggestions {
		rows = append(rows, []any{s.Type, s.Description, s.Current, s.Suggested, s.Potential})
	}
	return rows
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
