package telegram

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fingenie/assistant/internal/domain/entity"
)

func TestParseTaxArgs(t *testing.T) {
	in, err := parseTaxArgs("status=joint year=2024 state=ca dependents=2 income.salary=85,000 i.rental=$1200 deduction.retirement=6000 d.retirement=500 expense.travel=300")
	require.NoError(t, err)

	want := entity.TaxInput{
		FilingStatus: entity.FilingMarriedJoint,
		TaxYear:      2024,
		Country:      "US",
		State:        "CA",
		Dependents:   2,
		Income:       map[string]float64{"salary": 85000, "rental": 1200},
		Deductions:   map[string]float64{"retirement": 6500},
		Expenses:     map[string]float64{"travel": 300},
	}
	if diff := cmp.Diff(want, in); diff != "" {
		t.Errorf("parseTaxArgs mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTaxArgs_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":           "",
		"no equals":       "income.salary",
		"unknown status":  "status=widowed income.salary=1",
		"bad year":        "year=twenty",
		"bad dependents":  "dependents=-1",
		"bare category":   "salary=1000",
		"unknown section": "bonus.salary=1",
		"bad amount":      "income.salary=lots",
		"negative amount": "income.salary=-5",
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseTaxArgs(args)
			assert.Error(t, err)
		})
	}
}

func TestParseIndiaArgs(t *testing.T) {
	in, err := parseIndiaArgs("regime=OLD income=1200000 80c=150000 80d=25000 hra=100000 home_loan=200000 nps=50000 other=10000")
	require.NoError(t, err)
	assert.Equal(t, entity.IndiaInput{
		Regime:          entity.IndiaOldRegime,
		Income:          1200000,
		Sec80C:          150000,
		Sec80D:          25000,
		HRA:             100000,
		HomeLoan:        200000,
		NPS:             50000,
		OtherExemptions: 10000,
	}, in)

	def, err := parseIndiaArgs("income=700000")
	require.NoError(t, err)
	assert.Equal(t, entity.IndiaNewRegime, def.Regime)

	for _, bad := range []string{"", "regime=flat income=1", "income=1 gift=5", "80c=100"} {
		_, err := parseIndiaArgs(bad)
		assert.Error(t, err, bad)
	}
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	lines := strings.Repeat("abcd\n", 5) // 25 runes
	parts := splitMessage(lines, 12)
	assert.Equal(t, lines, strings.Join(parts, ""))
	for _, p := range parts {
		assert.LessOrEqual(t, len([]rune(p)), 12)
	}
	assert.Equal(t, "abcd\nabcd\n", parts[0])

	noBreaks := strings.Repeat("é", 25)
	parts = splitMessage(noBreaks, 10)
	assert.Len(t, parts, 3)
	assert.Equal(t, noBreaks, strings.Join(parts, ""))
}
