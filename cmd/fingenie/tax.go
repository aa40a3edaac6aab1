package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fingenie/assistant/internal/domain/entity"
	"github.com/fingenie/assistant/internal/usecase"
)

var (
	taxFile       string
	taxJSON       bool
	taxReportPath string
	taxPrompt     bool

	india entity.IndiaInput
)

// taxCmd calculates US taxes from a YAML, JSON or XLSX file
var taxCmd = &cobra.Command{
	Use:   "tax",
	Short: "Calculate tax liability from a YAML, JSON or XLSX file",
	Long: `Reads a tax input file and prints the estimate.

YAML example:
  filing_status: single
  tax_year: 2024
  country: US
  state: CA
  income:
    salary: 85000
  deductions:
    retirement: 6000`,
	RunE: runTax,
}

// taxIndiaCmd runs the India old/new regime calculator
var taxIndiaCmd = &cobra.Command{
	Use:   "india",
	Short: "Calculate India income tax under the old or new regime",
	RunE:  runTaxIndia,
}

func init() {
	taxCmd.Flags().StringVarP(&taxFile, "file", "f", "", "Tax input file (.yaml, .yml, .json or .xlsx)")
	taxCmd.PersistentFlags().BoolVar(&taxJSON, "json", false, "Print the result as JSON")
	taxCmd.Flags().StringVar(&taxReportPath, "report", "", "Also write an XLSX report to this path")
	taxCmd.Flags().BoolVar(&taxPrompt, "prompt", false, "Print the assistant prompt for these results")
	_ = taxCmd.MarkFlagRequired("file")

	f := taxIndiaCmd.Flags()
	f.StringVar((*string)(&india.Regime), "regime", string(entity.IndiaNewRegime), "Tax regime: old or new")
	f.Float64Var(&india.Income, "income", 0, "Gross annual income")
	f.Float64Var(&india.Sec80C, "80c", 0, "Section 80C investments")
	f.Float64Var(&india.Sec80D, "80d", 0, "Section 80D health insurance")
	f.Float64Var(&india.HRA, "hra", 0, "House rent allowance exemption")
	f.Float64Var(&india.HomeLoan, "home-loan", 0, "Home loan interest")
	f.Float64Var(&india.OtherExemptions, "other", 0, "Other exemptions")
	f.Float64Var(&india.NPS, "nps", 0, "NPS contribution")

	taxCmd.AddCommand(taxIndiaCmd)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadTaxInput reads a tax input file by extension.
func loadTaxInput(ctx context.Context, tax usecase.TaxUseCase, path string) (entity.TaxInput, error) {
	var in entity.TaxInput

	data, err := os.ReadFile(path)
	if err != nil {
		return in, fmt.Errorf("read tax input: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &in)
	case ".json":
		err = json.Unmarshal(data, &in)
	case ".xlsx", ".xlsm":
		in, err = tax.ImportWorkbook(ctx, data)
	default:
		return in, fmt.Errorf("unsupported tax input format %q", filepath.Ext(path))
	}
	if err != nil {
		return in, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	if in.FilingStatus == "" {
		in.FilingStatus = entity.FilingSingle
	}
	if in.Country == "" {
		in.Country = "US"
	}
	return in, nil
}

func runTax(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	in, err := loadTaxInput(ctx, a.tax, taxFile)
	if err != nil {
		return err
	}

	result, err := a.tax.Calculate(ctx, in)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case taxJSON:
		if err := writeJSON(out, result); err != nil {
			return err
		}
	case taxPrompt:
		fmt.Fprintln(out, a.tax.FormatForChat(in, result))
	default:
		printTaxResult(out, result)
	}

	if taxReportPath != "" {
		data, err := a.tax.ReportWorkbook(ctx, in)
		if err != nil {
			return err
		}
		if err := os.WriteFile(taxReportPath, data, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", taxReportPath)
	}
	return nil
}

func runTaxIndia(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	if india.Regime != entity.IndiaOldRegime && india.Regime != entity.IndiaNewRegime {
		return fmt.Errorf("unknown regime %q (old or new)", india.Regime)
	}

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result := a.tax.CalculateIndia(india)
	if taxJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Regime:          %s\n", india.Regime)
	fmt.Fprintf(out, "Gross income:    ₹%s\n", usecase.FormatMoney(result.GrossIncome))
	fmt.Fprintf(out, "Taxable income:  ₹%s\n", usecase.FormatMoney(result.TaxableIncome))
	fmt.Fprintf(out, "Base tax:        ₹%s\n", usecase.FormatMoney(result.BaseTax))
	fmt.Fprintf(out, "Surcharge:       ₹%s\n", usecase.FormatMoney(result.Surcharge))
	fmt.Fprintf(out, "Cess:            ₹%s\n", usecase.FormatMoney(result.Cess))
	fmt.Fprintf(out, "Final tax:       ₹%s\n", usecase.FormatMoney(result.FinalTax))
	return nil
}

func printTaxResult(w io.Writer, r entity.TaxResult) {
	fmt.Fprintf(w, "Total income:       $%s\n", usecase.FormatMoney(r.TotalIncome))
	fmt.Fprintf(w, "Total deductions:   $%s\n", usecase.FormatMoney(r.TotalDeductions))
	fmt.Fprintf(w, "Total expenses:     $%s\n", usecase.FormatMoney(r.TotalExpenses))
	fmt.Fprintf(w, "Taxable income:     $%s\n", usecase.FormatMoney(r.TaxableIncome))
	fmt.Fprintf(w, "Federal tax:        $%s\n", usecase.FormatMoney(r.FederalTax))
	fmt.Fprintf(w, "State tax:          $%s\n", usecase.FormatMoney(r.StateTax))
	fmt.Fprintf(w, "Medicare tax:       $%s\n", usecase.FormatMoney(r.MedicareTax))
	fmt.Fprintf(w, "Social Security:    $%s\n", usecase.FormatMoney(r.SocialSecurityTax))
	fmt.Fprintf(w, "Tax credits:        $%s\n", usecase.FormatMoney(r.TaxCredits))
	fmt.Fprintf(w, "Total tax:          $%s\n", usecase.FormatMoney(r.TotalTax))
	fmt.Fprintf(w, "Effective rate:     %.2f%%\n", r.EffectiveRate*100)
	fmt.Fprintf(w, "Marginal bracket:   %s\n", r.Bracket)
	if r.NextBracketThreshold > 0 {
		fmt.Fprintf(w, "Next bracket at:    $%s\n", usecase.FormatMoney(r.NextBracketThreshold))
	}
	for _, s := range r.SuggestedDeductions {
		fmt.Fprintf(w, "Suggestion:         %s\n", s.Description)
	}
	if r.PotentialSavings > 0 {
		fmt.Fprintf(w, "Potential savings:  $%s\n", usecase.FormatMoney(r.PotentialSavings))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
