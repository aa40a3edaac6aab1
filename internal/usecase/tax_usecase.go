package usecase

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/fingenie/assistant/internal/domain/entity"
	"github.com/fingenie/assistant/internal/domain/repository"
	"github.com/fingenie/assistant/internal/domain/tax"
	"github.com/fingenie/assistant/internal/session"
)

// anonymousReportName sessiyasiz hisobot egasi
const anonymousReportName = "Anonymous"

// TaxUseCase soliq hisoblash, profil va hisobotlar
type TaxUseCase interface {
	// Calculate hisoblaydi; sessiya bo'lsa profilni saqlaydi
	Calculate(ctx context.Context, in entity.TaxInput) (entity.TaxResult, error)

	// LatestProfile sessiya foydalanuvchisining oxirgi profili
	LatestProfile(ctx context.Context) (*entity.TaxProfile, error)

	Simulate(ctx context.Context, in entity.TaxInput, params entity.SimulationParams) entity.SimulationResult
	CalculateIndia(in entity.IndiaInput) entity.IndiaResult

	// Report JSON hisobot, ReportWorkbook xuddi shu hisobot xlsx ko'rinishida
	Report(ctx context.Context, in entity.TaxInput) (entity.TaxReport, error)
	ReportWorkbook(ctx context.Context, in entity.TaxInput) ([]byte, error)

	// ImportWorkbook xlsx fayldan TaxInput o'qish
	ImportWorkbook(ctx context.Context, data []byte) (entity.TaxInput, error)

	// FormatForChat natijalarni yordamchiga yuboriladigan matnga aylantirish
	FormatForChat(in entity.TaxInput, result entity.TaxResult) string
}

type taxUseCase struct {
	profileRepo repository.TaxProfileRepository
	workbook    repository.TaxWorkbook
	logger      *zap.Logger
}

// NewTaxUseCase yangi TaxUseCase yaratish
func NewTaxUseCase(
	profileRepo repository.TaxProfileRepository,
	workbook repository.TaxWorkbook,
	logger *zap.Logger,
) TaxUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &taxUseCase{
		profileRepo: profileRepo,
		workbook:    workbook,
		logger:      logger,
	}
}

// Calculate soliqni hisoblash
func (u *taxUseCase) Calculate(ctx context.Context, in entity.TaxInput) (entity.TaxResult, error) {
	result := tax.Calculate(in)

	s, ok := session.FromContext(ctx)
	if !ok {
		return result, nil
	}

	profile := entity.TaxProfile{
		UserID:  s.UserID,
		Input:   in,
		Result:  result,
		SavedAt: time.Now().UTC(),
	}
	if err := u.profileRepo.Save(ctx, profile); err != nil {
		u.logger.Error("tax profile save failed", zap.String("user_id", s.UserID), zap.Error(err))
		return result, fmt.Errorf("failed to save tax profile: %w", err)
	}
	u.logger.Info("tax profile saved",
		zap.String("user_id", s.UserID),
		zap.Float64("total_tax", result.TotalTax),
		zap.String("bracket", result.Bracket))
	return result, nil
}

// LatestProfile oxirgi saqlangan profil
func (u *taxUseCase) LatestProfile(ctx context.Context) (*entity.TaxProfile, error) {
	s, err := session.Require(ctx)
	if err != nil {
		return nil, err
	}
	return u.profileRepo.Latest(ctx, s.UserID)
}

// Simulate "what-if" hisob
func (u *taxUseCase) Simulate(ctx context.Context, in entity.TaxInput, params entity.SimulationParams) entity.SimulationResult {
	result := tax.Simulate(in, params)
	u.logger.Debug("tax simulation",
		zap.Float64("retirement_increase", params.RetirementIncrease),
		zap.Float64("charitable_increase", params.CharitableIncrease),
		zap.Float64("income_increase", params.IncomeIncrease),
		zap.Float64("tax_savings", result.TaxSavings))
	return result
}

// CalculateIndia Hindiston soliq kalkulyatori
func (u *taxUseCase) CalculateIndia(in entity.IndiaInput) entity.IndiaResult {
	return tax.CalculateIndia(in)
}

// Report hisobot yaratish
func (u *taxUseCase) Report(ctx context.Context, in entity.TaxInput) (entity.TaxReport, error) {
	result, err := u.Calculate(ctx, in)
	if err != nil {
		return entity.TaxReport{}, err
	}

	user := entity.ReportUser{Name: anonymousReportName}
	if s, ok := session.FromContext(ctx); ok {
		user = entity.ReportUser{Name: s.Username, DID: s.UserID}
	}

	return entity.TaxReport{
		User:        user,
		TaxData:     in,
		TaxResults:  result,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// ReportWorkbook hisobotni xlsx ko'rinishida
func (u *taxUseCase) ReportWorkbook(ctx context.Context, in entity.TaxInput) ([]byte, error) {
	report, err := u.Report(ctx, in)
	if err != nil {
		return nil, err
	}
	data, err := u.workbook.WriteReport(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("failed to write tax workbook: %w", err)
	}
	return data, nil
}

// ImportWorkbook xlsx dan TaxInput
func (u *taxUseCase) ImportWorkbook(ctx context.Context, data []byte) (entity.TaxInput, error) {
	in, err := u.workbook.ParseInput(ctx, data)
	if err != nil {
		return entity.TaxInput{}, fmt.Errorf("failed to parse tax workbook: %w", err)
	}
	return in, nil
}

// FormatForChat natijalarni chat uchun formatlash
func (u *taxUseCase) FormatForChat(in entity.TaxInput, r entity.TaxResult) string {
	var b strings.Builder
	b.WriteString("Here are my tax calculation results:\n\n")
	fmt.Fprintf(&b, "Filing Status: %s\n", in.FilingStatus)
	fmt.Fprintf(&b, "Tax Year: %s\n", formatYear(in.TaxYear))
	fmt.Fprintf(&b, "Country: %s\n", in.Country)
	fmt.Fprintf(&b, "State: %s\n\n", in.State)

	b.WriteString("Income Summary:\n")
	fmt.Fprintf(&b, "- Total Income: $%s\n", FormatMoney(r.TotalIncome))
	fmt.Fprintf(&b, "- Total Deductions: $%s\n", FormatMoney(r.TotalDeductions))
	fmt.Fprintf(&b, "- Total Expenses: $%s\n", FormatMoney(r.TotalExpenses))
	fmt.Fprintf(&b, "- Taxable Income: $%s\n\n", FormatMoney(r.TaxableIncome))

	b.WriteString("Tax Breakdown:\n")
	fmt.Fprintf(&b, "- Federal Tax: $%s\n", FormatMoney(r.FederalTax))
	fmt.Fprintf(&b, "- State Tax: $%s\n", FormatMoney(r.StateTax))
	fmt.Fprintf(&b, "- Medicare Tax: $%s\n", FormatMoney(r.MedicareTax))
	fmt.Fprintf(&b, "- Social Security Tax: $%s\n", FormatMoney(r.SocialSecurityTax))
	fmt.Fprintf(&b, "- Tax Credits: $%s\n", FormatMoney(r.TaxCredits))
	fmt.Fprintf(&b, "- Total Tax: $%s\n\n", FormatMoney(r.TotalTax))

	b.WriteString("Tax Rates:\n")
	fmt.Fprintf(&b, "- Marginal Tax Bracket: %s\n", r.Bracket)
	fmt.Fprintf(&b, "- Effective Tax Rate: %.2f%%\n\n", r.EffectiveRate*100)

	fmt.Fprintf(&b, "Potential Tax Savings: $%s\n\n", FormatMoney(r.PotentialSavings))
	b.WriteString("Can you analyze these results and suggest any tax optimization strategies?")
	return b.String()
}

func formatYear(year int) string {
	if year == 0 {
		return ""
	}
	return strconv.Itoa(year)
}

// FormatMoney 1234567.5 -> "1,234,567.5" (ko'pi bilan 2 kasr xona)
func FormatMoney(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	v = math.Round(v*100) / 100
	if v == 0 {
		return "0"
	}
	return humanize.CommafWithDigits(v, 2)
}
