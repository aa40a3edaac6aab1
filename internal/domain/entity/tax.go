package entity

import "time"

// FilingStatus soliq deklaratsiyasi turi
type FilingStatus string

const (
	FilingSingle          FilingStatus = "single"
	FilingMarriedJoint    FilingStatus = "married_joint"
	FilingMarriedSeparate FilingStatus = "married_separate"
	FilingHeadOfHousehold FilingStatus = "head_household"
)

// TaxInput soliq hisoblash uchun kiruvchi ma'lumotlar
type TaxInput struct {
	FilingStatus FilingStatus       `json:"filingStatus" yaml:"filing_status"`
	TaxYear      int                `json:"taxYear" yaml:"tax_year"`
	Country      string             `json:"country" yaml:"country"`
	State        string             `json:"state" yaml:"state"`
	Dependents   int                `json:"dependents" yaml:"dependents"`
	Income       map[string]float64 `json:"income" yaml:"income"`
	Deductions   map[string]float64 `json:"deductions" yaml:"deductions"`
	Expenses     map[string]float64 `json:"expenses" yaml:"expenses"`
}

// Suggestion ishlatilmagan chegirma imkoniyati
type Suggestion struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Current     float64 `json:"current"`
	Suggested   float64 `json:"suggested"`
	Potential   float64 `json:"potential"`
}

// TaxResult hisoblangan soliq natijasi
type TaxResult struct {
	TotalIncome          float64      `json:"totalIncome"`
	TotalDeductions      float64      `json:"totalDeductions"`
	TotalExpenses        float64      `json:"totalExpenses"`
	TaxableIncome        float64      `json:"taxableIncome"`
	BaseTax              float64      `json:"baseTax"`
	FederalTax           float64      `json:"federalTax"`
	StateTax             float64      `json:"stateTax"`
	MedicareTax          float64      `json:"medicareTax"`
	SocialSecurityTax    float64      `json:"socialSecurityTax"`
	TaxCredits           float64      `json:"taxCredits"`
	TotalTax             float64      `json:"totalTax"`
	EffectiveRate        float64      `json:"effectiveTaxRate"`
	MarginalRate         float64      `json:"marginalTaxRate"`
	Bracket              string       `json:"taxBracket"`
	NextBracketThreshold float64      `json:"nextBracketThreshold"`
	PotentialSavings     float64      `json:"potentialSavings"`
	SuggestedDeductions  []Suggestion `json:"suggestedDeductions"`
}

// SimulationParams "what-if" o'zgarishlar
type SimulationParams struct {
	RetirementIncrease float64 `json:"retirementIncrease"`
	CharitableIncrease float64 `json:"charitableIncrease"`
	IncomeIncrease     float64 `json:"incomeIncrease"`
}

// SimulationResult simulyatsiya natijasi
type SimulationResult struct {
	TaxableIncome        float64 `json:"newTaxableIncome"`
	FederalTax           float64 `json:"newFederalTax"`
	StateTax             float64 `json:"newStateTax"`
	MedicareTax          float64 `json:"newMedicareTax"`
	SocialSecurityTax    float64 `json:"newSocialSecurityTax"`
	TotalTax             float64 `json:"newTotalTax"`
	EffectiveRate        float64 `json:"newEffectiveRate"`
	MarginalRate         float64 `json:"newMarginalRate"`
	TaxSavings           float64 `json:"taxSavings"`
	AdditionalDeductions float64 `json:"additionalDeductions"`
	AdditionalIncome     float64 `json:"additionalIncome"`
}

// IndiaRegime Hindiston soliq rejimi
type IndiaRegime string

const (
	IndiaOldRegime IndiaRegime = "old"
	IndiaNewRegime IndiaRegime = "new"
)

// IndiaInput Hindiston kalkulyatori uchun kiruvchi ma'lumotlar
type IndiaInput struct {
	Regime          IndiaRegime `json:"regime" yaml:"regime"`
	Income          float64     `json:"income" yaml:"income"`
	Sec80C          float64     `json:"sec80c" yaml:"sec80c"`
	Sec80D          float64     `json:"sec80d" yaml:"sec80d"`
	HRA             float64     `json:"hra" yaml:"hra"`
	HomeLoan        float64     `json:"homeLoan" yaml:"home_loan"`
	OtherExemptions float64     `json:"otherExemptions" yaml:"other_exemptions"`
	NPS             float64     `json:"nps" yaml:"nps"`
}

// IndiaResult Hindiston kalkulyatori natijasi
type IndiaResult struct {
	GrossIncome   float64 `json:"grossIncome"`
	TaxableIncome float64 `json:"taxableIncome"`
	BaseTax       float64 `json:"baseTax"`
	Surcharge     float64 `json:"surcharge"`
	Cess          float64 `json:"cess"`
	FinalTax      float64 `json:"finalTax"`
}

// TaxProfile foydalanuvchining saqlangan soliq ma'lumotlari
type TaxProfile struct {
	UserID  string    `json:"userId"`
	Input   TaxInput  `json:"taxData"`
	Result  TaxResult `json:"taxResults"`
	SavedAt time.Time `json:"savedAt"`
}

// ReportUser hisobotdagi foydalanuvchi
type ReportUser struct {
	Name string `json:"name"`
	DID  string `json:"did"`
}

// TaxReport yuklab olinadigan soliq hisoboti
type TaxReport struct {
	User        ReportUser `json:"user"`
	TaxData     TaxInput   `json:"taxData"`
	TaxResults  TaxResult  `json:"taxResults"`
	GeneratedAt time.Time  `json:"generatedAt"`
}
