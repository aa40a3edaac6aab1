package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/fingenie/assistant/internal/domain/entity"
	"github.com/fingenie/assistant/internal/usecase"
)

// welcomeMessage salom xabari
func welcomeMessage() string {
	return `Welcome to FinGenie! 👋

I'm your AI financial assistant. I can help you with:
• Budgeting, saving and investing questions
• Estimating your federal, state and payroll taxes
• Comparing India's old and new tax regimes
• Reviewing documents you upload

Start with /register <wallet address>, then just ask me anything. /help lists every command.`
}

// helpMessage yordam xabari
func helpMessage() string {
	return `🤖 FinGenie commands:

Account:
/register <address> - Sign in with your wallet address

Chats:
/new [title] - Start a new chat
/chats - List your chats
/use <chatId> - Switch to another chat
/history - Show the current chat
/delete <chatId> - Delete a chat
/export - Download all chats as JSON

Taxes:
/tax status=single year=2024 state=CA income.salary=85000 deduction.retirement=6000
/india regime=old income=1200000 80c=150000 hra=100000
/discuss - Ask FinGenie about your last tax estimate

Files:
• .json chat export - imports your chats
• .xlsx tax workbook - calculates your taxes
• any other document - attached to your next question`
}

// formatTaxSummary soliq natijasini qisqa ko'rinishda
func formatTaxSummary(r entity.TaxResult) string {
	var b strings.Builder
	b.WriteString("📊 Tax estimate\n\n")
	fmt.Fprintf(&b, "Total income: $%s\n", usecase.FormatMoney(r.TotalIncome))
	fmt.Fprintf(&b, "Deductions: $%s\n", usecase.FormatMoney(r.TotalDeductions))
	fmt.Fprintf(&b, "Taxable income: $%s\n\n", usecase.FormatMoney(r.TaxableIncome))
	fmt.Fprintf(&b, "Federal tax: $%s\n", usecase.FormatMoney(r.FederalTax))
	fmt.Fprintf(&b, "State tax: $%s\n", usecase.FormatMoney(r.StateTax))
	fmt.Fprintf(&b, "Medicare: $%s\n", usecase.FormatMoney(r.MedicareTax))
	fmt.Fprintf(&b, "Social Security: $%s\n", usecase.FormatMoney(r.SocialSecurityTax))
	fmt.Fprintf(&b, "Tax credits: $%s\n", usecase.FormatMoney(r.TaxCredits))
	fmt.Fprintf(&b, "Total tax: $%s\n\n", usecase.FormatMoney(r.TotalTax))
	fmt.Fprintf(&b, "Bracket: %s, effective rate %.2f%%\n", r.Bracket, r.EffectiveRate*100)
	if r.NextBracketThreshold > 0 {
		fmt.Fprintf(&b, "Next bracket starts at $%s\n", usecase.FormatMoney(r.NextBracketThreshold))
	}

	if len(r.SuggestedDeductions) > 0 {
		b.WriteString("\n💡 Suggestions:\n")
		for _, s := range r.SuggestedDeductions {
			fmt.Fprintf(&b, "• %s\n", s.Description)
		}
		fmt.Fprintf(&b, "Potential savings: $%s\n", usecase.FormatMoney(r.PotentialSavings))
	}

	b.WriteString("\nSend /discuss to talk these results through with FinGenie.")
	return b.String()
}

// formatIndiaSummary Hindiston kalkulyatori natijasi
func formatIndiaSummary(in entity.IndiaInput, r entity.IndiaResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🇮🇳 India income tax (%s regime)\n\n", in.Regime)
	fmt.Fprintf(&b, "Gross income: ₹%s\n", usecase.FormatMoney(r.GrossIncome))
	fmt.Fprintf(&b, "Taxable income: ₹%s\n", usecase.FormatMoney(r.TaxableIncome))
	fmt.Fprintf(&b, "Base tax: ₹%s\n", usecase.FormatMoney(r.BaseTax))
	fmt.Fprintf(&b, "Surcharge: ₹%s\n", usecase.FormatMoney(r.Surcharge))
	fmt.Fprintf(&b, "Cess: ₹%s\n", usecase.FormatMoney(r.Cess))
	fmt.Fprintf(&b, "Final tax: ₹%s", usecase.FormatMoney(r.FinalTax))
	return b.String()
}

// formatChatList chatlar ro'yxati
func formatChatList(chats []entity.Chat, active string) string {
	var b strings.Builder
	b.WriteString("💬 Your chats:\n\n")
	for _, c := range chats {
		marker := "  "
		if c.ID == active {
			marker = "▶ "
		}
		fmt.Fprintf(&b, "%s%s\n   %s · %s\n", marker, c.Title, c.ID, c.CreatedAt.Local().Format(time.DateOnly))
	}
	b.WriteString("\nSwitch with /use <chatId>.")
	return b.String()
}

// formatHistory chat xabarlari
func formatHistory(messages []entity.Message) string {
	var b strings.Builder
	for _, m := range messages {
		who := "🧑"
		if m.Role == entity.RoleBot {
			who = "🤖"
		}
		fmt.Fprintf(&b, "%s %s\n\n", who, m.Content)
	}
	return strings.TrimSpace(b.String())
}
