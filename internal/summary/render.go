package summary

import (
	"strings"

	"github.com/Veraticus/spendmail/internal/model"
	"github.com/shopspring/decimal"
)

// Render formats the summary as a Telegram Markdown message.
func Render(s *Summary) string {
	var b strings.Builder

	b.WriteString("📅 *Daily Spend Summary* - " + s.Date.Format(model.DisplayDateLayout) + "\n\n")

	if s.Today.Total.IsPositive() {
		writeBucket(&b, &s.Today)
		b.WriteString("📊 *Total Spent Today*: " + rupees(s.Today.Total) + "\n\n")
	} else {
		b.WriteString("No spends today ✅\n\n")
	}

	b.WriteString("📆 *Month-to-Date (" + s.Date.Format("January 2006") + ")*\n\n")
	writeBucket(&b, &s.MonthToDate)
	b.WriteString("📊 *Total MTD*: " + rupees(s.MonthToDate.Total))

	return b.String()
}

func writeBucket(b *strings.Builder, bucket *Bucket) {
	for _, o := range bucket.Owners {
		b.WriteString("👤 *" + o.Owner + "*\n")
		for _, bank := range o.Banks {
			b.WriteString("💳 " + bank.Bank + ": " + rupees(bank.Amount) + "\n")
		}
		b.WriteString("\n")
	}
}

func rupees(d decimal.Decimal) string {
	return "Rs. " + d.StringFixed(2)
}
