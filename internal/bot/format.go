package bot

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"billsplit/internal/bill"

	"github.com/shopspring/decimal"
)

const (
	labelWidth  = 22
	amountWidth = 10
)

// reconcileTolerance absorbs per-line rounding on the printed receipt
var reconcileTolerance = decimal.New(5, -2)

// FormatSplit renders a split as a Telegram HTML message
func FormatSplit(s *bill.Split) string {
	var table strings.Builder

	for i, share := range s.Shares {
		if i > 0 {
			table.WriteString("\n")
		}
		row(&table, share.Name, share.Total)
		for _, it := range share.Items {
			label := it.Label
			if it.SharedWith > 1 {
				label = fmt.Sprintf("%s (1/%d)", label, it.SharedWith)
			}
			row(&table, "  "+label, it.Amount)
		}
		if !share.Extras.IsZero() {
			row(&table, "  tax/tip/fees", share.Extras)
		}
	}

	table.WriteString(strings.Repeat("-", labelWidth+amountWidth) + "\n")
	row(&table, "Total", s.Total)

	var b strings.Builder
	b.WriteString("🧮 <b>Bill Split Results</b>")
	if s.Currency != "" {
		fmt.Fprintf(&b, " (%s)", html.EscapeString(s.Currency))
	}
	b.WriteString("\n<pre>")
	b.WriteString(html.EscapeString(strings.TrimRight(table.String(), "\n")))
	b.WriteString("</pre>")

	if len(s.Unmatched) > 0 {
		b.WriteString("\n\n<b>Not found on receipt:</b>")
		for _, u := range s.Unmatched {
			fmt.Fprintf(&b, "\n• %s: %s", html.EscapeString(u.Participant), html.EscapeString(u.Label))
		}
	}

	if len(s.Unclaimed) > 0 {
		b.WriteString("\n\n<b>Unclaimed on receipt:</b>")
		for _, it := range s.Unclaimed {
			fmt.Fprintf(&b, "\n• %s %s", html.EscapeString(it.Name), it.Price.StringFixed(2))
		}
		fmt.Fprintf(&b, "\nUnclaimed total incl. extras: %s", s.UnclaimedTotal.StringFixed(2))
	}

	if !s.Reconciles(reconcileTolerance) {
		fmt.Fprintf(&b, "\n\n⚠️ Split adds up to %s but the receipt total is %s. Some lines may have been misread.",
			s.Total.Add(s.UnclaimedTotal).StringFixed(2), s.ReceiptTotal.StringFixed(2))
	}

	return b.String()
}

func row(b *strings.Builder, label string, amount decimal.Decimal) {
	fmt.Fprintf(b, "%-*s%*s\n", labelWidth, truncate(label, labelWidth-1), amountWidth, amount.StringFixed(2))
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}
