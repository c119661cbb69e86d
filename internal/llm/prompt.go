package llm

import "strings"

func BuildReceiptPrompt(hints []string) string {
	var b strings.Builder
	b.WriteString(`
You are an expert receipt analyzing engine.

Your task:
- Read EVERY purchased line item on the receipt image.
- Output MUST be valid JSON.
- Output MUST start with { and end with }.
- Output MUST contain ONLY JSON.
- NO explanations.
- NO markdown.
- NO comments.

Rules:
- "price" is the LINE total as printed (quantity already applied).
- "quantity" is the printed quantity, 1 when not printed.
- Do NOT list tax, tip, service charge, discounts or totals as items.
- Use 0 for any amount that is not printed.
- Amounts are plain numbers without currency symbols.

If you cannot read the receipt, return this exact JSON:
{
  "items": [],
  "subtotal": 0,
  "tax": 0,
  "tip": 0,
  "service_charge": 0,
  "discount": 0,
  "total": 0,
  "currency": ""
}

Required JSON schema:
{
  "items": [
    {
      "name": "string",
      "quantity": number,
      "price": number
    }
  ],
  "subtotal": number,
  "tax": number,
  "tip": number,
  "service_charge": number,
  "discount": number,
  "total": number,
  "currency": "ISO 4217 code"
}
`)

	if len(hints) > 0 {
		b.WriteString("\nThe diners called their items:\n")
		for _, h := range hints {
			b.WriteString("- ")
			b.WriteString(h)
			b.WriteString("\n")
		}
		b.WriteString("When a receipt line is clearly one of these, use the diner's name for it exactly.\n")
	}

	return b.String()
}
