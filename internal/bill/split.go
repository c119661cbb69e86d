package bill

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNoParticipants = errors.New("no participants")
	ErrEmptyReceipt   = errors.New("receipt has no line items")
)

type claimRef struct {
	participant int
	quantity    int64
}

// Calculate splits the receipt between participants.
// PURE arithmetic (NO llm / NO telegram).
//
// Every amount is worked in integer cents so the shares always add up
// to Split.Total exactly.
func Calculate(r *Receipt, participants []Participant) (*Split, error) {
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}
	if r == nil || len(r.Items) == 0 {
		return nil, ErrEmptyReceipt
	}

	matcher := NewMatcher(r.Items)
	lineClaims := make([][]claimRef, len(r.Items))
	// lines each participant claimed, in caption order
	claimedLines := make([][]int, len(participants))

	var unmatched []UnmatchedClaim
	hasClaims := false

	for pi, p := range participants {
		for _, c := range p.Items {
			assigned := matcher.Assign(c.Label, c.Quantity)
			if len(assigned) == 0 {
				unmatched = append(unmatched, UnmatchedClaim{Participant: p.Name, Label: c.Label})
				continue
			}
			hasClaims = true

			for _, a := range assigned {
				lineClaims[a.Line] = addClaim(lineClaims[a.Line], pi, int64(a.Quantity))
				if !containsInt(claimedLines[pi], a.Line) {
					claimedLines[pi] = append(claimedLines[pi], a.Line)
				}
			}
		}
	}

	// line -> participant -> cents
	lineAlloc := make([]map[int]int64, len(r.Items))
	subtotals := make([]int64, len(participants))

	var unclaimed []LineItem
	var claimedCents, unclaimedCents int64

	for i, item := range r.Items {
		price := toCents(item.Price)
		claims := lineClaims[i]
		if len(claims) == 0 {
			unclaimed = append(unclaimed, item)
			unclaimedCents += price
			continue
		}

		weights := make([]int64, len(claims))
		for j, c := range claims {
			weights[j] = c.quantity
		}
		parts := allocate(price, weights)

		lineAlloc[i] = make(map[int]int64, len(claims))
		for j, c := range claims {
			lineAlloc[i][c.participant] = parts[j]
			subtotals[c.participant] += parts[j]
		}
		claimedCents += price
	}

	extrasCents := toCents(r.Extras())
	claimedExtras := claimedShareOfExtras(extrasCents, claimedCents, unclaimedCents, hasClaims)
	extraParts := allocate(claimedExtras, subtotals)

	split := &Split{
		Unmatched:      unmatched,
		Unclaimed:      unclaimed,
		Subtotal:       fromCents(claimedCents),
		Extras:         fromCents(claimedExtras),
		Total:          fromCents(claimedCents + claimedExtras),
		UnclaimedTotal: fromCents(unclaimedCents + extrasCents - claimedExtras),
		ReceiptTotal:   r.Total,
		Currency:       r.Currency,
	}

	for pi, p := range participants {
		share := Share{
			Name:     p.Name,
			Subtotal: fromCents(subtotals[pi]),
			Extras:   fromCents(extraParts[pi]),
			Total:    fromCents(subtotals[pi] + extraParts[pi]),
		}
		for _, idx := range claimedLines[pi] {
			share.Items = append(share.Items, ShareItem{
				Label:      r.Items[idx].Name,
				Amount:     fromCents(lineAlloc[idx][pi]),
				SharedWith: len(lineClaims[idx]),
			})
		}
		split.Shares = append(split.Shares, share)
	}

	return split, nil
}

// claimedShareOfExtras scales extras down to the portion of the bill that
// someone actually claimed. Unclaimed lines keep their own part of the tax.
func claimedShareOfExtras(extras, claimed, unclaimed int64, hasClaims bool) int64 {
	if !hasClaims || extras == 0 {
		return 0
	}
	if unclaimed == 0 {
		return extras
	}
	items := claimed + unclaimed
	if items == 0 {
		return 0
	}
	return decimal.NewFromInt(extras).
		Mul(decimal.NewFromInt(claimed)).
		Div(decimal.NewFromInt(items)).
		Round(0).
		IntPart()
}

func addClaim(claims []claimRef, participant int, qty int64) []claimRef {
	for i := range claims {
		if claims[i].participant == participant {
			claims[i].quantity += qty
			return claims
		}
	}
	return append(claims, claimRef{participant: participant, quantity: qty})
}

// allocate splits total cents proportionally to weights with the
// largest-remainder method. Sum of the result == total.
// All-zero weights fall back to an equal split.
func allocate(total int64, weights []int64) []int64 {
	out := make([]int64, len(weights))
	if len(weights) == 0 || total == 0 {
		return out
	}
	if total < 0 {
		for i, v := range allocate(-total, weights) {
			out[i] = -v
		}
		return out
	}

	var sum int64
	for _, w := range weights {
		if w > 0 {
			sum += w
		}
	}
	w := weights
	if sum == 0 {
		w = make([]int64, len(weights))
		for i := range w {
			w[i] = 1
		}
		sum = int64(len(w))
	}

	rems := make([]int64, len(w))
	var given int64
	for i, wi := range w {
		if wi <= 0 {
			continue
		}
		num := total * wi
		out[i] = num / sum
		rems[i] = num % sum
		given += out[i]
	}

	for left := total - given; left > 0; left-- {
		best := -1
		for i, r := range rems {
			if w[i] <= 0 {
				continue
			}
			if best < 0 || r > rems[best] {
				best = i
			}
		}
		out[best]++
		rems[best] = -1
	}
	return out
}

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
