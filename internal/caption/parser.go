package caption

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"billsplit/internal/bill"
)

var ErrNoParticipants = errors.New("caption has no participant lines")

var (
	leadingQty  = regexp.MustCompile(`^(\d+)\s*[xX×*]\s*(.+)$`)
	trailingQty = regexp.MustCompile(`^(.+?)\s+[xX×*]\s*(\d+)$`)
)

// LineError describes one caption line that could not be parsed
type LineError struct {
	Line   int
	Text   string
	Reason string
}

// ParseError collects every bad line so the user can fix them in one go
type ParseError struct {
	Lines []LineError
}

func (e *ParseError) Error() string {
	parts := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		parts = append(parts, fmt.Sprintf("line %d: %s", l.Line, l.Reason))
	}
	return "invalid caption: " + strings.Join(parts, "; ")
}

// Parse turns a caption into ordered participants.
//
// Format, one participant per line:
//
//	@bot_username
//	Alice: burger, 2x fries
//	Bob: soda
//
// Any malformed line fails the whole caption.
func Parse(text, botUsername string) ([]bill.Participant, error) {
	mention := mentionPattern(botUsername)

	var (
		participants []bill.Participant
		index        = map[string]int{}
		bad          []LineError
	)

	// line numbers refer to the caption as the user typed it
	for i, raw := range strings.Split(text, "\n") {
		if mention != nil {
			raw = mention.ReplaceAllString(raw, "")
		}
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		name, rest, ok := strings.Cut(line, ":")
		if !ok {
			bad = append(bad, LineError{Line: i + 1, Text: line, Reason: "missing ':' between name and items"})
			continue
		}

		name = strings.TrimSpace(name)
		if name == "" {
			bad = append(bad, LineError{Line: i + 1, Text: line, Reason: "empty name"})
			continue
		}

		items := parseItems(rest)
		if len(items) == 0 {
			bad = append(bad, LineError{Line: i + 1, Text: line, Reason: "no items listed for " + name})
			continue
		}

		key := strings.ToLower(name)
		if at, seen := index[key]; seen {
			participants[at].Items = append(participants[at].Items, items...)
			continue
		}
		index[key] = len(participants)
		participants = append(participants, bill.Participant{Name: name, Items: items})
	}

	if len(bad) > 0 {
		return nil, &ParseError{Lines: bad}
	}
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}
	return participants, nil
}

func parseItems(s string) []bill.Claim {
	var items []bill.Claim
	for _, frag := range strings.Split(s, ",") {
		frag = strings.TrimSpace(frag)
		if frag == "" {
			continue
		}
		items = append(items, parseClaim(frag))
	}
	return items
}

func parseClaim(s string) bill.Claim {
	if m := leadingQty.FindStringSubmatch(s); m != nil {
		if q, err := strconv.Atoi(m[1]); err == nil && q > 0 {
			return bill.Claim{Label: strings.TrimSpace(m[2]), Quantity: q}
		}
	}
	if m := trailingQty.FindStringSubmatch(s); m != nil {
		if q, err := strconv.Atoi(m[2]); err == nil && q > 0 {
			return bill.Claim{Label: strings.TrimSpace(m[1]), Quantity: q}
		}
	}
	return bill.Claim{Label: s, Quantity: 1}
}

// mentionPattern matches "@name" as a whole word, case-insensitive.
// It returns nil for an empty username.
func mentionPattern(botUsername string) *regexp.Regexp {
	name := strings.TrimPrefix(strings.TrimSpace(botUsername), "@")
	if name == "" {
		return nil
	}
	return regexp.MustCompile(`(?i)@` + regexp.QuoteMeta(name) + `\b`)
}

// Mentions reports whether text tags the bot. "@name_old" is a different bot.
func Mentions(text, botUsername string) bool {
	re := mentionPattern(botUsername)
	return re != nil && re.MatchString(text)
}

// Labels flattens every claimed item label, de-duplicated, for model hints
func Labels(participants []bill.Participant) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range participants {
		for _, c := range p.Items {
			k := strings.ToLower(c.Label)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, c.Label)
		}
	}
	return out
}
