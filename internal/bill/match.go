package bill

import (
	"sort"
	"strings"
	"unicode"
)

const minOverlap = 0.5

// Matcher maps caption labels to receipt lines.
// It tracks how many units of each line are already claimed so
// duplicate receipt lines ("burger", "burger") get spread across
// claimants and a "2x beer" claim can cover two single beer lines.
type Matcher struct {
	lines   [][]string
	qty     []int
	claimed []int
}

// Assignment is the part of a claim that landed on one receipt line
type Assignment struct {
	Line     int
	Quantity int
}

func NewMatcher(items []LineItem) *Matcher {
	m := &Matcher{
		lines:   make([][]string, len(items)),
		qty:     make([]int, len(items)),
		claimed: make([]int, len(items)),
	}
	for i, it := range items {
		m.lines[i] = tokens(it.Name)
		m.qty[i] = max(it.Quantity, 1)
	}
	return m
}

// Match returns the index of the best line for a single unit of label, or -1
func (m *Matcher) Match(label string) int {
	got := m.Assign(label, 1)
	if len(got) == 0 {
		return -1
	}
	return got[0].Line
}

// Assign spreads qty units of label over the best scoring lines, least
// claimed first, filling each up to its printed quantity. Units left over
// once every candidate is full go to the first line used.
// It returns nil when nothing matches.
func (m *Matcher) Assign(label string, qty int) []Assignment {
	want := tokens(label)
	if len(want) == 0 {
		return nil
	}
	qty = max(qty, 1)

	bestScore := 0.0
	var candidates []int
	for i, line := range m.lines {
		s := score(want, line)
		switch {
		case s == 0 || s < bestScore:
		case s > bestScore:
			bestScore = s
			candidates = []int{i}
		default:
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return m.claimed[candidates[a]] < m.claimed[candidates[b]]
	})

	var out []Assignment
	remaining := qty
	for _, i := range candidates {
		if remaining == 0 {
			break
		}
		avail := m.qty[i] - m.claimed[i]
		if avail <= 0 {
			continue
		}
		take := min(avail, remaining)
		out = append(out, Assignment{Line: i, Quantity: take})
		m.claimed[i] += take
		remaining -= take
	}

	if remaining > 0 {
		if len(out) == 0 {
			out = append(out, Assignment{Line: candidates[0]})
		}
		out[0].Quantity += remaining
		m.claimed[out[0].Line] += remaining
	}
	return out
}

func score(a, b []string) float64 {
	if len(b) == 0 {
		return 0
	}
	if equalTokens(a, b) {
		return 1
	}
	if containsRun(a, b) || containsRun(b, a) {
		return 0.8
	}

	o := overlap(a, b)
	if o >= minOverlap {
		// always below containment
		return 0.5 * o
	}
	return 0
}

// Normalize lowercases, strips punctuation and trims plural "s"
func Normalize(s string) string {
	return strings.Join(tokens(s), " ")
}

func tokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, f := range fields {
		fields[i] = singular(f)
	}
	return fields
}

func singular(w string) string {
	if len([]rune(w)) <= 3 || strings.HasSuffix(w, "ss") {
		return w
	}
	return strings.TrimSuffix(w, "s")
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// containsRun reports whether needle appears as a contiguous token run in hay
func containsRun(hay, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(hay) {
		return false
	}
	for i := 0; i+len(needle) <= len(hay); i++ {
		if equalTokens(hay[i:i+len(needle)], needle) {
			return true
		}
	}
	return false
}

// overlap is the Jaccard index of the two token sets
func overlap(a, b []string) float64 {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}

	union := len(set)
	inter := 0
	seen := make(map[string]bool, len(b))
	for _, t := range b {
		if seen[t] {
			continue
		}
		seen[t] = true
		if set[t] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
