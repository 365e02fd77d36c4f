// Package menu matches free-text item requests against the sellable units of
// a restaurant's menu, e.g. "2x grilled chicken large".
package menu

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MatchStatus represents the status of a match operation
type MatchStatus int

const (
	Matched MatchStatus = iota
	Ambiguous
	Unmatched
)

func (s MatchStatus) String() string {
	switch s {
	case Matched:
		return "Matched"
	case Ambiguous:
		return "Ambiguous"
	case Unmatched:
		return "Unmatched"
	default:
		return "Unknown"
	}
}

// Item is one sellable unit of a product.
type Item struct {
	UnitID      uuid.UUID
	ProductName string
	UnitName    string
	Price       decimal.Decimal
}

// Label is how the item is shown to the cashier.
func (i Item) Label() string {
	return i.ProductName + " (" + i.UnitName + ")"
}

// MatchResult contains the result of a matching operation
type MatchResult struct {
	Status     MatchStatus
	Item       *Item  // when Matched
	Candidates []Item // when Ambiguous
	Quantity   int    // 0 when the text carried none
}

// Matcher scores items by how many of their name words appear in the text.
// Unit name words ("large", "glass") weigh more than product words and, when
// present in the text, rule out items of other units.
type Matcher struct {
	items        []Item
	productWords [][]string
	unitWords    [][]string
	unitVocab    map[string]bool
}

const (
	unitWeight    = 5
	productWeight = 1
)

// NewMatcher pre-tokenizes every item's product and unit names.
func NewMatcher(items []Item) *Matcher {
	m := &Matcher{
		items:        items,
		productWords: make([][]string, len(items)),
		unitWords:    make([][]string, len(items)),
		unitVocab:    make(map[string]bool),
	}
	for i, item := range items {
		m.productWords[i] = tokenize(normalize(item.ProductName))
		m.unitWords[i] = tokenize(normalize(item.UnitName))
		for _, w := range m.unitWords[i] {
			m.unitVocab[w] = true
		}
	}
	return m
}

// Match finds the best item for text.
func (m *Matcher) Match(text string) MatchResult {
	qty, tokens := extractQuantity(tokenize(normalize(text)))

	input := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		input[tok] = true
	}

	// Unit words named in the text that some item actually uses.
	var wantUnits []string
	for tok := range input {
		if m.unitVocab[tok] {
			wantUnits = append(wantUnits, tok)
		}
	}

	type scoredItem struct {
		item  Item
		score int
	}
	var scored []scoredItem

	for i, item := range m.items {
		if !containsAll(m.unitWords[i], wantUnits) {
			continue
		}
		score := 0
		for _, w := range m.unitWords[i] {
			if input[w] {
				score += unitWeight
			}
		}
		productHits := 0
		for _, w := range m.productWords[i] {
			if input[w] {
				productHits++
			}
		}
		if productHits == 0 {
			continue
		}
		score += productHits * productWeight
		scored = append(scored, scoredItem{item: item, score: score})
	}

	if len(scored) == 0 {
		return MatchResult{Status: Unmatched, Quantity: qty}
	}

	maxScore := 0
	for _, s := range scored {
		if s.score > maxScore {
			maxScore = s.score
		}
	}
	var top []Item
	for _, s := range scored {
		if s.score == maxScore {
			top = append(top, s.item)
		}
	}

	if len(top) == 1 {
		return MatchResult{Status: Matched, Item: &top[0], Quantity: qty}
	}
	return MatchResult{Status: Ambiguous, Candidates: top, Quantity: qty}
}

func containsAll(words, want []string) bool {
	for _, w := range want {
		found := false
		for _, have := range words {
			if have == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// normalize converts a string to lowercase and replaces non-alphanumeric chars with spaces
func normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(sb.String()), " ")
}

func tokenize(s string) []string {
	return strings.Fields(s)
}

// extractQuantity pulls quantity tokens ("2", "2x", "x2") out of tokens.
// The last one wins when there are several.
func extractQuantity(tokens []string) (int, []string) {
	qty := 0
	rest := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if n, ok := parseQuantity(tok); ok {
			qty = n
			continue
		}
		rest = append(rest, tok)
	}
	return qty, rest
}

func parseQuantity(tok string) (int, bool) {
	digits := strings.TrimSuffix(strings.TrimPrefix(tok, "x"), "x")
	if digits == "" || len(digits) < len(tok)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
