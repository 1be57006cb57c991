// Package deck generates Spot-It style decks: finite projective planes
// of prime order, where any two cards share exactly one symbol.
package deck

import (
	"fmt"
	"math/rand"

	"spotit-server/utils"
)

// Symbol is one picture on a card. IDs are dense in [0, TotalSymbols).
type Symbol struct {
	ID    int    `json:"id"`
	Glyph string `json:"glyph"`
}

// Card is immutable after generation; only hand stacks reference it.
// IDs are stable for the lifetime of a game and index into the full
// generated deck.
type Card struct {
	ID      int      `json:"id"`
	Symbols []Symbol `json:"symbols"`
}

// HasSymbol reports whether the card carries the given symbol id.
func (c Card) HasSymbol(symbolID int) bool {
	for _, s := range c.Symbols {
		if s.ID == symbolID {
			return true
		}
	}
	return false
}

// SharedSymbol returns the symbol id both cards carry. The projective
// plane guarantees exactly one; ok is false only for malformed input.
func SharedSymbol(a, b Card) (int, bool) {
	for _, s := range a.Symbols {
		if b.HasSymbol(s.ID) {
			return s.ID, true
		}
	}
	return 0, false
}

// New builds the full deck for a projective plane of prime order n
// over the given glyph list. len(glyphs) must be n*n+n+1, which is
// also the number of cards produced. Generation is deterministic given
// (n, glyphs); shuffling is the caller's concern.
func New(order int, glyphs []string) ([]Card, error) {
	n := order
	if n < 2 || !isPrime(n) {
		return nil, fmt.Errorf("deck: order %d is not a supported prime", n)
	}
	total := n*n + n + 1
	if len(glyphs) != total {
		return nil, fmt.Errorf("deck: need exactly %d symbols for order %d, got %d", total, n, len(glyphs))
	}

	symbols := make([]Symbol, total)
	for i, g := range glyphs {
		symbols[i] = Symbol{ID: i, Glyph: g}
	}

	cards := make([]Card, 0, total)
	add := func(ids []int) {
		card := Card{ID: len(cards), Symbols: make([]Symbol, 0, n+1)}
		for _, id := range ids {
			card.Symbols = append(card.Symbols, symbols[id])
		}
		cards = append(cards, card)
	}

	// The line at infinity: symbols 0..n.
	first := make([]int, 0, n+1)
	for i := 0; i <= n; i++ {
		first = append(first, i)
	}
	add(first)

	// n cards through symbol 0, one per parallel block.
	for i := 0; i < n; i++ {
		ids := []int{0}
		for j := 0; j < n; j++ {
			ids = append(ids, n+1+i*n+j)
		}
		add(ids)
	}

	// n*n cards through symbols 1..n; slope i, offset j.
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			ids := []int{i + 1}
			for k := 0; k < n; k++ {
				ids = append(ids, n+1+k*n+(i*k+j)%n)
			}
			add(ids)
		}
	}

	return cards, nil
}

// Shuffle permutes cards in place using the supplied source so a game
// start is reproducible under a fixed seed.
func Shuffle(cards []Card, rng *rand.Rand) {
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// NewStandard builds the default order-7 deck (57 cards, 8 symbols per
// card) for the named card set.
func NewStandard(cardSetID string, custom []string) ([]Card, error) {
	glyphs, err := Resolve(cardSetID, custom)
	if err != nil {
		return nil, err
	}
	return New(utils.DeckOrder, glyphs)
}

func isPrime(n int) bool {
	for d := 2; d*d <= n; d++ {
		if n%d == 0 {
			return false
		}
	}
	return n > 1
}
