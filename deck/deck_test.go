package deck

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotit-server/utils"
)

func glyphList(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("g%d", i)
	}
	return out
}

func TestNewDeckOrderSeven(t *testing.T) {
	cards, err := New(utils.DeckOrder, glyphList(utils.TotalSymbols))
	require.NoError(t, err)

	assert.Len(t, cards, utils.TotalSymbols, "order 7 yields 57 cards")
	for _, c := range cards {
		assert.Len(t, c.Symbols, utils.SymbolsPerCard, "card %d should carry 8 symbols", c.ID)
		seen := make(map[int]bool)
		for _, s := range c.Symbols {
			assert.False(t, seen[s.ID], "card %d repeats symbol %d", c.ID, s.ID)
			assert.GreaterOrEqual(t, s.ID, 0)
			assert.Less(t, s.ID, utils.TotalSymbols)
			seen[s.ID] = true
		}
	}
}

func TestEveryPairSharesExactlyOneSymbol(t *testing.T) {
	cards, err := New(utils.DeckOrder, glyphList(utils.TotalSymbols))
	require.NoError(t, err)

	for i := 0; i < len(cards); i++ {
		for j := i + 1; j < len(cards); j++ {
			shared := 0
			for _, s := range cards[i].Symbols {
				if cards[j].HasSymbol(s.ID) {
					shared++
				}
			}
			require.Equal(t, 1, shared, "cards %d and %d share %d symbols", i, j, shared)
		}
	}
}

func TestSharedSymbol(t *testing.T) {
	cards, err := New(utils.DeckOrder, glyphList(utils.TotalSymbols))
	require.NoError(t, err)

	id, ok := SharedSymbol(cards[3], cards[17])
	require.True(t, ok)
	assert.True(t, cards[3].HasSymbol(id))
	assert.True(t, cards[17].HasSymbol(id))
}

func TestNewDeckRejectsBadInput(t *testing.T) {
	_, err := New(4, glyphList(21))
	assert.Error(t, err, "order 4 is not prime")

	_, err = New(7, glyphList(56))
	assert.Error(t, err, "symbol count must match the plane size")
}

func TestSmallOrders(t *testing.T) {
	for _, order := range []int{2, 3, 5} {
		total := order*order + order + 1
		cards, err := New(order, glyphList(total))
		require.NoError(t, err, "order %d", order)
		require.Len(t, cards, total)
		for i := 0; i < len(cards); i++ {
			for j := i + 1; j < len(cards); j++ {
				_, ok := SharedSymbol(cards[i], cards[j])
				require.True(t, ok, "order %d cards %d/%d share nothing", order, i, j)
			}
		}
	}
}

func TestShuffleIsSeedDeterministic(t *testing.T) {
	a, err := New(utils.DeckOrder, glyphList(utils.TotalSymbols))
	require.NoError(t, err)
	b, err := New(utils.DeckOrder, glyphList(utils.TotalSymbols))
	require.NoError(t, err)

	Shuffle(a, rand.New(rand.NewSource(42)))
	Shuffle(b, rand.New(rand.NewSource(42)))

	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID, "same seed must give the same order")
	}

	seen := make(map[int]bool)
	for _, c := range a {
		seen[c.ID] = true
	}
	assert.Len(t, seen, utils.TotalSymbols, "shuffle must not drop or duplicate cards")
}

func TestResolve(t *testing.T) {
	glyphs, err := Resolve("classic", nil)
	require.NoError(t, err)
	assert.Len(t, glyphs, utils.TotalSymbols)

	glyphs, err = Resolve("animals", nil)
	require.NoError(t, err)
	assert.Len(t, glyphs, utils.TotalSymbols)

	glyphs, err = Resolve("no-such-set", nil)
	require.NoError(t, err)
	assert.Equal(t, CardSets[DefaultCardSetID], glyphs, "unknown ids fall back to the default set")

	custom := glyphList(utils.TotalSymbols)
	glyphs, err = Resolve("classic", custom)
	require.NoError(t, err)
	assert.Equal(t, custom, glyphs, "a full custom list overrides the named set")

	_, err = Resolve("classic", glyphList(10))
	assert.Error(t, err, "partial custom lists are rejected")
}

func TestNewStandard(t *testing.T) {
	cards, err := NewStandard("classic", nil)
	require.NoError(t, err)
	assert.Len(t, cards, utils.TotalSymbols)
}

func TestCatalogSetsAreComplete(t *testing.T) {
	for id, glyphs := range CardSets {
		assert.Len(t, glyphs, utils.TotalSymbols, "set %q", id)
		seen := make(map[string]bool)
		for _, g := range glyphs {
			assert.False(t, seen[g], "set %q repeats glyph %q", id, g)
			seen[g] = true
		}
	}
}
