package utils

const (
	// DeckOrder is the order of the projective plane the deck is built
	// on. Order 7 gives 57 cards of 8 symbols each.
	DeckOrder = 7

	SymbolsPerCard = DeckOrder + 1                 // 8
	TotalSymbols   = DeckOrder*DeckOrder + DeckOrder + 1 // 57
)

// Game duration presets: maximum cards kept after deck generation.
const (
	GameDurationShort  = 10
	GameDurationMedium = 25
	GameDurationLong   = 50
)

// Card layout hints forwarded to clients untouched.
const (
	CardLayoutOrderly = "orderly"
	CardLayoutChaotic = "chaotic"
)
