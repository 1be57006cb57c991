package deck

import (
	"fmt"

	"spotit-server/utils"
)

// DefaultCardSetID is used when a room config names no set.
const DefaultCardSetID = "classic"

// CardSets maps a card-set id to its 57 glyphs. Glyph order defines
// symbol ids, so entries are append-only.
var CardSets = map[string][]string{
	"classic": {
		"🍎", "🍌", "🍒", "🍇", "🍋", "🍉", "🍓", "🍍", "🥝", "🥕",
		"🌽", "🍄", "🧀", "🍔", "🍕", "🌮", "🍩", "🍪", "🎂", "🍦",
		"⚽", "🏀", "🎾", "🎱", "🏓", "🎯", "🎲", "🎸", "🎺", "🥁",
		"🚗", "🚲", "✈️", "🚀", "⛵", "🚂", "🎈", "🪁", "⚓", "🧭",
		"🌵", "🌲", "🌻", "🍀", "🌙", "⭐", "☀️", "⛄", "🌈", "🔥",
		"💧", "⚡", "🦋", "🐞", "🐢", "🐙", "🦀",
	},
	"animals": {
		"🐶", "🐱", "🐭", "🐹", "🐰", "🦊", "🐻", "🐼", "🐨", "🐯",
		"🦁", "🐮", "🐷", "🐸", "🐵", "🐔", "🐧", "🐦", "🐤", "🦆",
		"🦅", "🦉", "🦇", "🐺", "🐗", "🐴", "🦄", "🐝", "🐛", "🦋",
		"🐌", "🐞", "🐜", "🦗", "🕷️", "🦂", "🐢", "🐍", "🦎", "🦖",
		"🐙", "🦑", "🦐", "🦞", "🦀", "🐡", "🐠", "🐟", "🐬", "🐳",
		"🦈", "🐊", "🐅", "🐆", "🦓", "🦍", "🐘",
	},
}

// Resolve returns the glyphs for a game: the custom list when it has
// exactly TotalSymbols entries, otherwise the named catalog set,
// falling back to the default set for unknown ids. A custom list of
// any other size is an error rather than a silent fallback.
func Resolve(cardSetID string, custom []string) ([]string, error) {
	if len(custom) > 0 {
		if len(custom) != utils.TotalSymbols {
			return nil, fmt.Errorf("deck: custom symbol list must have %d entries, got %d", utils.TotalSymbols, len(custom))
		}
		return custom, nil
	}
	if glyphs, ok := CardSets[cardSetID]; ok {
		return glyphs, nil
	}
	return CardSets[DefaultCardSetID], nil
}
