package game

import (
	"fmt"

	"spotit-server/utils"
)

// RoomConfig is the host-settable game configuration. It is accepted
// only in Waiting or GameOver; there are no in-game config changes.
type RoomConfig struct {
	CardLayout    string   `json:"cardLayout"`
	CardSetID     string   `json:"cardSetId"`
	GameDuration  int      `json:"gameDuration"`
	CustomSymbols []string `json:"customSymbols,omitempty"`
}

// DefaultRoomConfig is applied when the first player joins a room.
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		CardLayout:   utils.CardLayoutOrderly,
		CardSetID:    "classic",
		GameDuration: utils.GameDurationMedium,
	}
}

// Validate rejects configs the engine cannot start a game from.
func (c RoomConfig) Validate() error {
	switch c.CardLayout {
	case utils.CardLayoutOrderly, utils.CardLayoutChaotic:
	default:
		return fmt.Errorf("unknown card layout %q", c.CardLayout)
	}
	switch c.GameDuration {
	case utils.GameDurationShort, utils.GameDurationMedium, utils.GameDurationLong:
	default:
		return fmt.Errorf("unsupported game duration %d", c.GameDuration)
	}
	if n := len(c.CustomSymbols); n > 0 && n != utils.TotalSymbols {
		return fmt.Errorf("custom symbol list must have %d entries, got %d", utils.TotalSymbols, n)
	}
	return nil
}
