package utils

import "time"

// Config holds every tunable timing and limit for a room. Tests shrink
// the durations; production uses DefaultConfig.
type Config struct {
	// Capacity
	MaxPlayers    int `json:"maxPlayers"`
	MinPlayers    int `json:"minPlayers"`
	MaxNameLength int `json:"maxNameLength"`

	// Match arbitration
	PenaltyDuration           time.Duration `json:"penaltyDuration"`
	ArbitrationWindow         time.Duration `json:"arbitrationWindow"`
	MaxMatchAttemptsPerSecond int           `json:"maxMatchAttemptsPerSecond"`

	// Reconnection grace
	ReconnectGracePeriod     time.Duration `json:"reconnectGracePeriod"`     // non-host, in-game
	HostReconnectGracePeriod time.Duration `json:"hostReconnectGracePeriod"` // host, any phase
	WaitingGracePeriod       time.Duration `json:"waitingGracePeriod"`       // non-host, lobby

	// Lifecycle
	RoomTimeout          time.Duration `json:"roomTimeout"`  // lobby idle expiry
	RejoinWindow         time.Duration `json:"rejoinWindow"` // rematch opt-in window
	CountdownSeconds     int           `json:"countdownSeconds"`
	RoundTransitionDelay time.Duration `json:"roundTransitionDelay"`
	SoloBootDelay        time.Duration `json:"soloBootDelay"`
}

// DefaultConfig returns the authoritative production timings.
func DefaultConfig() Config {
	return Config{
		MaxPlayers:    8,
		MinPlayers:    2,
		MaxNameLength: 50,

		PenaltyDuration:           3000 * time.Millisecond,
		ArbitrationWindow:         100 * time.Millisecond,
		MaxMatchAttemptsPerSecond: 10,

		ReconnectGracePeriod:     5 * time.Second,
		HostReconnectGracePeriod: 5 * time.Minute,
		WaitingGracePeriod:       5 * time.Minute,

		RoomTimeout:          30 * time.Minute,
		RejoinWindow:         30 * time.Minute,
		CountdownSeconds:     5,
		RoundTransitionDelay: 3500 * time.Millisecond,
		SoloBootDelay:        100 * time.Millisecond,
	}
}
