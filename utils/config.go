// File: utils/config.go
package utils

import "time"

// Config holds all configurable game parameters.
type Config struct {
	// World geometry (abstract units)
	WorldWidth  float64 `json:"worldWidth"`
	WorldHeight float64 `json:"worldHeight"`
	Padding     float64 `json:"padding"` // Distance from top/bottom edge to paddle center line

	// Derived-size fractions
	PaddleWidthFrac  float64 `json:"paddleWidthFrac"`  // Paddle width as fraction of WorldWidth
	PaddleHeightFrac float64 `json:"paddleHeightFrac"` // Paddle height as fraction of WorldHeight
	BallRadiusFrac   float64 `json:"ballRadiusFrac"`   // Ball radius as fraction of WorldWidth

	// Ball physics
	InitBallSpeed  float64 `json:"initBallSpeed"`  // Units/sec at serve
	MinBallSpeed   float64 `json:"minBallSpeed"`   // Lower clamp after a paddle bounce
	MaxBallSpeed   float64 `json:"maxBallSpeed"`   // Units/sec cap
	SpeedUp        float64 `json:"speedUp"`        // Multiplier per paddle hit
	MaxBounceAngle float64 `json:"maxBounceAngle"` // Max deflection from vertical, radians
	MaxServeAngle  float64 `json:"maxServeAngle"`  // Serve angle drawn from [-this, +this], radians

	// Match rules
	HeartsStart int `json:"heartsStart"` // Initial hearts per player

	// Timing
	TickPeriod time.Duration `json:"tickPeriod"` // Physics integration cadence
	SendPeriod time.Duration `json:"sendPeriod"` // State broadcast cadence
	MaxDT      float64       `json:"maxDT"`      // Clamp for integration step, seconds
	Countdown  time.Duration `json:"countdown"`  // Pre-serve freeze at room start and rematch
	ServeDelay time.Duration `json:"serveDelay"` // Post-score freeze before the next serve

	// Connection handling
	MaxNameLength int           `json:"maxNameLength"`
	PingPeriod    time.Duration `json:"pingPeriod"` // Keep-alive probe cadence
	PongWait      time.Duration `json:"pongWait"`   // Read deadline; refreshed on pong
	WriteWait     time.Duration `json:"writeWait"`  // Per-frame write deadline
	SendBuffer    int           `json:"sendBuffer"` // Outbound frames buffered per peer before dropping
	MaxConns      int           `json:"maxConns"`   // Listener-level concurrent connection cap
}

// DefaultConfig returns a Config struct with default values.
func DefaultConfig() Config {
	return Config{
		WorldWidth:  900,
		WorldHeight: 1600,
		Padding:     70,

		PaddleWidthFrac:  0.28,
		PaddleHeightFrac: 0.02,
		BallRadiusFrac:   0.018,

		InitBallSpeed:  780,
		MinBallSpeed:   100,
		MaxBallSpeed:   1200,
		SpeedUp:        1.03,
		MaxBounceAngle: 1.05,
		MaxServeAngle:  0.4,

		HeartsStart: 3,

		TickPeriod: time.Second / 60,
		SendPeriod: time.Second / 30,
		MaxDT:      0.05,
		Countdown:  3000 * time.Millisecond,
		ServeDelay: 1500 * time.Millisecond,

		MaxNameLength: 16,
		PingPeriod:    30 * time.Second,
		PongWait:      75 * time.Second,
		WriteWait:     10 * time.Second,
		SendBuffer:    64,
		MaxConns:      512,
	}
}

// FastConfig returns a config with accelerated timers for tests. Physics
// constants are unchanged; only cadences and freezes shrink so a match can
// run through its phases in milliseconds.
func FastConfig() Config {
	cfg := DefaultConfig()
	cfg.TickPeriod = 2 * time.Millisecond
	cfg.SendPeriod = 8 * time.Millisecond
	cfg.Countdown = 30 * time.Millisecond
	cfg.ServeDelay = 20 * time.Millisecond
	cfg.PingPeriod = 250 * time.Millisecond
	// Generous pong wait and deep send buffer: test clients read their
	// sockets in bursts, and a full match must survive the quiet stretches.
	cfg.PongWait = 20 * time.Second
	cfg.SendBuffer = 512
	return cfg
}

// CountdownSeconds returns the countdown duration as the whole-second value
// announced to clients in matchFound/rematchStart frames.
func (c Config) CountdownSeconds() int {
	return int(c.Countdown.Round(time.Second) / time.Second)
}
