// File: game/state.go
package game

import (
	"math"
	"math/rand"
	"time"

	"github.com/pongduel/server/utils"
)

// Side identifies the half of the court a player defends.
type Side string

const (
	SideTop    Side = "top"
	SideBottom Side = "bottom"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideTop {
		return SideBottom
	}
	return SideTop
}

func (s Side) index() int {
	if s == SideTop {
		return 0
	}
	return 1
}

// Phase is the room's state-machine position.
type Phase string

const (
	PhaseCountdown Phase = "countdown"
	PhasePlaying   Phase = "playing"
	PhaseBetween   Phase = "between"
	PhaseGameOver  Phase = "gameover"
)

// derivedParams are computed once from the world constants at room creation.
type derivedParams struct {
	PW      float64 // paddle width
	PH      float64 // paddle height
	R       float64 // ball radius
	TopY    float64 // top paddle center line
	BottomY float64 // bottom paddle center line
}

// ballState holds the authoritative ball. Speed is tracked separately from
// the velocity components so bounce scaling is exact.
type ballState struct {
	X, Y   float64
	Vx, Vy float64
	Speed  float64
}

// --- Events emitted by state transitions ---

type scoreEvent struct {
	Hearts   HeartsPayload
	LastMiss Side
}

type gameOverEvent struct {
	Winner *Side
	Reason string
	Hearts HeartsPayload
}

// matchState is the full simulation state of one match. It is free of any
// actor or network machinery so the physics can be driven directly in tests;
// RoomActor owns exactly one instance and is its single writer.
type matchState struct {
	cfg    utils.Config
	rng    *rand.Rand
	params derivedParams

	topX, bottomX float64 // normalized paddle centers in [0,1]
	ball          ballState
	hearts        [2]int // indexed by Side.index()

	phase       Phase
	serveToward Side
	nextPhaseAt time.Time // meaningful in countdown and between only
	lastTickAt  time.Time
}

// newMatchState builds the initial simulation state: ball centered with zero
// velocity, hearts full, countdown running, random serve direction.
func newMatchState(cfg utils.Config, rng *rand.Rand, now time.Time) *matchState {
	m := &matchState{
		cfg: cfg,
		rng: rng,
		params: derivedParams{
			PW:      cfg.PaddleWidthFrac * cfg.WorldWidth,
			PH:      cfg.PaddleHeightFrac * cfg.WorldHeight,
			R:       cfg.BallRadiusFrac * cfg.WorldWidth,
			TopY:    cfg.Padding,
			BottomY: cfg.WorldHeight - cfg.Padding,
		},
		topX:        0.5,
		bottomX:     0.5,
		phase:       PhaseCountdown,
		serveToward: SideBottom,
		nextPhaseAt: now.Add(cfg.Countdown),
		lastTickAt:  now,
	}
	if rng.Intn(2) == 0 {
		m.serveToward = SideTop
	}
	m.hearts[SideTop.index()] = cfg.HeartsStart
	m.hearts[SideBottom.index()] = cfg.HeartsStart
	m.resetBall()
	return m
}

// resetBall centers the ball with zero velocity and the serve speed.
func (m *matchState) resetBall() {
	m.ball = ballState{
		X:     m.cfg.WorldWidth / 2,
		Y:     m.cfg.WorldHeight / 2,
		Speed: m.cfg.InitBallSpeed,
	}
}

// setPaddle clamps and writes one paddle's normalized center.
func (m *matchState) setPaddle(side Side, x float64) {
	x = utils.Clamp(x, 0, 1)
	if side == SideTop {
		m.topX = x
	} else {
		m.bottomX = x
	}
}

// heartsPayload snapshots both players' hearts for a wire frame.
func (m *matchState) heartsPayload() HeartsPayload {
	return HeartsPayload{
		Top:    m.hearts[SideTop.index()],
		Bottom: m.hearts[SideBottom.index()],
	}
}

// serveBall places the ball at center and gives it the serve velocity:
// an angle uniform in [-MaxServeAngle, +MaxServeAngle] from vertical,
// direction sign by serveToward.
func (m *matchState) serveBall() {
	m.resetBall()
	theta := (m.rng.Float64()*2 - 1) * m.cfg.MaxServeAngle
	dir := 1.0
	if m.serveToward == SideTop {
		dir = -1.0
	}
	m.ball.Vx = m.cfg.InitBallSpeed * math.Sin(theta)
	m.ball.Vy = dir * m.cfg.InitBallSpeed * math.Cos(theta)
	m.ball.Speed = m.cfg.InitBallSpeed
}

// step advances phase timers and, in the playing phase, integrates physics.
// It returns the events the transition emitted, in occurrence order.
func (m *matchState) step(now time.Time) []interface{} {
	switch m.phase {
	case PhaseCountdown, PhaseBetween:
		if !now.Before(m.nextPhaseAt) {
			m.phase = PhasePlaying
			m.serveBall()
			m.lastTickAt = now
		}
		return nil
	case PhasePlaying:
		return m.integrate(now)
	default: // gameover: tick is a no-op
		return nil
	}
}

// integrate performs one physics step: move, side-wall reflection, paddle
// collisions (top tested before bottom), then miss detection.
func (m *matchState) integrate(now time.Time) []interface{} {
	dt := now.Sub(m.lastTickAt).Seconds()
	m.lastTickAt = now
	if dt <= 0 {
		return nil
	}
	if dt > m.cfg.MaxDT {
		dt = m.cfg.MaxDT
	}

	b := &m.ball
	p := m.params
	b.X += b.Vx * dt
	b.Y += b.Vy * dt

	// Side walls
	if b.X-p.R <= 0 {
		b.X = p.R
		b.Vx = math.Abs(b.Vx)
	} else if b.X+p.R >= m.cfg.WorldWidth {
		b.X = m.cfg.WorldWidth - p.R
		b.Vx = -math.Abs(b.Vx)
	}

	// Top paddle
	if b.Vy < 0 &&
		b.Y-p.R <= p.TopY+p.PH/2 && b.Y+p.R >= p.TopY-p.PH/2 {
		cx := m.topX * m.cfg.WorldWidth
		if b.X+p.R >= cx-p.PW/2 && b.X-p.R <= cx+p.PW/2 {
			m.paddleBounce(SideTop, cx)
			return nil
		}
	}

	// Bottom paddle
	if b.Vy > 0 &&
		b.Y+p.R >= p.BottomY-p.PH/2 && b.Y-p.R <= p.BottomY+p.PH/2 {
		cx := m.bottomX * m.cfg.WorldWidth
		if b.X+p.R >= cx-p.PW/2 && b.X-p.R <= cx+p.PW/2 {
			m.paddleBounce(SideBottom, cx)
			return nil
		}
	}

	// Miss
	if b.Y+p.R < 0 {
		return m.onScore(SideTop, now)
	}
	if b.Y-p.R > m.cfg.WorldHeight {
		return m.onScore(SideBottom, now)
	}
	return nil
}

// paddleBounce deflects the ball off a paddle. The exit angle scales with
// the horizontal offset from the paddle center; the ball always leaves into
// the court, so the next tick moves it off the paddle.
func (m *matchState) paddleBounce(side Side, cx float64) {
	b := &m.ball
	rel := utils.Clamp((b.X-cx)/(m.params.PW/2), -1, 1)
	newSpeed := utils.Clamp(b.Speed*m.cfg.SpeedUp, m.cfg.MinBallSpeed, m.cfg.MaxBallSpeed)
	theta := rel * m.cfg.MaxBounceAngle

	b.Vx = newSpeed * math.Sin(theta)
	b.Vy = math.Abs(newSpeed * math.Cos(theta))
	if side == SideBottom {
		b.Vy = -b.Vy
	}
	b.Speed = newSpeed
}

// onScore handles a miss by loserSide: decrement a heart, emit the score
// event, then either end the game or stage the next serve toward the loser.
func (m *matchState) onScore(loser Side, now time.Time) []interface{} {
	if m.phase != PhasePlaying {
		return nil
	}
	m.phase = PhaseBetween
	if m.hearts[loser.index()] > 0 {
		m.hearts[loser.index()]--
	}

	events := []interface{}{scoreEvent{Hearts: m.heartsPayload(), LastMiss: loser}}

	topGone := m.hearts[SideTop.index()] == 0
	bottomGone := m.hearts[SideBottom.index()] == 0
	switch {
	case topGone && bottomGone:
		// Unreachable under one-decrement-per-miss; kept as a safety net.
		events = append(events, m.endGame(nil, ReasonTie))
	case m.hearts[loser.index()] == 0:
		winner := loser.Opposite()
		events = append(events, m.endGame(&winner, ReasonHearts))
	default:
		m.serveToward = loser
		m.nextPhaseAt = now.Add(m.cfg.ServeDelay)
		m.resetBall()
	}
	return events
}

// endGame moves the match to its terminal phase and freezes the ball.
func (m *matchState) endGame(winner *Side, reason string) gameOverEvent {
	m.phase = PhaseGameOver
	m.ball.Vx = 0
	m.ball.Vy = 0
	return gameOverEvent{Winner: winner, Reason: reason, Hearts: m.heartsPayload()}
}

// stateMessage builds the per-recipient broadcast frame.
func (m *matchState) stateMessage(now time.Time, you Side) StateMessage {
	return StateMessage{
		Type:  "state",
		T:     now.UnixMilli(),
		Phase: m.phase,
		Ball:  BallPayload{X: m.ball.X, Y: m.ball.Y},
		Paddles: PaddlesPayload{
			TopX:    m.topX,
			BottomX: m.bottomX,
		},
		Hearts: m.heartsPayload(),
		Params: ParamsPayload{
			W:  m.cfg.WorldWidth,
			H:  m.cfg.WorldHeight,
			R:  m.params.R,
			PW: m.params.PW,
			PH: m.params.PH,
		},
		You: you,
	}
}
