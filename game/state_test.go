// File: game/state_test.go
package game

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pongduel/server/utils"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestState(seed int64) *matchState {
	return newMatchState(utils.DefaultConfig(), rand.New(rand.NewSource(seed)), t0)
}

// forcePlaying puts the state into the playing phase with a caller-chosen
// ball, bypassing the serve.
func forcePlaying(m *matchState, x, y, vx, vy float64) {
	m.phase = PhasePlaying
	m.ball.X, m.ball.Y = x, y
	m.ball.Vx, m.ball.Vy = vx, vy
	m.lastTickAt = t0
}

func tickOnce(m *matchState) []interface{} {
	return m.step(m.lastTickAt.Add(time.Second / 60))
}

func TestNewMatchState_Initial(t *testing.T) {
	m := newTestState(1)

	assert.Equal(t, PhaseCountdown, m.phase)
	assert.Equal(t, t0.Add(m.cfg.Countdown), m.nextPhaseAt)
	assert.Equal(t, m.cfg.WorldWidth/2, m.ball.X)
	assert.Equal(t, m.cfg.WorldHeight/2, m.ball.Y)
	assert.Zero(t, m.ball.Vx)
	assert.Zero(t, m.ball.Vy)
	assert.Equal(t, m.cfg.InitBallSpeed, m.ball.Speed)
	assert.Equal(t, HeartsPayload{Top: 3, Bottom: 3}, m.heartsPayload())
	assert.Contains(t, []Side{SideTop, SideBottom}, m.serveToward)

	// Derived params
	assert.InDelta(t, 252.0, m.params.PW, 1e-9)
	assert.InDelta(t, 32.0, m.params.PH, 1e-9)
	assert.InDelta(t, 16.2, m.params.R, 1e-9)
	assert.InDelta(t, 70.0, m.params.TopY, 1e-9)
	assert.InDelta(t, 1530.0, m.params.BottomY, 1e-9)
}

func TestCountdown_ServesOnDeadline(t *testing.T) {
	m := newTestState(2)
	m.serveToward = SideBottom

	// Before the deadline nothing moves.
	m.step(t0.Add(m.cfg.Countdown / 2))
	assert.Equal(t, PhaseCountdown, m.phase)
	assert.Zero(t, m.ball.Vy)

	m.step(t0.Add(m.cfg.Countdown))
	assert.Equal(t, PhasePlaying, m.phase)

	speed := math.Hypot(m.ball.Vx, m.ball.Vy)
	assert.InDelta(t, m.cfg.InitBallSpeed, speed, 1e-6)
	assert.Positive(t, m.ball.Vy, "serve toward bottom travels down")
	angle := math.Abs(math.Atan2(m.ball.Vx, m.ball.Vy))
	assert.LessOrEqual(t, angle, m.cfg.MaxServeAngle+1e-9)
}

func TestServeBall_TowardTop(t *testing.T) {
	m := newTestState(3)
	m.serveToward = SideTop
	m.serveBall()
	assert.Negative(t, m.ball.Vy)
	assert.InDelta(t, m.cfg.InitBallSpeed, math.Hypot(m.ball.Vx, m.ball.Vy), 1e-6)
}

// Scenario: center strike. A ball served straight down onto the centered
// bottom paddle leaves straight up at the sped-up speed.
func TestBounce_CenterStrike(t *testing.T) {
	m := newTestState(4)
	m.bottomX = 0.5
	forcePlaying(m, 450, 800, 0, m.cfg.InitBallSpeed)
	m.ball.Speed = m.cfg.InitBallSpeed

	bounced := false
	for i := 0; i < 300; i++ {
		evs := tickOnce(m)
		require.Empty(t, evs, "no score expected before the bounce")
		if m.ball.Vy < 0 {
			bounced = true
			break
		}
	}
	require.True(t, bounced, "ball never reached the bottom paddle")

	want := m.cfg.InitBallSpeed * m.cfg.SpeedUp
	assert.InDelta(t, 0, m.ball.Vx, 1e-9)
	assert.InDelta(t, -want, m.ball.Vy, 1e-6)
	assert.InDelta(t, want, m.ball.Speed, 1e-6)
}

// Scenario: edge strike. Contact at the paddle's edge deflects by the full
// MaxBounceAngle.
func TestBounce_EdgeStrikeDeflectsAtMaxAngle(t *testing.T) {
	m := newTestState(5)
	m.bottomX = 0.5 // paddle center at x=450, half-width 126
	forcePlaying(m, 576, 1505, 0, 100)
	m.ball.Speed = m.cfg.InitBallSpeed

	evs := tickOnce(m)
	require.Empty(t, evs)

	require.Negative(t, m.ball.Vy, "ball should have bounced")
	assert.InDelta(t, math.Sin(m.cfg.MaxBounceAngle), m.ball.Vx/m.ball.Speed, 1e-9)
	assert.InDelta(t, m.cfg.InitBallSpeed*m.cfg.SpeedUp, m.ball.Speed, 1e-6)
}

func TestBounce_TopPaddleSendsBallDown(t *testing.T) {
	m := newTestState(6)
	m.topX = 0.5
	forcePlaying(m, 450, 95, 0, -100)
	m.ball.Speed = m.cfg.InitBallSpeed

	evs := tickOnce(m)
	require.Empty(t, evs)
	assert.Positive(t, m.ball.Vy, "ball leaves the top paddle downward")
}

func TestBounce_SpeedMonotonicAndCapped(t *testing.T) {
	m := newTestState(7)
	m.ball.Speed = m.cfg.InitBallSpeed
	m.ball.X = 450

	prev := m.ball.Speed
	for i := 0; i < 25; i++ {
		m.paddleBounce(SideBottom, m.ball.X)
		assert.GreaterOrEqual(t, m.ball.Speed, prev)
		assert.LessOrEqual(t, m.ball.Speed, m.cfg.MaxBallSpeed)
		assert.GreaterOrEqual(t, m.ball.Speed, m.cfg.MinBallSpeed)
		prev = m.ball.Speed
	}
	assert.Equal(t, m.cfg.MaxBallSpeed, m.ball.Speed)
}

func TestIntegrate_SideWallReflection(t *testing.T) {
	m := newTestState(8)
	forcePlaying(m, 20, 800, -300, 50)

	evs := tickOnce(m)
	require.Empty(t, evs)
	assert.Equal(t, m.params.R, m.ball.X)
	assert.Positive(t, m.ball.Vx)

	// Right wall mirror.
	forcePlaying(m, 890, 800, 300, 50)
	tickOnce(m)
	assert.Equal(t, m.cfg.WorldWidth-m.params.R, m.ball.X)
	assert.Negative(t, m.ball.Vx)
}

func TestIntegrate_ClampsDT(t *testing.T) {
	m := newTestState(9)
	forcePlaying(m, 450, 800, 0, 100)

	// A 10 s stall integrates as MaxDT, not 10 s.
	m.step(t0.Add(10 * time.Second))
	assert.InDelta(t, 800+100*m.cfg.MaxDT, m.ball.Y, 1e-9)
}

// Scenario: miss and heart decrement.
func TestOnScore_MissDecrementsHeartAndStagesServe(t *testing.T) {
	m := newTestState(10)
	m.bottomX = 0.9 // far from the ball
	forcePlaying(m, 100, 1615, 0, 200)

	now := m.lastTickAt.Add(time.Second / 60)
	evs := m.step(now)
	require.Len(t, evs, 1)

	score, ok := evs[0].(scoreEvent)
	require.True(t, ok)
	assert.Equal(t, SideBottom, score.LastMiss)
	assert.Equal(t, HeartsPayload{Top: 3, Bottom: 2}, score.Hearts)

	assert.Equal(t, PhaseBetween, m.phase)
	assert.Equal(t, SideBottom, m.serveToward)
	assert.Equal(t, now.Add(m.cfg.ServeDelay), m.nextPhaseAt)
	assert.Equal(t, m.cfg.WorldWidth/2, m.ball.X)
	assert.Zero(t, m.ball.Vx)
	assert.Zero(t, m.ball.Vy)
	assert.Equal(t, m.cfg.InitBallSpeed, m.ball.Speed)
}

// Scenario: game over by hearts.
func TestOnScore_LastHeartEndsGame(t *testing.T) {
	m := newTestState(11)
	m.hearts[SideTop.index()] = 1
	forcePlaying(m, 100, -20, 0, -200)

	evs := tickOnce(m)
	require.Len(t, evs, 2)

	score := evs[0].(scoreEvent)
	assert.Equal(t, SideTop, score.LastMiss)
	assert.Equal(t, HeartsPayload{Top: 0, Bottom: 3}, score.Hearts)

	over := evs[1].(gameOverEvent)
	require.NotNil(t, over.Winner)
	assert.Equal(t, SideBottom, *over.Winner)
	assert.Equal(t, ReasonHearts, over.Reason)
	assert.Equal(t, HeartsPayload{Top: 0, Bottom: 3}, over.Hearts)

	assert.Equal(t, PhaseGameOver, m.phase)
	assert.Zero(t, m.ball.Vx)
	assert.Zero(t, m.ball.Vy)
}

func TestOnScore_IgnoredOutsidePlaying(t *testing.T) {
	m := newTestState(12)
	m.phase = PhaseBetween
	evs := m.onScore(SideTop, t0)
	assert.Empty(t, evs)
	assert.Equal(t, 3, m.hearts[SideTop.index()])
}

func TestEndGame_TieSafetyNet(t *testing.T) {
	m := newTestState(13)
	ev := m.endGame(nil, ReasonTie)
	assert.Nil(t, ev.Winner)
	assert.Equal(t, ReasonTie, ev.Reason)
	assert.Equal(t, PhaseGameOver, m.phase)
}

// Any miss sequence terminates within 2*HEARTS_START-1 misses.
func TestTermination_AlternatingMisses(t *testing.T) {
	m := newTestState(14)

	misses := 0
	side := SideTop
	for m.phase != PhaseGameOver {
		require.Less(t, misses, 2*m.cfg.HeartsStart, "game should have ended")
		y, vy := -20.0, -100.0
		if side == SideBottom {
			y, vy = 1620, 100
		}
		forcePlaying(m, 100, y, 0, vy)
		evs := tickOnce(m)
		require.NotEmpty(t, evs)
		misses++
		side = side.Opposite()
	}
	assert.Equal(t, 2*m.cfg.HeartsStart-1, misses)
}

func TestSetPaddle_Clamps(t *testing.T) {
	m := newTestState(15)
	m.setPaddle(SideTop, -0.5)
	m.setPaddle(SideBottom, 1.7)
	assert.Equal(t, 0.0, m.topX)
	assert.Equal(t, 1.0, m.bottomX)

	m.setPaddle(SideTop, 0.33)
	assert.Equal(t, 0.33, m.topX)
}

func TestStateMessage_PerRecipient(t *testing.T) {
	m := newTestState(16)
	now := t0.Add(time.Second)

	topFrame := m.stateMessage(now, SideTop)
	bottomFrame := m.stateMessage(now, SideBottom)

	assert.Equal(t, "state", topFrame.Type)
	assert.Equal(t, now.UnixMilli(), topFrame.T)
	assert.Equal(t, SideTop, topFrame.You)
	assert.Equal(t, SideBottom, bottomFrame.You)

	// Identical apart from You.
	topFrame.You = bottomFrame.You
	assert.Equal(t, bottomFrame, topFrame)

	assert.Equal(t, 900.0, topFrame.Params.W)
	assert.Equal(t, 1600.0, topFrame.Params.H)
	assert.InDelta(t, 16.2, topFrame.Params.R, 1e-9)
	assert.InDelta(t, 252.0, topFrame.Params.PW, 1e-9)
	assert.InDelta(t, 32.0, topFrame.Params.PH, 1e-9)
}
