// File: game/room_actor.go
package game

import (
	"fmt"
	"math/rand"
	"runtime/debug"
	"sync"
	"time"

	"github.com/pongduel/server/actor"
	"github.com/pongduel/server/utils"
)

// roomSlot is one side's occupant. A slot goes nil when that peer leaves;
// the room is retired once both slots are nil.
type roomSlot struct {
	peer       Peer
	sessionPID *actor.PID
	name       string
}

// RoomActor owns one live match. Every mutation — paddle input, tick,
// broadcast, rematch votes, leaves — arrives on its mailbox, so the state
// has exactly one writer. Rooms are independent and run in parallel.
type RoomActor struct {
	engine        *actor.Engine
	cfg           utils.Config
	matchmakerPID *actor.PID
	selfPID       *actor.PID

	id      string
	rematch bool
	state   *matchState
	slots   [2]*roomSlot // indexed by Side.index()
	votes   [2]bool

	rematchSent bool
	tickTicker  *time.Ticker
	sendTicker  *time.Ticker
	stopCh      chan struct{}
	cleanupOnce sync.Once
}

// NewRoomActorProducer creates a producer for a room with explicit side
// assignment. The matchmaker passes random sides on an initial match and
// swapped sides on a rematch; the room itself never reassigns.
func NewRoomActorProducer(engine *actor.Engine, cfg utils.Config, matchmakerPID *actor.PID,
	id string, top, bottom SlotRef, rng *rand.Rand, rematch bool) actor.Producer {
	return func() actor.Actor {
		a := &RoomActor{
			engine:        engine,
			cfg:           cfg,
			matchmakerPID: matchmakerPID,
			id:            id,
			rematch:       rematch,
			state:         newMatchState(cfg, rng, time.Now()),
			stopCh:        make(chan struct{}),
		}
		a.slots[SideTop.index()] = &roomSlot{peer: top.Peer, sessionPID: top.SessionPID, name: top.Peer.Name()}
		a.slots[SideBottom.index()] = &roomSlot{peer: bottom.Peer, sessionPID: bottom.SessionPID, name: bottom.Peer.Name()}
		return a
	}
}

// Receive is the main message handler for the RoomActor.
func (a *RoomActor) Receive(ctx actor.Context) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("PANIC recovered in RoomActor %s Receive: %v\nStack trace:\n%s\n", a.id, r, string(debug.Stack()))
		}
	}()

	if a.selfPID == nil {
		a.selfPID = ctx.Self()
	}

	switch m := ctx.Message().(type) {
	case actor.Started:
		a.handleStart()

	case roomTick:
		a.emit(a.state.step(time.Now()))

	case broadcastTick:
		a.handleBroadcast()

	case PaddleInput:
		a.state.setPaddle(m.Side, m.X)

	case RematchVote:
		a.handleRematchVote(m.Side)

	case Leave:
		a.handleLeave(m.Side)

	case internalEndGame:
		a.emit([]interface{}{a.state.endGame(m.Winner, m.Reason)})

	case actor.Stopping:
		a.performCleanup()

	case actor.Stopped:

	default:
		fmt.Printf("RoomActor %s: unknown message type %T\n", a.id, m)
	}
}

// handleStart announces the match to both peers and starts the two loops.
func (a *RoomActor) handleStart() {
	fmt.Printf("RoomActor %s: started (top=%s bottom=%s rematch=%t)\n",
		a.id, a.slots[SideTop.index()].name, a.slots[SideBottom.index()].name, a.rematch)

	players := [2]PlayerSummary{
		{Name: a.slots[SideTop.index()].name, Side: SideTop},
		{Name: a.slots[SideBottom.index()].name, Side: SideBottom},
	}
	countdown := a.cfg.CountdownSeconds()

	for _, side := range []Side{SideTop, SideBottom} {
		slot := a.slots[side.index()]
		a.engine.Send(slot.sessionPID, RoomAssigned{RoomID: a.id, RoomPID: a.selfPID, Side: side}, a.selfPID)
		slot.peer.Send(MatchFoundMessage{
			Type:      "matchFound",
			RoomID:    a.id,
			Players:   players,
			You:       side,
			Countdown: countdown,
		})
		if a.rematch {
			slot.peer.Send(newRematchStart(countdown))
		}
	}

	a.startLoops()
}

// startLoops runs the tick and broadcast tickers. They only ever feed the
// room's own mailbox; the timer goroutines never touch state.
func (a *RoomActor) startLoops() {
	a.tickTicker = time.NewTicker(a.cfg.TickPeriod)
	a.sendTicker = time.NewTicker(a.cfg.SendPeriod)

	go a.runLoop(a.tickTicker.C, roomTick{})
	go a.runLoop(a.sendTicker.C, broadcastTick{})
}

func (a *RoomActor) runLoop(tickCh <-chan time.Time, msg interface{}) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("PANIC recovered in RoomActor %s loop: %v\n", a.id, r)
		}
	}()
	for {
		select {
		case <-a.stopCh:
			return
		case _, ok := <-tickCh:
			if !ok {
				return
			}
			a.engine.Send(a.selfPID, msg, nil)
		}
	}
}

// handleBroadcast emits per-side state frames to every open peer. A slot
// whose peer closed without a Leave reaching us (session died before it
// learned its room) is detached here, so the room cannot leak.
func (a *RoomActor) handleBroadcast() {
	now := time.Now()
	for _, side := range []Side{SideTop, SideBottom} {
		slot := a.slots[side.index()]
		if slot == nil {
			continue
		}
		if !slot.peer.Open() {
			a.handleLeave(side)
			continue
		}
		slot.peer.Send(a.state.stateMessage(now, side))
	}
}

// handleRematchVote records a side's vote; outside gameover it is ignored.
func (a *RoomActor) handleRematchVote(side Side) {
	if a.state.phase != PhaseGameOver || a.rematchSent {
		return
	}
	if a.slots[side.index()] == nil {
		return
	}
	a.votes[side.index()] = true

	other := side.Opposite()
	otherSlot := a.slots[other.index()]
	if otherSlot != nil {
		otherSlot.peer.Send(newRematchOffered())
	}

	if a.votes[SideTop.index()] && a.votes[SideBottom.index()] &&
		a.slots[SideTop.index()] != nil && a.slots[SideBottom.index()] != nil {
		a.rematchSent = true
		a.performCleanup() // loops stop before this room is superseded
		top := a.slots[SideTop.index()]
		bottom := a.slots[SideBottom.index()]
		a.engine.Send(a.matchmakerPID, RematchAgreed{
			RoomID:  a.id,
			RoomPID: a.selfPID,
			Top:     SlotRef{Peer: top.peer, SessionPID: top.sessionPID},
			Bottom:  SlotRef{Peer: bottom.peer, SessionPID: bottom.sessionPID},
		}, a.selfPID)
	}
}

// handleLeave detaches one side. A live opponent wins by forfeit; when the
// last occupant leaves the room reports itself closed to the matchmaker.
func (a *RoomActor) handleLeave(side Side) {
	slot := a.slots[side.index()]
	if slot == nil {
		return
	}

	other := side.Opposite()
	otherSlot := a.slots[other.index()]
	if a.state.phase != PhaseGameOver && otherSlot != nil && otherSlot.peer.Open() {
		winner := other
		a.emit([]interface{}{a.state.endGame(&winner, ReasonDisconnect)})
	}

	a.engine.Send(slot.sessionPID, RoomDetached{RoomPID: a.selfPID}, a.selfPID)
	a.slots[side.index()] = nil

	if a.slots[SideTop.index()] == nil && a.slots[SideBottom.index()] == nil {
		fmt.Printf("RoomActor %s: empty, reporting closed\n", a.id)
		a.performCleanup() // loops stop before the registry lets go of us
		a.engine.Send(a.matchmakerPID, RoomClosed{RoomID: a.id, RoomPID: a.selfPID}, a.selfPID)
	}
}

// emit pushes out-of-band events (score, gameOver) to both sides.
func (a *RoomActor) emit(events []interface{}) {
	for _, ev := range events {
		switch e := ev.(type) {
		case scoreEvent:
			a.broadcast(newScore(e.Hearts, e.LastMiss))
		case gameOverEvent:
			a.broadcast(newGameOver(e.Winner, e.Reason, e.Hearts))
		}
	}
}

func (a *RoomActor) broadcast(msg interface{}) {
	for _, slot := range a.slots {
		if slot == nil || !slot.peer.Open() {
			continue
		}
		slot.peer.Send(msg)
	}
}

// performCleanup stops the loops exactly once. Runs before the room is
// removed from the engine, so a destroyed room can no longer tick.
func (a *RoomActor) performCleanup() {
	a.cleanupOnce.Do(func() {
		if a.tickTicker != nil {
			a.tickTicker.Stop()
		}
		if a.sendTicker != nil {
			a.sendTicker.Stop()
		}
		close(a.stopCh)
		fmt.Printf("RoomActor %s: loops stopped\n", a.id)
	})
}
