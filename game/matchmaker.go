// File: game/matchmaker.go
package game

import (
	"fmt"
	"math/rand"
	"runtime/debug"
	"sort"

	"github.com/pongduel/server/actor"
	"github.com/pongduel/server/utils"
)

// MatchmakerActor owns the FIFO queue of sessions seeking a match and the
// registry of live rooms. Because it is an actor, queue mutation and pairing
// are serialized without explicit locks, and it never blocks on peer I/O:
// room construction only spawns the room actor, which does its own
// announcements from its mailbox.
type MatchmakerActor struct {
	engine  *actor.Engine
	cfg     utils.Config
	rng     *rand.Rand
	selfPID *actor.PID

	queue      []SlotRef
	rooms      map[string]*actor.PID
	nextRoomID int
}

// NewMatchmakerProducer creates a producer for the MatchmakerActor. rng is
// the randomness seam for side assignment; each room gets a child RNG seeded
// from it so rooms stay independent across goroutines.
func NewMatchmakerProducer(engine *actor.Engine, cfg utils.Config, rng *rand.Rand) actor.Producer {
	return func() actor.Actor {
		return &MatchmakerActor{
			engine:     engine,
			cfg:        cfg,
			rng:        rng,
			rooms:      make(map[string]*actor.PID),
			nextRoomID: 1,
		}
	}
}

// Receive is the main message handler for the MatchmakerActor.
func (a *MatchmakerActor) Receive(ctx actor.Context) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("PANIC recovered in MatchmakerActor Receive: %v\nStack trace:\n%s\n", r, string(debug.Stack()))
			if ctx.RequestID() != "" {
				ctx.Reply(fmt.Errorf("matchmaker panicked: %v", r))
			}
		}
	}()

	if a.selfPID == nil {
		a.selfPID = ctx.Self()
	}

	switch m := ctx.Message().(type) {
	case actor.Started:
		fmt.Println("MatchmakerActor: started")

	case JoinQueue:
		a.handleJoin(m)

	case CancelQueue:
		a.removeFromQueue(m.SessionID)
		if m.Peer != nil {
			m.Peer.Send(newQueueCancelled())
		}

	case SessionClosed:
		a.removeFromQueue(m.SessionID)

	case RematchAgreed:
		a.handleRematch(m)

	case RoomClosed:
		a.handleRoomClosed(m)

	case RoomListRequest:
		a.handleRoomList(ctx)

	case actor.Stopping:
		for id, pid := range a.rooms {
			delete(a.rooms, id)
			a.engine.Stop(pid)
		}

	case actor.Stopped:

	default:
		fmt.Printf("MatchmakerActor: unknown message type %T\n", m)
		if ctx.RequestID() != "" {
			ctx.Reply(fmt.Errorf("unknown message type: %T", m))
		}
	}
}

// handleJoin appends a session, acknowledges with finding, and pairs.
func (a *MatchmakerActor) handleJoin(m JoinQueue) {
	if m.Peer == nil || m.SessionPID == nil {
		return
	}
	for _, entry := range a.queue {
		if entry.Peer.ID() == m.Peer.ID() {
			return // already queued
		}
	}
	a.queue = append(a.queue, SlotRef{Peer: m.Peer, SessionPID: m.SessionPID})
	m.Peer.Send(newFinding(len(a.queue)))
	a.tryPair()
}

// tryPair repeatedly pops the two oldest entries; stale entries (peer no
// longer open) are discarded. A valid pair becomes a room.
func (a *MatchmakerActor) tryPair() {
	for len(a.queue) >= 2 {
		if !a.queue[0].Peer.Open() {
			a.queue = a.queue[1:]
			continue
		}
		if !a.queue[1].Peer.Open() {
			a.queue = append(a.queue[:1], a.queue[2:]...)
			continue
		}
		first, second := a.queue[0], a.queue[1]
		a.queue = a.queue[2:]

		// Random side assignment on an initial match.
		top, bottom := first, second
		if a.rng.Intn(2) == 1 {
			top, bottom = second, first
		}
		a.buildRoom(top, bottom, false)
	}
}

// buildRoom is the single room construction path: explicit side assignment,
// no side randomization here. Callers decide the sides.
func (a *MatchmakerActor) buildRoom(top, bottom SlotRef, rematch bool) {
	id := fmt.Sprintf("room-%d", a.nextRoomID)
	a.nextRoomID++

	childRng := rand.New(rand.NewSource(a.rng.Int63()))
	props := actor.NewProps(NewRoomActorProducer(a.engine, a.cfg, a.selfPID, id, top, bottom, childRng, rematch))
	pid := a.engine.Spawn(props)
	if pid == nil {
		fmt.Printf("ERROR: MatchmakerActor: failed to spawn room %s\n", id)
		return
	}
	a.rooms[id] = pid
	fmt.Printf("MatchmakerActor: room %s created (%s vs %s)\n", id, top.Peer.Name(), bottom.Peer.Name())
}

// handleRematch replaces a finished room with a fresh one, sides swapped
// for fairness, then retires the old room.
func (a *MatchmakerActor) handleRematch(m RematchAgreed) {
	if a.rooms[m.RoomID] == nil {
		return // already retired
	}
	a.buildRoom(SlotRef{Peer: m.Bottom.Peer, SessionPID: m.Bottom.SessionPID},
		SlotRef{Peer: m.Top.Peer, SessionPID: m.Top.SessionPID}, true)

	delete(a.rooms, m.RoomID)
	a.engine.Stop(m.RoomPID)
}

// handleRoomClosed retires an empty room: deregister first, then stop its
// loops via the actor stop path.
func (a *MatchmakerActor) handleRoomClosed(m RoomClosed) {
	pid, exists := a.rooms[m.RoomID]
	if !exists || pid != m.RoomPID {
		return
	}
	delete(a.rooms, m.RoomID)
	a.engine.Stop(pid)
	fmt.Printf("MatchmakerActor: room %s retired\n", m.RoomID)
}

// handleRoomList answers a RoomListRequest delivered via Ask.
func (a *MatchmakerActor) handleRoomList(ctx actor.Context) {
	ids := make([]string, 0, len(a.rooms))
	for id := range a.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if ctx.RequestID() != "" {
		ctx.Reply(RoomListResponse{Rooms: ids})
	}
}

// removeFromQueue drops a session's queue entry if present.
func (a *MatchmakerActor) removeFromQueue(sessionID string) {
	for i, entry := range a.queue {
		if entry.Peer.ID() == sessionID {
			a.queue = append(a.queue[:i], a.queue[i+1:]...)
			return
		}
	}
}
