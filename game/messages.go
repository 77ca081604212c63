// File: game/messages.go
package game

import "github.com/pongduel/server/actor"

// Peer is the game-side view of a connected player. Implemented by the
// server's websocket client and by mocks in tests. Send is best-effort and
// must never block the caller.
type Peer interface {
	ID() string
	Name() string
	Open() bool
	Send(msg interface{})
	Close()
}

// --- Messages TO MatchmakerActor ---

// JoinQueue appends a session to the matchmaking queue.
type JoinQueue struct {
	Peer       Peer
	SessionPID *actor.PID
}

// CancelQueue removes a session from the queue (no-op if absent) and always
// acknowledges with queueCancelled.
type CancelQueue struct {
	SessionID string
	Peer      Peer
}

// SessionClosed removes a disconnected session from the queue silently.
type SessionClosed struct {
	SessionID string
}

// RematchAgreed is sent by a room once both sides voted. The matchmaker
// builds the replacement room with the sides swapped and retires the old one.
type RematchAgreed struct {
	RoomID  string
	RoomPID *actor.PID
	Top     SlotRef // occupant of top in the finished room
	Bottom  SlotRef // occupant of bottom in the finished room
}

// RoomClosed is sent by a room whose last occupant left.
type RoomClosed struct {
	RoomID  string
	RoomPID *actor.PID
}

// RoomListRequest asks for the ids of live rooms (Ask pattern).
type RoomListRequest struct{}

// RoomListResponse answers a RoomListRequest.
type RoomListResponse struct {
	Rooms []string `json:"rooms"`
}

// SlotRef identifies one occupant when handing players between rooms.
type SlotRef struct {
	Peer       Peer
	SessionPID *actor.PID
}

// --- Messages TO RoomActor ---

// PaddleInput writes one side's clamped paddle position.
type PaddleInput struct {
	Side Side
	X    float64
}

// RematchVote records one side's rematch consent; ignored outside gameover.
type RematchVote struct {
	Side Side
}

// Leave detaches one side with forfeit semantics. Sent for an explicit
// leaveRoom frame and for socket close alike.
type Leave struct {
	Side Side
}

// internal timer messages; the ticker goroutines feed them into the room's
// own mailbox so all state access stays on the actor.
type roomTick struct{}
type broadcastTick struct{}

// internalEndGame forces the terminal phase; package-private test seam.
type internalEndGame struct {
	Winner *Side
	Reason string
}

// --- Messages TO a session actor (server package) ---

// RoomAssigned tells a session which room and side it now plays in. Sent on
// initial match and again for each rematch room.
type RoomAssigned struct {
	RoomID  string
	RoomPID *actor.PID
	Side    Side
}

// RoomDetached clears a session's room assignment. Carries the room PID so
// a stale detach cannot clobber a newer assignment.
type RoomDetached struct {
	RoomPID *actor.PID
}
