// File: server/session_actor.go
package server

import (
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/pongduel/server/actor"
	"github.com/pongduel/server/game"
	"github.com/pongduel/server/utils"
)

// inboundFrame carries one raw frame from the read pump into the session's
// mailbox. The pump is a single goroutine, so frames from one peer are
// processed in arrival order.
type inboundFrame struct {
	Data []byte
}

// peerDisconnected signals that the read pump exited (close, error, or
// keep-alive timeout). All three converge on the same leave path.
type peerDisconnected struct{}

// SessionActor owns one peer's protocol state: display name, queue
// membership, and current room assignment with side. It parses inbound
// frames and dispatches them to the matchmaker or the room.
type SessionActor struct {
	engine        *actor.Engine
	cfg           utils.Config
	matchmakerPID *actor.PID
	selfPID       *actor.PID
	client        *Client

	queued  bool
	roomPID *actor.PID
	roomID  string
	side    game.Side

	onStop func()
}

// NewSessionActorProducer creates a producer for a SessionActor. onStop runs
// once when the session terminates (used to deregister the client).
func NewSessionActorProducer(engine *actor.Engine, cfg utils.Config, matchmakerPID *actor.PID,
	client *Client, onStop func()) actor.Producer {
	return func() actor.Actor {
		return &SessionActor{
			engine:        engine,
			cfg:           cfg,
			matchmakerPID: matchmakerPID,
			client:        client,
			onStop:        onStop,
		}
	}
}

// Receive handles messages for the SessionActor.
func (a *SessionActor) Receive(ctx actor.Context) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("PANIC recovered in SessionActor %s Receive: %v\nStack trace:\n%s\n",
				a.client.ID(), r, string(debug.Stack()))
		}
	}()

	if a.selfPID == nil {
		a.selfPID = ctx.Self()
	}

	switch m := ctx.Message().(type) {
	case actor.Started:
		a.client.Send(game.NewHello(a.client.ID()))

	case inboundFrame:
		a.handleFrame(m.Data)

	case game.RoomAssigned:
		a.queued = false
		a.roomPID = m.RoomPID
		a.roomID = m.RoomID
		a.side = m.Side

	case game.RoomDetached:
		if a.roomPID != nil && m.RoomPID != nil && a.roomPID.ID == m.RoomPID.ID {
			a.roomPID = nil
			a.roomID = ""
			a.side = ""
		}

	case peerDisconnected:
		a.handleDisconnect()

	case actor.Stopping:
		a.client.Close()

	case actor.Stopped:
		if a.onStop != nil {
			a.onStop()
		}

	default:
		fmt.Printf("SessionActor %s: unknown message type %T\n", a.client.ID(), m)
	}
}

// handleFrame parses and dispatches one inbound frame. Malformed frames are
// silently discarded; unrecognized types get an error reply.
func (a *SessionActor) handleFrame(data []byte) {
	var msg game.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
		return
	}

	switch msg.Type {
	case game.MsgJoinQueue:
		if a.roomPID != nil || a.queued {
			return
		}
		a.client.setName(utils.SanitizeName(msg.Name, a.cfg.MaxNameLength))
		a.queued = true
		a.engine.Send(a.matchmakerPID, game.JoinQueue{Peer: a.client, SessionPID: a.selfPID}, a.selfPID)

	case game.MsgCancelQueue:
		a.queued = false
		a.engine.Send(a.matchmakerPID, game.CancelQueue{SessionID: a.client.ID(), Peer: a.client}, a.selfPID)

	case game.MsgPaddle:
		if a.roomPID != nil && a.side != "" {
			a.engine.Send(a.roomPID, game.PaddleInput{Side: a.side, X: msg.X}, a.selfPID)
		}

	case game.MsgRematchRequest:
		if a.roomPID != nil && a.side != "" {
			a.engine.Send(a.roomPID, game.RematchVote{Side: a.side}, a.selfPID)
		}

	case game.MsgLeaveRoom:
		if a.queued {
			a.queued = false
			a.engine.Send(a.matchmakerPID, game.SessionClosed{SessionID: a.client.ID()}, a.selfPID)
		}
		if a.roomPID != nil && a.side != "" {
			a.engine.Send(a.roomPID, game.Leave{Side: a.side}, a.selfPID)
		}

	default:
		a.client.Send(game.NewUnknownTypeError())
	}
}

// handleDisconnect runs the leave path: out of the queue, out of the room
// with forfeit semantics, then stop.
func (a *SessionActor) handleDisconnect() {
	if a.queued {
		a.queued = false
		a.engine.Send(a.matchmakerPID, game.SessionClosed{SessionID: a.client.ID()}, a.selfPID)
	}
	if a.roomPID != nil && a.side != "" {
		a.engine.Send(a.roomPID, game.Leave{Side: a.side}, a.selfPID)
	}
	a.client.Close()
	a.engine.Stop(a.selfPID)
}
