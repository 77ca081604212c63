// File: game/testhelpers_test.go
package game

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pongduel/server/actor"
	"github.com/pongduel/server/utils"
)

const testShutdownTimeout = 2 * time.Second

// mockPeer records everything sent to it, in order.
type mockPeer struct {
	mu   sync.Mutex
	id   string
	name string
	open bool
	msgs []interface{}
}

func newMockPeer(id, name string) *mockPeer {
	return &mockPeer{id: id, name: name, open: true}
}

func (p *mockPeer) ID() string   { return p.id }
func (p *mockPeer) Name() string { return p.name }

func (p *mockPeer) Open() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

func (p *mockPeer) Send(msg interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return
	}
	p.msgs = append(p.msgs, msg)
}

func (p *mockPeer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = false
}

func (p *mockPeer) received() []interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]interface{}, len(p.msgs))
	copy(out, p.msgs)
	return out
}

// waitFor polls the peer's inbox until match returns true for some message.
func (p *mockPeer) waitFor(t *testing.T, timeout time.Duration, match func(interface{}) bool) (interface{}, bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, msg := range p.received() {
			if match(msg) {
				return msg, true
			}
		}
		time.Sleep(2 * time.Millisecond)
	}
	return nil, false
}

func isType(example interface{}) func(interface{}) bool {
	return func(msg interface{}) bool {
		return fmt.Sprintf("%T", msg) == fmt.Sprintf("%T", example)
	}
}

// mockSessionActor stands in for the server-side session; it records the
// room assignment messages a real session would act on.
type mockSessionActor struct {
	mu   sync.Mutex
	msgs []interface{}
}

func (a *mockSessionActor) Receive(ctx actor.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.msgs = append(a.msgs, ctx.Message())
}

func (a *mockSessionActor) received() []interface{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]interface{}, len(a.msgs))
	copy(out, a.msgs)
	return out
}

// lastAssignment returns the most recent RoomAssigned, if any.
func (a *mockSessionActor) lastAssignment() (RoomAssigned, bool) {
	var out RoomAssigned
	found := false
	for _, msg := range a.received() {
		if ra, ok := msg.(RoomAssigned); ok {
			out = ra
			found = true
		}
	}
	return out, found
}

func (a *mockSessionActor) waitForAssignment(t *testing.T, timeout time.Duration) RoomAssigned {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ra, ok := a.lastAssignment(); ok {
			return ra
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("session never received a room assignment")
	return RoomAssigned{}
}

// matchFixture is a fully matched pair of mock players.
type matchFixture struct {
	engine        *actor.Engine
	cfg           utils.Config
	matchmakerPID *actor.PID

	peerA, peerB       *mockPeer
	sessionA, sessionB *mockSessionActor
	pidA, pidB         *actor.PID
}

// newMatchFixture spawns a matchmaker, queues two mock players, and waits
// for the match to form.
func newMatchFixture(t *testing.T, seed int64) *matchFixture {
	t.Helper()
	engine := actor.NewEngine()
	t.Cleanup(func() { engine.Shutdown(testShutdownTimeout) })

	cfg := utils.FastConfig()
	rng := rand.New(rand.NewSource(seed))
	matchmakerPID := engine.Spawn(actor.NewProps(NewMatchmakerProducer(engine, cfg, rng)))
	require.NotNil(t, matchmakerPID)

	f := &matchFixture{
		engine:        engine,
		cfg:           cfg,
		matchmakerPID: matchmakerPID,
		peerA:         newMockPeer("peer-a", "Alice"),
		peerB:         newMockPeer("peer-b", "Bob"),
		sessionA:      &mockSessionActor{},
		sessionB:      &mockSessionActor{},
	}
	f.pidA = engine.Spawn(actor.NewProps(func() actor.Actor { return f.sessionA }))
	f.pidB = engine.Spawn(actor.NewProps(func() actor.Actor { return f.sessionB }))

	engine.Send(matchmakerPID, JoinQueue{Peer: f.peerA, SessionPID: f.pidA}, nil)
	engine.Send(matchmakerPID, JoinQueue{Peer: f.peerB, SessionPID: f.pidB}, nil)

	_, ok := f.peerA.waitFor(t, time.Second, isType(MatchFoundMessage{}))
	require.True(t, ok, "peer A never got matchFound")
	_, ok = f.peerB.waitFor(t, time.Second, isType(MatchFoundMessage{}))
	require.True(t, ok, "peer B never got matchFound")

	return f
}

// assignments waits until both sessions know their room.
func (f *matchFixture) assignments(t *testing.T) (RoomAssigned, RoomAssigned) {
	t.Helper()
	return f.sessionA.waitForAssignment(t, time.Second), f.sessionB.waitForAssignment(t, time.Second)
}
