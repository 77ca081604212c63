package actor

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"
)

const defaultMailboxSize = 1024

// process represents the running instance of an actor, including its
// mailbox and stop state.
type process struct {
	engine  *Engine
	pid     *PID
	actor   Actor
	props   *Props
	mailbox chan *messageEnvelope
	stopCh  chan struct{}
	stopped atomic.Bool
}

func newProcess(engine *Engine, pid *PID, props *Props) *process {
	return &process{
		engine:  engine,
		pid:     pid,
		props:   props,
		mailbox: make(chan *messageEnvelope, defaultMailboxSize),
		stopCh:  make(chan struct{}),
	}
}

// sendMessage enqueues a message on the actor's mailbox. Non-blocking: if
// the mailbox is full the message is dropped (the protocol is loss-tolerant,
// periodic state re-sends self-heal).
func (p *process) sendMessage(envelope *messageEnvelope) {
	if p.stopped.Load() {
		return
	}
	select {
	case p.mailbox <- envelope:
	default:
	}
}

// stop signals the run loop to exit. Idempotent.
func (p *process) stop() {
	if p.stopped.CompareAndSwap(false, true) {
		close(p.stopCh)
	}
}

// run is the main loop for the actor process. Messages are processed
// strictly one at a time, which is what gives every actor single-writer
// semantics over its own state.
func (p *process) run() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Actor %s panicked during final cleanup: %v\n", p.pid.ID, r)
		}
		p.engine.remove(p.pid)
	}()

	p.actor = p.props.Produce()
	if p.actor == nil {
		panic(fmt.Sprintf("Actor %s producer returned nil actor", p.pid.ID))
	}
	p.invokeReceive(&messageEnvelope{Message: Started{}})

	for {
		select {
		case <-p.stopCh:
			p.invokeReceive(&messageEnvelope{Message: Stopping{}})
			p.invokeReceive(&messageEnvelope{Message: Stopped{}})
			return
		case envelope := <-p.mailbox:
			// A stop may have raced the dequeue; prefer shutting down over
			// processing a stale user message.
			if p.stopped.Load() {
				p.invokeReceive(&messageEnvelope{Message: Stopping{}})
				p.invokeReceive(&messageEnvelope{Message: Stopped{}})
				return
			}
			p.invokeReceive(envelope)
		}
	}
}

// invokeReceive calls the actor's Receive with panic isolation. A panic in
// one message handler never takes down the process or other actors.
func (p *process) invokeReceive(envelope *messageEnvelope) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("PANIC recovered in actor %s processing %T: %v\nStack trace:\n%s\n",
				p.pid.ID, envelope.Message, r, string(debug.Stack()))
		}
	}()

	ctx := &context{
		engine:    p.engine,
		self:      p.pid,
		sender:    envelope.Sender,
		message:   envelope.Message,
		requestID: envelope.RequestID,
		replyCh:   envelope.ReplyCh,
	}
	p.actor.Receive(ctx)
}
