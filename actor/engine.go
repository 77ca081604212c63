package actor

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrTimeout is returned by Ask when the target does not reply in time.
var ErrTimeout = errors.New("actor: ask timed out")

// ErrNotFound is returned by Ask when the target actor does not exist.
var ErrNotFound = errors.New("actor: target not found")

// Engine manages the lifecycle and message dispatching for actors.
type Engine struct {
	pidCounter uint64
	reqCounter uint64
	actors     map[string]*process
	mu         sync.RWMutex // Protects the actors map
	stopping   atomic.Bool  // Indicates if the engine is shutting down
}

// NewEngine creates a new actor engine.
func NewEngine() *Engine {
	return &Engine{
		actors: make(map[string]*process),
	}
}

// nextPID generates a unique process ID.
func (e *Engine) nextPID() *PID {
	id := atomic.AddUint64(&e.pidCounter, 1)
	return &PID{ID: fmt.Sprintf("actor-%d", id)}
}

// Spawn creates and starts a new actor based on the provided Props.
// It returns the PID of the newly created actor, or nil if the engine
// is shutting down.
func (e *Engine) Spawn(props *Props) *PID {
	if e.stopping.Load() {
		fmt.Println("Engine is stopping, cannot spawn new actors")
		return nil
	}

	pid := e.nextPID()
	proc := newProcess(e, pid, props)

	e.mu.Lock()
	e.actors[pid.ID] = proc
	e.mu.Unlock()

	go proc.run()

	return pid
}

// Send delivers a message to the actor identified by the PID.
// sender can be nil if the message originates from outside the actor system.
func (e *Engine) Send(pid *PID, message interface{}, sender *PID) {
	if pid == nil {
		return
	}
	if e.stopping.Load() {
		return
	}

	e.mu.RLock()
	proc, ok := e.actors[pid.ID]
	e.mu.RUnlock()

	if ok {
		proc.sendMessage(&messageEnvelope{Sender: sender, Message: message})
	}
	// Unknown PID: the actor already stopped, drop the message.
}

// Ask delivers a message and waits for the actor to Reply, up to timeout.
func (e *Engine) Ask(pid *PID, message interface{}, timeout time.Duration) (interface{}, error) {
	if pid == nil {
		return nil, ErrNotFound
	}

	e.mu.RLock()
	proc, ok := e.actors[pid.ID]
	e.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	reqID := fmt.Sprintf("req-%d", atomic.AddUint64(&e.reqCounter, 1))
	replyCh := make(chan interface{}, 1)
	proc.sendMessage(&messageEnvelope{
		Message:   message,
		RequestID: reqID,
		ReplyCh:   replyCh,
	})

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case reply := <-replyCh:
		return reply, nil
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// Stop requests an actor to stop processing messages and shut down.
// The actor will process a Stopping message, followed by a Stopped message
// just before its goroutine exits.
func (e *Engine) Stop(pid *PID) {
	if pid == nil {
		return
	}
	e.mu.RLock()
	proc, ok := e.actors[pid.ID]
	e.mu.RUnlock()

	if ok {
		proc.stop()
	}
}

// remove removes an actor process from the engine's tracking.
// Called internally by the process when it fully stops.
func (e *Engine) remove(pid *PID) {
	e.mu.Lock()
	delete(e.actors, pid.ID)
	e.mu.Unlock()
}

// Shutdown stops all actors and waits for them to terminate gracefully.
func (e *Engine) Shutdown(timeout time.Duration) {
	if !e.stopping.CompareAndSwap(false, true) {
		return
	}

	e.mu.RLock()
	pidsToStop := make([]*PID, 0, len(e.actors))
	for _, proc := range e.actors {
		pidsToStop = append(pidsToStop, proc.pid)
	}
	e.mu.RUnlock()

	for _, pid := range pidsToStop {
		e.mu.RLock()
		proc, ok := e.actors[pid.ID]
		e.mu.RUnlock()
		if ok {
			proc.stop()
		}
	}

	// Wait for actors to be removed (simple polling).
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		e.mu.RLock()
		remaining := len(e.actors)
		e.mu.RUnlock()
		if remaining == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	e.mu.Lock()
	if len(e.actors) > 0 {
		fmt.Printf("Engine shutdown timeout: %d actors did not stop gracefully.\n", len(e.actors))
		e.actors = make(map[string]*process)
	}
	e.mu.Unlock()
}
