package actor

// Context provides information and capabilities to an Actor during message processing.
type Context interface {
	// Engine returns the Actor Engine managing this actor.
	Engine() *Engine
	// Self returns the PID of the actor processing the message.
	Self() *PID
	// Sender returns the PID of the actor that sent the message, if available.
	Sender() *PID
	// Message returns the actual message being processed.
	Message() interface{}
	// RequestID returns the id of the Ask request being processed, or "" if
	// the message was delivered with a plain Send.
	RequestID() string
	// Reply answers the pending Ask request. It is a no-op for plain Sends
	// and for a request that was already answered or timed out.
	Reply(v interface{})
}

// context implements the Context interface.
type context struct {
	engine    *Engine
	self      *PID
	sender    *PID
	message   interface{}
	requestID string
	replyCh   chan interface{}
}

func (c *context) Engine() *Engine      { return c.engine }
func (c *context) Self() *PID           { return c.self }
func (c *context) Sender() *PID         { return c.sender }
func (c *context) Message() interface{} { return c.message }
func (c *context) RequestID() string    { return c.requestID }

func (c *context) Reply(v interface{}) {
	if c.replyCh == nil {
		return
	}
	select {
	case c.replyCh <- v:
	default:
		// Asker already timed out and went away.
	}
	c.replyCh = nil
}
