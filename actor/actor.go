package actor

// Actor is the interface that defines actor behavior.
// Actors process messages sequentially received from their mailbox.
type Actor interface {
	// Receive processes incoming messages. The actor can use the context
	// to interact with the system (e.g., get self PID, reply to an Ask).
	Receive(ctx Context)
}

// Producer is a function that creates a new instance of an Actor.
type Producer func() Actor

// Props is a configuration object used to create actors.
type Props struct {
	producer Producer
}

// NewProps creates a new Props object with the given actor producer.
func NewProps(producer Producer) *Props {
	if producer == nil {
		panic("actor: producer cannot be nil")
	}
	return &Props{producer: producer}
}

// Produce creates a new actor instance using the configured producer.
func (p *Props) Produce() Actor {
	return p.producer()
}
