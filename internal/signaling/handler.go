package signaling

import "context"

// Receiver consumes inbound bus messages.
type Receiver interface {
	Deliver(msg *Message)
}

// Forward hands every message from in to r until in is closed or ctx ends.
// It returns ErrBusClosed when the bus went away first.
func Forward(ctx context.Context, in <-chan *Message, r Receiver) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-in:
			if !ok {
				return ErrBusClosed
			}
			r.Deliver(msg)
		}
	}
}
