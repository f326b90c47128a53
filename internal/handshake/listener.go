package handshake

// Listener receives coordinator notifications. Methods run on the coordinator
// loop and must not block on it.
type Listener interface {
	// PhaseChanged reports every phase transition.
	PhaseChanged(phase Phase)
	// PeerAvailable reports a ready announcement received while idle.
	PeerAvailable()
	// Ready reports the open channel once the session is connected.
	Ready(ch Channel)
	// Payload reports an application payload received while connected.
	Payload(data []byte)
	// Closed reports the end of a session.
	Closed(outcome Outcome)
}

// NopListener ignores every notification. Embed it to implement a subset.
type NopListener struct{}

func (NopListener) PhaseChanged(Phase) {}
func (NopListener) PeerAvailable()     {}
func (NopListener) Ready(Channel)      {}
func (NopListener) Payload([]byte)     {}
func (NopListener) Closed(Outcome)     {}

// Listeners fans notifications out in order.
type Listeners []Listener

func (ls Listeners) PhaseChanged(phase Phase) {
	for _, l := range ls {
		l.PhaseChanged(phase)
	}
}

func (ls Listeners) PeerAvailable() {
	for _, l := range ls {
		l.PeerAvailable()
	}
}

func (ls Listeners) Ready(ch Channel) {
	for _, l := range ls {
		l.Ready(ch)
	}
}

func (ls Listeners) Payload(data []byte) {
	for _, l := range ls {
		l.Payload(data)
	}
}

func (ls Listeners) Closed(outcome Outcome) {
	for _, l := range ls {
		l.Closed(outcome)
	}
}
