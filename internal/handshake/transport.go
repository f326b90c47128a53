package handshake

import "github.com/BioHazard786/Warpdraw/internal/signaling"

// Bus publishes handshake messages on the signaling bus.
type Bus interface {
	Publish(msg *signaling.Message) error
}

// Transport is the capability that negotiates and carries the peer link.
// A Transport is owned by exactly one session.
type Transport interface {
	// CreateOffer opens the data channel and returns the local offer SDP.
	CreateOffer() (string, error)
	// CreateAnswer applies a remote offer and returns the local answer SDP.
	CreateAnswer(offerSDP string) (string, error)
	// SetRemoteDescription applies the remote answer.
	SetRemoteDescription(answerSDP string) error
	// AddCandidate adds a remote candidate. nil marks end-of-candidates.
	AddCandidate(c *signaling.Candidate) error
	Close() error
}

// Channel is the ordered, reliable, bidirectional message pipe.
type Channel interface {
	Label() string
	Send(data []byte) error
	SendText(text string) error
	Close() error
}

// TransportEvents are the callbacks a Transport reports through. They may be
// invoked from any goroutine.
type TransportEvents struct {
	// OnCandidate reports a locally discovered candidate, nil when gathering ends.
	OnCandidate func(c *signaling.Candidate)
	// OnChannel reports the data channel once it is open.
	OnChannel func(ch Channel)
	// OnMessage reports a payload received on the data channel.
	OnMessage func(data []byte)
	// OnFailure reports negotiation or channel failure.
	OnFailure func(err error)
}

// TransportFactory creates a Transport wired to the given callbacks.
type TransportFactory func(events TransportEvents) (Transport, error)
