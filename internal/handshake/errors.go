package handshake

import "errors"

var (
	ErrTimeout          = errors.New("handshake timeout")
	ErrDeclined         = errors.New("connection request declined")
	ErrTransportFailure = errors.New("transport failure")
	ErrPeerLeft         = errors.New("peer left")
)

// Cause maps an outcome to the error reported alongside it. A local
// disconnect has no cause.
func (o Outcome) Cause() error {
	switch o {
	case OutcomeTimeout:
		return ErrTimeout
	case OutcomeDeclined:
		return ErrDeclined
	case OutcomeTransportFailure:
		return ErrTransportFailure
	case OutcomeRemoteBye:
		return ErrPeerLeft
	default:
		return nil
	}
}
