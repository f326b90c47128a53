package handshake

// Phase is the state of the local handshake.
type Phase int

const (
	// PhaseIdle means no session exists.
	PhaseIdle Phase = iota
	// PhaseOffering means an offer was published and an answer is awaited.
	PhaseOffering
	// PhaseAwaitingConfirmation means an inbound offer waits for the local user.
	PhaseAwaitingConfirmation
	// PhaseAwaitingAcknowledge means an answer was published and the
	// initiator's acknowledge is awaited.
	PhaseAwaitingAcknowledge
	// PhaseConnected means the handshake completed.
	PhaseConnected
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseOffering:
		return "offering"
	case PhaseAwaitingConfirmation:
		return "awaiting-confirmation"
	case PhaseAwaitingAcknowledge:
		return "awaiting-acknowledge"
	case PhaseConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Role says which side of the handshake the local participant plays.
type Role int

const (
	RoleUninitiated Role = iota
	RoleInitiator
	RoleResponder
)

func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	default:
		return "uninitiated"
	}
}

// Decision is the single result of a confirmation wait.
type Decision int

const (
	DecisionAccepted Decision = iota
	DecisionDeclined
	DecisionExpired
)

func (d Decision) String() string {
	switch d {
	case DecisionAccepted:
		return "accepted"
	case DecisionDeclined:
		return "declined"
	default:
		return "expired"
	}
}

// Outcome explains why a session ended.
type Outcome int

const (
	OutcomeDisconnected Outcome = iota
	OutcomeRemoteBye
	OutcomeTimeout
	OutcomeDeclined
	OutcomeTransportFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDisconnected:
		return "disconnected"
	case OutcomeRemoteBye:
		return "remote-bye"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeDeclined:
		return "declined"
	case OutcomeTransportFailure:
		return "transport-failure"
	default:
		return "unknown"
	}
}
