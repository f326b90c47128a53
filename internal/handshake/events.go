package handshake

import "github.com/BioHazard786/Warpdraw/internal/signaling"

// event is anything the coordinator loop reacts to.
type event interface{ isEvent() }

type (
	connectEvent    struct{}
	disconnectEvent struct{}

	decisionEvent struct {
		decision Decision
	}

	inboundEvent struct {
		msg *signaling.Message
	}

	timeoutEvent struct {
		token uint64
	}

	localCandidateEvent struct {
		generation uint64
		candidate  *signaling.Candidate
	}

	channelEvent struct {
		generation uint64
		channel    Channel
	}

	payloadEvent struct {
		generation uint64
		data       []byte
	}

	failureEvent struct {
		generation uint64
		err        error
	}

	snapshotEvent struct {
		reply chan Snapshot
	}
)

func (connectEvent) isEvent()        {}
func (disconnectEvent) isEvent()     {}
func (decisionEvent) isEvent()       {}
func (inboundEvent) isEvent()        {}
func (timeoutEvent) isEvent()        {}
func (localCandidateEvent) isEvent() {}
func (channelEvent) isEvent()        {}
func (payloadEvent) isEvent()        {}
func (failureEvent) isEvent()        {}
func (snapshotEvent) isEvent()       {}
