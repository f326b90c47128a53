package handshake

import (
	"time"

	"github.com/BioHazard786/Warpdraw/internal/signaling"
)

// AfterFunc arms a single-shot alarm and returns its cancel function.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func realAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// timer is a cancellable token owned by the phase that armed it.
type timer struct {
	token uint64
	phase Phase
	stop  func() bool
}

// session is the single live negotiation. A nil *session means absent.
type session struct {
	generation uint64
	role       Role
	phase      Phase
	peerID     string

	transport Transport
	channel   Channel

	// pendingChannel holds a channel opened before the phase reached Connected.
	pendingChannel Channel

	timer *timer

	acknowledgedByPeer bool

	// offerSDP is kept while the local user decides.
	offerSDP string

	// pendingCandidates are remote candidates received before a transport
	// exists. A nil entry is the end-of-candidates marker.
	pendingCandidates []*signaling.Candidate

	startedAt time.Time
}

// Snapshot is a read-only view of the coordinator state.
type Snapshot struct {
	Phase              Phase
	Role               Role
	Generation         uint64
	PeerID             string
	HasTransport       bool
	HasChannel         bool
	TimerArmed         bool
	AcknowledgedByPeer bool
}

func (s *session) snapshot() Snapshot {
	if s == nil {
		return Snapshot{Phase: PhaseIdle, Role: RoleUninitiated}
	}
	return Snapshot{
		Phase:              s.phase,
		Role:               s.role,
		Generation:         s.generation,
		PeerID:             s.peerID,
		HasTransport:       s.transport != nil,
		HasChannel:         s.channel != nil,
		TimerArmed:         s.timer != nil,
		AcknowledgedByPeer: s.acknowledgedByPeer,
	}
}
