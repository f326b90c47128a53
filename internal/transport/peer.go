package transport

import (
	"log/slog"
	"sync"

	"github.com/BioHazard786/Warpdraw/internal/config"
	"github.com/BioHazard786/Warpdraw/internal/handshake"
	"github.com/BioHazard786/Warpdraw/internal/signaling"
	pion "github.com/pion/webrtc/v4"
)

// ChannelLabel is the data channel label browser peers expect.
const ChannelLabel = "sendDataChannel"

// Peer is a pion peer connection driven by the handshake coordinator.
type Peer struct {
	pc     *pion.PeerConnection
	events handshake.TransportEvents
	logger *slog.Logger

	mu        sync.Mutex
	closed    bool
	remoteSet bool
	// pending holds remote candidates received before the remote description.
	pending []pion.ICECandidateInit

	failOnce sync.Once
}

// NewFactory returns a handshake.TransportFactory building peers from cfg.
func NewFactory(cfg *config.Config, logger *slog.Logger) handshake.TransportFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return func(events handshake.TransportEvents) (handshake.Transport, error) {
		return NewPeer(cfg, events, logger)
	}
}

// NewPeerConnection builds a peer connection with the configured ICE servers.
// Relay-only policy is used when forced or when the host looks restricted.
func NewPeerConnection(cfg *config.Config) (*pion.PeerConnection, error) {
	var iceServers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); stun != nil {
		iceServers = append(iceServers, pion.ICEServer{URLs: stun})
	}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turnServers != nil && (cfg.ForceRelay || ShouldForceRelay()) {
		policy = pion.ICETransportPolicyRelay
	}

	pc, err := pion.NewPeerConnection(pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
	if err != nil {
		return nil, NewError("create peer connection", err)
	}
	return pc, nil
}

// NewPeer creates a peer connection and routes its callbacks to events.
func NewPeer(cfg *config.Config, events handshake.TransportEvents, logger *slog.Logger) (*Peer, error) {
	pc, err := NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}

	p := &Peer{pc: pc, events: events, logger: logger.With("component", "transport")}

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if p.isClosed() || events.OnCandidate == nil {
			return
		}
		if c == nil {
			events.OnCandidate(nil)
			return
		}
		init := c.ToJSON()
		events.OnCandidate(&signaling.Candidate{
			Candidate:     init.Candidate,
			SDPMid:        init.SDPMid,
			SDPMLineIndex: init.SDPMLineIndex,
		})
	})

	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		p.logger.Debug("connection state changed", "state", state.String())
		switch state {
		case pion.PeerConnectionStateFailed:
			p.fail(ErrConnectionFailed)
		case pion.PeerConnectionStateClosed:
			p.fail(WrapError("connection", ErrClosed, "closed by remote"))
		}
	})

	// responders receive the channel the initiator created
	pc.OnDataChannel(func(dc *pion.DataChannel) {
		p.attach(dc)
	})

	return p, nil
}

// CreateOffer opens the data channel and returns the local offer.
func (p *Peer) CreateOffer() (string, error) {
	ordered := true
	dc, err := p.pc.CreateDataChannel(ChannelLabel, &pion.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return "", NewError("create data channel", err)
	}
	p.attach(dc)

	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return "", NewError("create offer", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return "", NewError("set local description", err)
	}
	return p.pc.LocalDescription().SDP, nil
}

// CreateAnswer applies a remote offer and returns the local answer.
func (p *Peer) CreateAnswer(offerSDP string) (string, error) {
	offer := pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: offerSDP}
	if err := p.pc.SetRemoteDescription(offer); err != nil {
		return "", NewError("set remote description", err)
	}
	p.flushCandidates()

	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return "", NewError("create answer", err)
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return "", NewError("set local description", err)
	}
	return p.pc.LocalDescription().SDP, nil
}

// SetRemoteDescription applies the answer to our offer.
func (p *Peer) SetRemoteDescription(answerSDP string) error {
	answer := pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: answerSDP}
	if err := p.pc.SetRemoteDescription(answer); err != nil {
		return NewError("set remote description", err)
	}
	p.flushCandidates()
	return nil
}

// AddCandidate applies a remote candidate, or buffers it until the remote
// description is known. nil marks the end of candidates.
func (p *Peer) AddCandidate(c *signaling.Candidate) error {
	init := toCandidateInit(c)

	p.mu.Lock()
	if !p.remoteSet {
		p.pending = append(p.pending, init)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if err := p.pc.AddICECandidate(init); err != nil {
		return NewError("add ICE candidate", err)
	}
	return nil
}

func (p *Peer) flushCandidates() {
	p.mu.Lock()
	p.remoteSet = true
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	for _, init := range pending {
		if err := p.pc.AddICECandidate(init); err != nil {
			p.logger.Warn("buffered candidate rejected", "error", err)
		}
	}
}

func toCandidateInit(c *signaling.Candidate) pion.ICECandidateInit {
	if c == nil {
		return pion.ICECandidateInit{}
	}
	return pion.ICECandidateInit{
		Candidate:     c.Candidate,
		SDPMid:        c.SDPMid,
		SDPMLineIndex: c.SDPMLineIndex,
	}
}

// attach wires a data channel's lifecycle to the coordinator events.
func (p *Peer) attach(dc *pion.DataChannel) {
	if dc.Label() != ChannelLabel {
		p.logger.Debug("ignoring unexpected data channel", "label", dc.Label())
		return
	}
	ch := &Channel{dc: dc}

	dc.OnOpen(func() {
		p.logger.Debug("data channel open", "label", dc.Label())
		if p.isClosed() || p.events.OnChannel == nil {
			return
		}
		p.events.OnChannel(ch)
	})

	dc.OnMessage(func(msg pion.DataChannelMessage) {
		if p.isClosed() || p.events.OnMessage == nil {
			return
		}
		p.events.OnMessage(msg.Data)
	})

	dc.OnClose(func() {
		p.fail(ErrChannelClosed)
	})
}

// fail reports the first failure of a transport we did not close ourselves.
func (p *Peer) fail(err error) {
	if p.isClosed() {
		return
	}
	p.failOnce.Do(func() {
		p.logger.Warn("transport failed", "error", err)
		if p.events.OnFailure != nil {
			p.events.OnFailure(err)
		}
	})
}

func (p *Peer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close tears down the peer connection. Callbacks after Close are dropped.
func (p *Peer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.pending = nil
	p.mu.Unlock()

	if err := p.pc.Close(); err != nil {
		return NewError("close peer connection", err)
	}
	return nil
}
