package handshake

import (
	"context"
	"log/slog"
	"time"

	"github.com/BioHazard786/Warpdraw/internal/observability"
	"github.com/BioHazard786/Warpdraw/internal/signaling"
)

const (
	DefaultTimeout       = 5 * time.Second
	DefaultReadyInterval = 1 * time.Second

	eventBuffer = 128
)

// Options configures a Coordinator. Zero durations fall back to the defaults;
// a negative ReadyInterval disables ready announcements.
type Options struct {
	// ID is the local participant id sent in the from field.
	ID string

	OfferTimeout       time.Duration
	ConfirmTimeout     time.Duration
	AcknowledgeTimeout time.Duration
	ReadyInterval      time.Duration

	Listener  Listener
	Logger    *slog.Logger
	AfterFunc AfterFunc
}

// Coordinator runs the handshake state machine. All transitions happen on the
// goroutine running Run; the exported methods only enqueue events.
type Coordinator struct {
	id        string
	bus       Bus
	factory   TransportFactory
	listener  Listener
	logger    *slog.Logger
	afterFunc AfterFunc

	offerTimeout       time.Duration
	confirmTimeout     time.Duration
	acknowledgeTimeout time.Duration
	readyInterval      time.Duration

	events chan event
	done   chan struct{}

	// loop-owned state
	session    *session
	generation uint64
	tokens     uint64
}

// New creates a Coordinator publishing on bus and creating transports with factory.
func New(bus Bus, factory TransportFactory, opts Options) *Coordinator {
	c := &Coordinator{
		id:                 opts.ID,
		bus:                bus,
		factory:            factory,
		listener:           opts.Listener,
		logger:             opts.Logger,
		afterFunc:          opts.AfterFunc,
		offerTimeout:       orDefault(opts.OfferTimeout, DefaultTimeout),
		confirmTimeout:     orDefault(opts.ConfirmTimeout, DefaultTimeout),
		acknowledgeTimeout: orDefault(opts.AcknowledgeTimeout, DefaultTimeout),
		readyInterval:      orDefault(opts.ReadyInterval, DefaultReadyInterval),
		events:             make(chan event, eventBuffer),
		done:               make(chan struct{}),
	}
	if c.listener == nil {
		c.listener = NopListener{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.afterFunc == nil {
		c.afterFunc = realAfterFunc
	}
	return c
}

func orDefault(d, def time.Duration) time.Duration {
	if d == 0 {
		return def
	}
	return d
}

// ID returns the local participant id.
func (c *Coordinator) ID() string {
	return c.id
}

// Run processes events until ctx is cancelled. A live session is torn down
// on the way out as if Disconnect had been called.
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.done)

	var tick <-chan time.Time
	if c.readyInterval > 0 {
		ticker := time.NewTicker(c.readyInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	c.announce()
	for {
		select {
		case <-ctx.Done():
			c.onDisconnect()
			return nil

		case <-tick:
			c.announce()

		case ev := <-c.events:
			c.dispatch(ev)
		}
	}
}

// Connect requests a new session with the local side as initiator.
func (c *Coordinator) Connect() { c.post(connectEvent{}) }

// Disconnect ends the current session. It is safe in every phase.
func (c *Coordinator) Disconnect() { c.post(disconnectEvent{}) }

// Accept confirms a pending inbound offer.
func (c *Coordinator) Accept() { c.post(decisionEvent{decision: DecisionAccepted}) }

// Decline rejects a pending inbound offer.
func (c *Coordinator) Decline() { c.post(decisionEvent{decision: DecisionDeclined}) }

// Deliver hands an inbound bus message to the state machine.
func (c *Coordinator) Deliver(msg *signaling.Message) {
	if msg == nil {
		return
	}
	c.post(inboundEvent{msg: msg})
}

// Snapshot returns the current state once every previously enqueued event has
// been processed.
func (c *Coordinator) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	if !c.post(snapshotEvent{reply: reply}) {
		return Snapshot{Phase: PhaseIdle}
	}
	select {
	case s := <-reply:
		return s
	case <-c.done:
		return Snapshot{Phase: PhaseIdle}
	}
}

// Done is closed once Run has returned.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) post(ev event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

func (c *Coordinator) dispatch(ev event) {
	switch ev := ev.(type) {
	case connectEvent:
		c.onConnect()
	case disconnectEvent:
		c.onDisconnect()
	case decisionEvent:
		c.onDecision(ev.decision)
	case inboundEvent:
		c.onInbound(ev.msg)
	case timeoutEvent:
		c.onTimeout(ev.token)
	case localCandidateEvent:
		c.onLocalCandidate(ev)
	case channelEvent:
		c.onChannel(ev)
	case payloadEvent:
		c.onPayload(ev)
	case failureEvent:
		c.onFailure(ev)
	case snapshotEvent:
		ev.reply <- c.session.snapshot()
	}
}

func (c *Coordinator) phase() Phase {
	if c.session == nil {
		return PhaseIdle
	}
	return c.session.phase
}

// announce publishes ready while no session exists.
func (c *Coordinator) announce() {
	if c.session != nil {
		return
	}
	c.publish(&signaling.Message{Type: signaling.TypeReady})
}

// --- local actions ---

func (c *Coordinator) onConnect() {
	if c.phase() != PhaseIdle {
		c.logger.Debug("connect ignored", "phase", c.phase())
		return
	}

	s := c.begin(RoleInitiator)
	if !c.attachTransport(s) {
		return
	}

	sdp, err := s.transport.CreateOffer()
	if err != nil {
		c.logger.Warn("create offer failed", "error", err)
		c.teardown(OutcomeTransportFailure, false)
		return
	}
	if err := c.publish(&signaling.Message{Type: signaling.TypeOffer, SDP: sdp}); err != nil {
		c.teardown(OutcomeTransportFailure, false)
		return
	}

	c.enter(PhaseOffering)
	c.arm(c.offerTimeout)
}

func (c *Coordinator) onDisconnect() {
	switch c.phase() {
	case PhaseIdle:
		c.logger.Debug("disconnect while idle")
	case PhaseAwaitingConfirmation:
		c.resolve(DecisionDeclined)
	case PhaseOffering, PhaseAwaitingAcknowledge, PhaseConnected:
		c.teardown(OutcomeDisconnected, true)
	}
}

func (c *Coordinator) onDecision(d Decision) {
	switch c.phase() {
	case PhaseAwaitingConfirmation:
		c.resolve(d)
	default:
		c.logger.Debug("decision ignored", "decision", d, "phase", c.phase())
	}
}

// resolve consumes the one result of a confirmation wait.
func (c *Coordinator) resolve(d Decision) {
	s := c.session
	c.logger.Info("confirmation resolved", "decision", d, "generation", s.generation)

	switch d {
	case DecisionDeclined:
		c.teardown(OutcomeDeclined, false)
		return
	case DecisionExpired:
		c.teardown(OutcomeTimeout, false)
		return
	}

	c.disarm(s)
	s.role = RoleResponder
	if !c.attachTransport(s) {
		return
	}

	sdp, err := s.transport.CreateAnswer(s.offerSDP)
	if err != nil {
		c.logger.Warn("create answer failed", "error", err)
		c.teardown(OutcomeTransportFailure, false)
		return
	}
	s.offerSDP = ""

	for _, cand := range s.pendingCandidates {
		if err := s.transport.AddCandidate(cand); err != nil {
			c.logger.Warn("queued candidate rejected", "error", err)
		}
	}
	s.pendingCandidates = nil

	if err := c.publish(&signaling.Message{Type: signaling.TypeAnswer, SDP: sdp}); err != nil {
		c.teardown(OutcomeTransportFailure, false)
		return
	}

	c.enter(PhaseAwaitingAcknowledge)
	c.arm(c.acknowledgeTimeout)
}

// --- inbound bus messages ---

func (c *Coordinator) onInbound(msg *signaling.Message) {
	observability.RecordSignal("in", string(msg.Type))

	if !c.addressedToUs(msg) {
		c.logger.Debug("message for another participant", "type", msg.Type, "from", msg.From, "to", msg.To)
		return
	}

	switch msg.Type {
	case signaling.TypeReady:
		c.onReady()
	case signaling.TypeOffer:
		c.onOffer(msg)
	case signaling.TypeAnswer:
		c.onAnswer(msg)
	case signaling.TypeCandidate:
		c.onRemoteCandidate(msg)
	case signaling.TypeAcknowledge:
		c.onAcknowledge()
	case signaling.TypeBye:
		c.onBye()
	default:
		c.ignore(msg)
	}
}

// addressedToUs filters traffic meant for other listeners on the bus.
func (c *Coordinator) addressedToUs(msg *signaling.Message) bool {
	if msg.To != "" && c.id != "" && msg.To != c.id {
		return false
	}
	if s := c.session; s != nil && s.peerID != "" && msg.From != "" && msg.From != s.peerID {
		return false
	}
	return true
}

func (c *Coordinator) ignore(msg *signaling.Message) {
	c.logger.Debug("message ignored", "type", msg.Type, "phase", c.phase())
}

func (c *Coordinator) onReady() {
	switch c.phase() {
	case PhaseIdle:
		c.listener.PeerAvailable()
	default:
		c.logger.Debug("ready ignored", "phase", c.phase())
	}
}

func (c *Coordinator) onOffer(msg *signaling.Message) {
	if c.phase() != PhaseIdle {
		// first offer wins; the session it started stays untouched
		c.ignore(msg)
		return
	}

	s := c.begin(RoleUninitiated)
	s.offerSDP = msg.SDP
	s.peerID = msg.From

	c.enter(PhaseAwaitingConfirmation)
	c.arm(c.confirmTimeout)
}

func (c *Coordinator) onAnswer(msg *signaling.Message) {
	if c.phase() != PhaseOffering {
		c.ignore(msg)
		return
	}

	s := c.session
	c.disarm(s)
	if err := s.transport.SetRemoteDescription(msg.SDP); err != nil {
		c.logger.Warn("apply answer failed", "error", err)
		c.teardown(OutcomeTransportFailure, false)
		return
	}
	if s.peerID == "" {
		s.peerID = msg.From
	}

	if err := c.publish(&signaling.Message{Type: signaling.TypeAcknowledge}); err != nil {
		c.teardown(OutcomeTransportFailure, false)
		return
	}
	c.connected()
}

func (c *Coordinator) onAcknowledge() {
	if c.phase() != PhaseAwaitingAcknowledge {
		c.logger.Debug("acknowledge ignored", "phase", c.phase())
		return
	}

	c.disarm(c.session)
	c.session.acknowledgedByPeer = true
	c.connected()
}

func (c *Coordinator) onRemoteCandidate(msg *signaling.Message) {
	cand := msg.ICECandidate()

	switch c.phase() {
	case PhaseOffering, PhaseAwaitingAcknowledge, PhaseConnected:
		if err := c.session.transport.AddCandidate(cand); err != nil {
			c.logger.Warn("add candidate failed", "error", err)
		}
	case PhaseAwaitingConfirmation:
		c.session.pendingCandidates = append(c.session.pendingCandidates, cand)
	default:
		c.ignore(msg)
	}
}

func (c *Coordinator) onBye() {
	switch c.phase() {
	case PhaseIdle:
		c.logger.Debug("bye ignored while idle")
	default:
		c.teardown(OutcomeRemoteBye, false)
	}
}

// --- timers ---

// arm starts the timer owned by the current phase.
func (c *Coordinator) arm(d time.Duration) {
	s := c.session
	c.tokens++
	token := c.tokens
	s.timer = &timer{
		token: token,
		phase: s.phase,
		stop: c.afterFunc(d, func() {
			c.post(timeoutEvent{token: token})
		}),
	}
}

// disarm invalidates the current timer token.
func (c *Coordinator) disarm(s *session) {
	if s == nil || s.timer == nil {
		return
	}
	s.timer.stop()
	s.timer = nil
}

func (c *Coordinator) onTimeout(token uint64) {
	s := c.session
	if s == nil || s.timer == nil || s.timer.token != token || s.timer.phase != s.phase {
		c.logger.Debug("stale timer ignored", "token", token)
		return
	}
	s.timer = nil

	c.logger.Info("handshake timeout", "phase", s.phase, "generation", s.generation)
	switch s.phase {
	case PhaseAwaitingConfirmation:
		c.resolve(DecisionExpired)
	case PhaseOffering, PhaseAwaitingAcknowledge:
		c.teardown(OutcomeTimeout, false)
	default:
		c.logger.Debug("timer fired without a waiting phase", "phase", s.phase)
	}
}

// --- transport callbacks ---

func (c *Coordinator) current(generation uint64) *session {
	if c.session == nil || c.session.generation != generation {
		return nil
	}
	return c.session
}

func (c *Coordinator) onLocalCandidate(ev localCandidateEvent) {
	if c.current(ev.generation) == nil {
		return
	}
	c.publish(signaling.NewCandidateMessage(ev.candidate))
}

func (c *Coordinator) onChannel(ev channelEvent) {
	s := c.current(ev.generation)
	if s == nil {
		ev.channel.Close()
		return
	}
	switch s.phase {
	case PhaseConnected:
		if s.channel == nil {
			s.channel = ev.channel
			c.listener.Ready(s.channel)
		}
	default:
		s.pendingChannel = ev.channel
	}
}

func (c *Coordinator) onPayload(ev payloadEvent) {
	s := c.current(ev.generation)
	if s == nil || s.phase != PhaseConnected {
		return
	}
	c.listener.Payload(ev.data)
}

func (c *Coordinator) onFailure(ev failureEvent) {
	if c.current(ev.generation) == nil {
		return
	}
	c.logger.Warn("transport failure", "error", ev.err, "phase", c.phase())
	c.teardown(OutcomeTransportFailure, false)
}

func (c *Coordinator) transportEvents(generation uint64) TransportEvents {
	return TransportEvents{
		OnCandidate: func(cand *signaling.Candidate) {
			c.post(localCandidateEvent{generation: generation, candidate: cand})
		},
		OnChannel: func(ch Channel) {
			c.post(channelEvent{generation: generation, channel: ch})
		},
		OnMessage: func(data []byte) {
			c.post(payloadEvent{generation: generation, data: data})
		},
		OnFailure: func(err error) {
			c.post(failureEvent{generation: generation, err: err})
		},
	}
}

// --- session lifecycle ---

func (c *Coordinator) begin(role Role) *session {
	c.generation++
	c.session = &session{
		generation: c.generation,
		role:       role,
		phase:      PhaseIdle,
		startedAt:  time.Now(),
	}
	return c.session
}

func (c *Coordinator) attachTransport(s *session) bool {
	tr, err := c.factory(c.transportEvents(s.generation))
	if err != nil {
		c.logger.Warn("create transport failed", "error", err)
		c.teardown(OutcomeTransportFailure, false)
		return false
	}
	s.transport = tr
	return true
}

// enter moves the session to phase. Any armed timer belongs to the phase being
// left and is cancelled first.
func (c *Coordinator) enter(phase Phase) {
	s := c.session
	c.disarm(s)
	prev := s.phase
	s.phase = phase
	c.logger.Info("phase changed", "from", prev, "to", phase, "role", s.role, "generation", s.generation)
	c.listener.PhaseChanged(phase)
}

func (c *Coordinator) connected() {
	c.enter(PhaseConnected)
	observability.RecordHandshakeConnected(c.session.role.String())

	s := c.session
	if s.pendingChannel != nil {
		s.channel = s.pendingChannel
		s.pendingChannel = nil
		c.listener.Ready(s.channel)
	}
}

// teardown is the single path back to idle.
func (c *Coordinator) teardown(outcome Outcome, sayBye bool) {
	s := c.session
	if s == nil {
		return
	}

	c.disarm(s)
	if sayBye {
		c.publish(&signaling.Message{Type: signaling.TypeBye})
	}

	if s.channel != nil {
		s.channel.Close()
	}
	if s.pendingChannel != nil {
		s.pendingChannel.Close()
	}
	if s.transport != nil {
		if err := s.transport.Close(); err != nil {
			c.logger.Debug("close transport", "error", err)
		}
	}

	c.session = nil
	c.logger.Info("session ended",
		"outcome", outcome,
		"phase", s.phase,
		"role", s.role,
		"generation", s.generation,
		"duration", time.Since(s.startedAt).Round(time.Millisecond),
	)
	observability.RecordHandshakeOutcome(outcome.String())

	c.listener.Closed(outcome)
	c.listener.PhaseChanged(PhaseIdle)
}

// publish stamps addressing fields and sends msg on the bus.
func (c *Coordinator) publish(msg *signaling.Message) error {
	msg.From = c.id
	if s := c.session; s != nil && msg.Type != signaling.TypeOffer {
		msg.To = s.peerID
	}

	if err := c.bus.Publish(msg); err != nil {
		c.logger.Warn("publish failed", "type", msg.Type, "error", err)
		return err
	}
	observability.RecordSignal("out", string(msg.Type))
	return nil
}
