package handshake

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/BioHazard786/Warpdraw/internal/signaling"
)

type fakeBus struct {
	mu   sync.Mutex
	msgs []signaling.Message
	err  error
}

func (b *fakeBus) Publish(msg *signaling.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.msgs = append(b.msgs, *msg)
	return nil
}

func (b *fakeBus) count(t signaling.Type) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, m := range b.msgs {
		if m.Type == t {
			n++
		}
	}
	return n
}

func (b *fakeBus) last(t signaling.Type) (signaling.Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.msgs) - 1; i >= 0; i-- {
		if b.msgs[i].Type == t {
			return b.msgs[i], true
		}
	}
	return signaling.Message{}, false
}

// handshakeTraffic returns every published message except ready announcements.
func (b *fakeBus) handshakeTraffic() []signaling.Type {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []signaling.Type
	for _, m := range b.msgs {
		if m.Type != signaling.TypeReady {
			out = append(out, m.Type)
		}
	}
	return out
}

type fakeTransport struct {
	mu         sync.Mutex
	events     TransportEvents
	offers     int
	answers    []string
	remote     []string
	candidates []*signaling.Candidate
	closed     bool

	offerErr  error
	answerErr error
	remoteErr error
}

func (f *fakeTransport) CreateOffer() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offerErr != nil {
		return "", f.offerErr
	}
	f.offers++
	return "v=0 offer", nil
}

func (f *fakeTransport) CreateAnswer(offerSDP string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.answerErr != nil {
		return "", f.answerErr
	}
	f.answers = append(f.answers, offerSDP)
	return "v=0 answer", nil
}

func (f *fakeTransport) SetRemoteDescription(answerSDP string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remoteErr != nil {
		return f.remoteErr
	}
	f.remote = append(f.remote, answerSDP)
	return nil
}

func (f *fakeTransport) AddCandidate(c *signaling.Candidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candidates = append(f.candidates, c)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeFactory struct {
	mu        sync.Mutex
	created   []*fakeTransport
	err       error
	configure func(*fakeTransport)
}

func (f *fakeFactory) New(events TransportEvents) (Transport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	tr := &fakeTransport{events: events}
	if f.configure != nil {
		f.configure(tr)
	}
	f.created = append(f.created, tr)
	return tr, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (f *fakeFactory) latest(t *testing.T) *fakeTransport {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.created) == 0 {
		t.Fatalf("no transport created")
	}
	return f.created[len(f.created)-1]
}

type fakeChannel struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func (c *fakeChannel) Label() string { return "sendDataChannel" }

func (c *fakeChannel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeChannel) SendText(text string) error { return c.Send([]byte(text)) }

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ft := &fakeTimer{d: d, f: f}
	c.timers = append(c.timers, ft)
	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		wasActive := !ft.stopped && !ft.fired
		ft.stopped = true
		return wasActive
	}
}

// fire runs every pending alarm. With includeStopped it also runs cancelled
// ones, as a timer that fired just before being stopped would.
func (c *fakeClock) fire(includeStopped bool) int {
	c.mu.Lock()
	var due []*fakeTimer
	for _, ft := range c.timers {
		if ft.fired || (ft.stopped && !includeStopped) {
			continue
		}
		ft.fired = true
		due = append(due, ft)
	}
	c.mu.Unlock()

	for _, ft := range due {
		ft.f()
	}
	return len(due)
}

func (c *fakeClock) armed() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []time.Duration
	for _, ft := range c.timers {
		if !ft.stopped && !ft.fired {
			out = append(out, ft.d)
		}
	}
	return out
}

type recordingListener struct {
	mu        sync.Mutex
	phases    []Phase
	available int
	ready     []Channel
	payloads  [][]byte
	outcomes  []Outcome
}

func (l *recordingListener) PhaseChanged(p Phase) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.phases = append(l.phases, p)
}

func (l *recordingListener) PeerAvailable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.available++
}

func (l *recordingListener) Ready(ch Channel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ready = append(l.ready, ch)
}

func (l *recordingListener) Payload(data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.payloads = append(l.payloads, data)
}

func (l *recordingListener) Closed(o Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outcomes = append(l.outcomes, o)
}

func (l *recordingListener) outcomeList() []Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Outcome(nil), l.outcomes...)
}

func (l *recordingListener) readyCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ready)
}

type harness struct {
	t        *testing.T
	coord    *Coordinator
	bus      *fakeBus
	factory  *fakeFactory
	clock    *fakeClock
	listener *recordingListener

	// stop cancels Run and waits for it to return.
	stop func()
}

const (
	localID = "local"
	peerID  = "peer-a"
)

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		bus:      &fakeBus{},
		factory:  &fakeFactory{},
		clock:    &fakeClock{},
		listener: &recordingListener{},
	}
	h.coord = New(h.bus, h.factory.New, Options{
		ID:            localID,
		ReadyInterval: -1,
		Listener:      h.listener,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		AfterFunc:     h.clock.AfterFunc,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go h.coord.Run(ctx)
	h.stop = func() {
		cancel()
		select {
		case <-h.coord.Done():
		case <-time.After(2 * time.Second):
			t.Errorf("coordinator did not stop")
		}
	}
	t.Cleanup(h.stop)
	return h
}

func (h *harness) snap() Snapshot {
	return h.coord.Snapshot()
}

func (h *harness) expectPhase(want Phase) Snapshot {
	h.t.Helper()
	s := h.snap()
	if s.Phase != want {
		h.t.Fatalf("phase=%s want %s", s.Phase, want)
	}
	return s
}

func (h *harness) deliver(msg signaling.Message) {
	m := msg
	h.coord.Deliver(&m)
}

// toOffering drives the local side into Offering.
func (h *harness) toOffering() *fakeTransport {
	h.t.Helper()
	h.coord.Connect()
	h.expectPhase(PhaseOffering)
	return h.factory.latest(h.t)
}

// toInitiatorConnected completes the initiator side of the handshake.
func (h *harness) toInitiatorConnected() *fakeTransport {
	h.t.Helper()
	tr := h.toOffering()
	h.deliver(signaling.Message{Type: signaling.TypeAnswer, SDP: "v=0 remote answer", From: peerID})
	h.expectPhase(PhaseConnected)
	return tr
}

// toAwaitingConfirmation delivers an inbound offer.
func (h *harness) toAwaitingConfirmation() {
	h.t.Helper()
	h.deliver(signaling.Message{Type: signaling.TypeOffer, SDP: "v=0 remote offer", From: peerID})
	h.expectPhase(PhaseAwaitingConfirmation)
}

// toAwaitingAcknowledge accepts an inbound offer.
func (h *harness) toAwaitingAcknowledge() *fakeTransport {
	h.t.Helper()
	h.toAwaitingConfirmation()
	h.coord.Accept()
	h.expectPhase(PhaseAwaitingAcknowledge)
	return h.factory.latest(h.t)
}

// toResponderConnected completes the responder side of the handshake.
func (h *harness) toResponderConnected() *fakeTransport {
	h.t.Helper()
	tr := h.toAwaitingAcknowledge()
	h.deliver(signaling.Message{Type: signaling.TypeAcknowledge, From: peerID})
	h.expectPhase(PhaseConnected)
	return tr
}

var errBoom = errors.New("boom")

func newTestContext(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx, cancel
}
