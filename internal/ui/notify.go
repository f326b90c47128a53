package ui

import (
	"log/slog"

	"github.com/BioHazard786/Warpdraw/internal/handshake"
)

// NotificationKind says which coordinator event a Notification carries.
type NotificationKind int

const (
	NotifyPhase NotificationKind = iota
	NotifyPeerAvailable
	NotifyReady
	NotifyClosed
)

// Notification is a coordinator event on its way to the UI goroutine.
type Notification struct {
	Kind    NotificationKind
	Phase   handshake.Phase
	Outcome handshake.Outcome
}

const notificationBuffer = 128

// Notifier queues coordinator notifications for the UI. It never blocks the
// coordinator loop; when the UI falls behind, notifications are dropped.
type Notifier struct {
	handshake.NopListener

	updates chan Notification
	logger  *slog.Logger
}

func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		updates: make(chan Notification, notificationBuffer),
		logger:  logger,
	}
}

// Updates is read by the UI model.
func (n *Notifier) Updates() <-chan Notification {
	return n.updates
}

func (n *Notifier) push(note Notification) {
	select {
	case n.updates <- note:
	default:
		n.logger.Debug("ui notification dropped", "kind", note.Kind)
	}
}

func (n *Notifier) PhaseChanged(phase handshake.Phase) {
	n.push(Notification{Kind: NotifyPhase, Phase: phase})
}

func (n *Notifier) PeerAvailable() {
	n.push(Notification{Kind: NotifyPeerAvailable})
}

func (n *Notifier) Ready(handshake.Channel) {
	n.push(Notification{Kind: NotifyReady})
}

func (n *Notifier) Closed(outcome handshake.Outcome) {
	n.push(Notification{Kind: NotifyClosed, Outcome: outcome})
}
