package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/BioHazard786/Warpdraw/internal/canvas"
	"github.com/BioHazard786/Warpdraw/internal/draw"
	"github.com/BioHazard786/Warpdraw/internal/handshake"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	frameInterval     = 50 * time.Millisecond
	peerHintDuration  = 3 * time.Second
	thicknessStep     = 2
	statusBarHeight   = 1
	helpBarHeight     = 1
	defaultTermWidth  = 80
	defaultTermHeight = 24
)

// Controls are the session actions bound to keys.
type Controls interface {
	Connect()
	Disconnect()
	Accept()
	Decline()
}

// Pen is the drawing side of the UI.
type Pen interface {
	HandleDrag(draw.DragEvent)
	ClearLocal()
	Brush() draw.Brush
	SetThickness(float64)
	SetTool(draw.Tool)
	NextColor() string
	Stats() draw.Stats
}

// Options wires a DrawModel to the rest of the program.
type Options struct {
	Controls      Controls
	Pen           Pen
	Canvas        *canvas.Canvas
	Notifications <-chan Notification
	Done          <-chan struct{}

	// ConfirmTimeout is shown as a countdown in the confirmation dialog.
	ConfirmTimeout time.Duration
	Channel        string
}

type frameMsg time.Time

func frameCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// DrawModel is the bubbletea model of the shared drawing surface.
type DrawModel struct {
	controls Controls
	pen      Pen
	canvas   *canvas.Canvas
	updates  <-chan Notification
	done     <-chan struct{}

	confirmTimeout time.Duration
	channel        string

	phase          handshake.Phase
	lastOutcome    *handshake.Outcome
	peerSeen       time.Time
	confirmBy      time.Time
	connectedSince time.Time
	sessions       int

	spinner spinner.Model

	dragging bool
	lastCol  int
	lastRow  int

	width    int
	height   int
	quitting bool
}

// NewDrawModel creates the model. Call Run or embed it in a tea.Program.
func NewDrawModel(opts Options) *DrawModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	m := &DrawModel{
		controls:       opts.Controls,
		pen:            opts.Pen,
		canvas:         opts.Canvas,
		updates:        opts.Notifications,
		done:           opts.Done,
		confirmTimeout: opts.ConfirmTimeout,
		channel:        opts.Channel,
		phase:          handshake.PhaseIdle,
		spinner:        s,
	}
	m.resize(defaultTermWidth, defaultTermHeight)
	return m
}

func (m *DrawModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForUpdates(), frameCmd())
}

// listenForUpdates pulls the next coordinator notification.
func (m *DrawModel) listenForUpdates() tea.Cmd {
	return func() tea.Msg {
		select {
		case note := <-m.updates:
			return note
		case <-m.done:
			return nil
		}
	}
}

func (m *DrawModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd := m.handleKey(msg); cmd != nil {
			return m, cmd
		}

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case frameMsg:
		if !m.quitting {
			cmds = append(cmds, frameCmd())
		}

	case Notification:
		m.handleNotification(msg)
		cmds = append(cmds, m.listenForUpdates())
	}

	return m, tea.Batch(cmds...)
}

func (m *DrawModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return tea.Quit

	case "c":
		m.controls.Connect()
	case "d":
		m.controls.Disconnect()
	case "y", "enter":
		if m.phase == handshake.PhaseAwaitingConfirmation {
			m.controls.Accept()
		}
	case "n", "esc":
		if m.phase == handshake.PhaseAwaitingConfirmation {
			m.controls.Decline()
		}

	case "backspace":
		m.pen.ClearLocal()
	case "[":
		m.pen.SetThickness(m.pen.Brush().Thickness - thicknessStep)
	case "]":
		m.pen.SetThickness(m.pen.Brush().Thickness + thicknessStep)
	case "tab":
		m.pen.NextColor()
	case "e":
		if m.pen.Brush().Tool == draw.ToolEraser {
			m.pen.SetTool(draw.ToolPen)
		} else {
			m.pen.SetTool(draw.ToolEraser)
		}
	}
	return nil
}

// handleMouse turns terminal mouse events into pointer drags in pixels.
func (m *DrawModel) handleMouse(msg tea.MouseMsg) {
	col, row := msg.X, msg.Y-statusBarHeight

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		m.dragging = true
		m.lastCol, m.lastRow = col, row
		m.drag(col, row, true)

	case tea.MouseActionMotion:
		if !m.dragging {
			return
		}
		m.drag(col, row, msg.Button == tea.MouseButtonLeft)
		m.lastCol, m.lastRow = col, row

	case tea.MouseActionRelease:
		m.dragging = false
	}
}

func (m *DrawModel) drag(col, row int, primary bool) {
	w, h := m.canvas.Size()
	pos := canvas.ToPixel(col, row)
	prev := canvas.ToPixel(m.lastCol, m.lastRow)
	m.pen.HandleDrag(draw.DragEvent{
		X:       pos.X,
		Y:       pos.Y,
		DX:      pos.X - prev.X,
		DY:      pos.Y - prev.Y,
		Primary: primary,
		Inside:  col >= 0 && row >= 0 && col < w && row < h,
	})
}

func (m *DrawModel) handleNotification(note Notification) {
	switch note.Kind {
	case NotifyPhase:
		m.phase = note.Phase
		switch note.Phase {
		case handshake.PhaseAwaitingConfirmation:
			m.confirmBy = time.Now().Add(m.confirmTimeout)
		case handshake.PhaseConnected:
			m.connectedSince = time.Now()
			m.sessions++
		}
	case NotifyPeerAvailable:
		m.peerSeen = time.Now()
	case NotifyClosed:
		outcome := note.Outcome
		m.lastOutcome = &outcome
		m.dragging = false
	}
}

func (m *DrawModel) resize(width, height int) {
	m.width, m.height = width, height
	m.canvas.Resize(width, max(height-statusBarHeight-helpBarHeight, 0))
}

// Phase is the last phase reported by the coordinator.
func (m *DrawModel) Phase() handshake.Phase {
	return m.phase
}

// Sessions counts sessions that reached the connected phase.
func (m *DrawModel) Sessions() int {
	return m.sessions
}

// LastOutcome describes how the most recent session ended, or "" if none did.
func (m *DrawModel) LastOutcome() string {
	if m.lastOutcome == nil {
		return ""
	}
	return m.lastOutcome.String()
}

func (m *DrawModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.viewStatus())
	b.WriteByte('\n')
	if m.phase == handshake.PhaseAwaitingConfirmation {
		w, h := m.canvas.Size()
		b.WriteString(lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, m.viewConfirm(),
			lipgloss.WithWhitespaceBackground(lipgloss.Color("#FFFFFF"))))
	} else {
		b.WriteString(m.canvas.View())
	}
	b.WriteByte('\n')
	b.WriteString(m.viewHelp())
	return b.String()
}

func (m *DrawModel) viewStatus() string {
	var state string
	switch m.phase {
	case handshake.PhaseIdle:
		state = "idle"
		if !m.peerSeen.IsZero() && time.Since(m.peerSeen) < peerHintDuration {
			state = SuccessStyle.Render(IconPeer + " peer available, press c to connect")
		} else if m.lastOutcome != nil {
			state = fmt.Sprintf("idle (last session: %s)", *m.lastOutcome)
		}
	case handshake.PhaseOffering:
		state = m.spinner.View() + " offer sent, waiting for answer"
	case handshake.PhaseAwaitingConfirmation:
		state = WarningStyle.Render(IconWaiting + " incoming connection request")
	case handshake.PhaseAwaitingAcknowledge:
		state = m.spinner.View() + " answer sent, waiting for acknowledge"
	case handshake.PhaseConnected:
		state = SuccessStyle.Render(fmt.Sprintf("%s connected %s", IconConnect, time.Since(m.connectedSince).Round(time.Second)))
	}

	brush := m.pen.Brush()
	tool := lipgloss.NewStyle().Foreground(lipgloss.Color(brush.Color)).Render("●") + " pen"
	if brush.Tool == draw.ToolEraser {
		tool = "○ eraser"
	}
	stats := m.pen.Stats()

	left := StatusStyle.Render("warpdraw") + " " + MutedStyle.Render("#"+m.channel) + "  " + state
	right := fmt.Sprintf("%s  size %.0f  ↑%d ↓%d", tool, brush.Thickness, stats.Sent, stats.Received)

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m *DrawModel) viewConfirm() string {
	remaining := time.Until(m.confirmBy).Round(time.Second)
	if remaining < 0 {
		remaining = 0
	}
	content := fmt.Sprintf("%s A peer wants to draw with you\n\n%s accept    %s decline\n\n%s",
		IconPeer,
		BoldStyle.Render("[y]"),
		BoldStyle.Render("[n]"),
		MutedStyle.Render(fmt.Sprintf("expires in %s", remaining)),
	)
	return BoxStyle.Render(content)
}

func (m *DrawModel) viewHelp() string {
	return MutedStyle.Render("c connect · d disconnect · drag to draw · tab colour · [ ] size · e eraser · ⌫ clear · q quit")
}
