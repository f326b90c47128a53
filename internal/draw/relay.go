package draw

import (
	"log/slog"
	"sync"

	"github.com/BioHazard786/Warpdraw/internal/handshake"
)

// Surface is where segments end up.
type Surface interface {
	RenderSegment(start, end Point, thickness float64, color string)
	Clear()
}

// DragEvent is one pointer movement. X and Y are the absolute position on the
// surface, DX and DY the movement since the previous event.
type DragEvent struct {
	X, Y    float64
	DX, DY  float64
	Primary bool
	Inside  bool
}

// Tool selects what a drag paints.
type Tool int

const (
	ToolPen Tool = iota
	ToolEraser
)

func (t Tool) String() string {
	if t == ToolEraser {
		return "eraser"
	}
	return "pen"
}

// Brush is the local tool state applied to outgoing segments.
type Brush struct {
	Tool      Tool
	Color     string
	Thickness float64
}

// color is what goes on the wire for the current tool.
func (b Brush) color() string {
	if b.Tool == ToolEraser {
		return Eraser
	}
	return b.Color
}

// Stats counts segments for the current and all sessions.
type Stats struct {
	Sessions int
	Sent     int
	Received int
	Dropped  int
	Failed   int
}

// Relay moves draw instructions between the local surface and the channel the
// coordinator exposes. It implements handshake.Listener.
type Relay struct {
	handshake.NopListener

	surface Surface
	codec   Codec
	logger  *slog.Logger

	mu      sync.Mutex
	channel handshake.Channel
	brush   Brush
	stats   Stats
}

// NewRelay creates a relay rendering onto surface.
func NewRelay(surface Surface, codec Codec, logger *slog.Logger) *Relay {
	if codec == nil {
		codec = JSONCodec{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		surface: surface,
		codec:   codec,
		logger:  logger.With("component", "draw"),
		brush:   Brush{Tool: ToolPen, Color: Palette[0], Thickness: DefaultThickness},
	}
}

// Ready adopts the channel of a newly connected session and clears the surface.
func (r *Relay) Ready(ch handshake.Channel) {
	r.mu.Lock()
	r.channel = ch
	r.stats.Sessions++
	r.mu.Unlock()

	r.surface.Clear()
	r.logger.Info("draw channel ready", "label", ch.Label(), "codec", r.codec.Name())
}

// Closed forgets the channel of the ended session.
func (r *Relay) Closed(outcome handshake.Outcome) {
	r.mu.Lock()
	r.channel = nil
	r.mu.Unlock()
}

// Payload renders an instruction received from the peer.
func (r *Relay) Payload(data []byte) {
	r.Receive(data)
}

// Receive decodes and renders one payload. Malformed payloads are dropped.
func (r *Relay) Receive(data []byte) {
	in, err := r.codec.Decode(data)
	if err != nil {
		r.logger.Warn("dropping draw instruction", "error", err, "size", len(data))
		r.mu.Lock()
		r.stats.Dropped++
		r.mu.Unlock()
		return
	}

	r.surface.RenderSegment(in.Start, in.End, in.Thickness, in.Color)
	r.mu.Lock()
	r.stats.Received++
	r.mu.Unlock()
}

// HandleDrag draws the segment ending at the event position and sends it to
// the peer when a channel is open.
func (r *Relay) HandleDrag(ev DragEvent) {
	if !ev.Primary || !ev.Inside {
		return
	}

	r.mu.Lock()
	brush := r.brush
	ch := r.channel
	r.mu.Unlock()

	in := Instruction{
		Start:     Point{X: ev.X - ev.DX, Y: ev.Y - ev.DY},
		End:       Point{X: ev.X, Y: ev.Y},
		Thickness: brush.Thickness,
		Color:     brush.color(),
	}
	r.surface.RenderSegment(in.Start, in.End, in.Thickness, in.Color)

	if ch == nil {
		return
	}
	if err := r.send(ch, in); err != nil {
		r.logger.Warn("send draw instruction failed", "error", err)
		r.mu.Lock()
		r.stats.Failed++
		r.mu.Unlock()
		return
	}
	r.mu.Lock()
	r.stats.Sent++
	r.mu.Unlock()
}

func (r *Relay) send(ch handshake.Channel, in Instruction) error {
	data, err := r.codec.Encode(in)
	if err != nil {
		return err
	}
	if r.codec.Binary() {
		return ch.Send(data)
	}
	return ch.SendText(string(data))
}

// ClearLocal wipes the local surface only. The peer keeps its drawing.
func (r *Relay) ClearLocal() {
	r.surface.Clear()
}

// Connected reports whether a channel is available.
func (r *Relay) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channel != nil
}

func (r *Relay) Brush() Brush {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.brush
}

// SetThickness sets the brush size, clamped to the slider range.
func (r *Relay) SetThickness(t float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.brush.Thickness = ClampThickness(t)
}

func (r *Relay) SetColor(color string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.brush.Color = color
}

func (r *Relay) SetTool(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.brush.Tool = t
}

// NextColor advances the pen through Palette and selects the pen tool.
func (r *Relay) NextColor() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := 0
	for i, c := range Palette {
		if c == r.brush.Color {
			next = (i + 1) % len(Palette)
			break
		}
	}
	r.brush.Color = Palette[next]
	r.brush.Tool = ToolPen
	return r.brush.Color
}

func (r *Relay) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
