package draw

import (
	"errors"
	"fmt"
	"math"
)

// Pen colours offered by the terminal UI. Eraser is what the eraser tool sends;
// surfaces treat it as removing ink.
const (
	ColorBlack  = "#000000"
	ColorRed    = "#e53935"
	ColorGreen  = "#43a047"
	ColorBlue   = "#1e88e5"
	ColorOrange = "#fb8c00"
	ColorPurple = "#8e24aa"
	Eraser      = "white"
)

// Palette is the pen colour cycle, starting with the default colour.
var Palette = []string{ColorBlack, ColorRed, ColorGreen, ColorBlue, ColorOrange, ColorPurple}

const (
	DefaultThickness = 5
	MinThickness     = 1
	MaxThickness     = 50

	// MaxCoordinate bounds positions accepted from a peer, in pixels.
	MaxCoordinate = 1 << 15
)

// ErrMalformed is wrapped by every decode failure.
var ErrMalformed = errors.New("malformed draw instruction")

// Point is a position on the shared surface in pixels.
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Instruction is one line segment exchanged between peers.
type Instruction struct {
	Start     Point   `json:"start" msgpack:"start"`
	End       Point   `json:"end" msgpack:"end"`
	Thickness float64 `json:"thickness" msgpack:"thickness"`
	Color     string  `json:"color" msgpack:"color"`
}

// Validate rejects instructions no surface can render.
func (in Instruction) Validate() error {
	for _, v := range []float64{in.Start.X, in.Start.Y, in.End.X, in.End.Y, in.Thickness} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite number", ErrMalformed)
		}
	}
	for _, v := range []float64{in.Start.X, in.Start.Y, in.End.X, in.End.Y} {
		if math.Abs(v) > MaxCoordinate {
			return fmt.Errorf("%w: coordinate %v out of range", ErrMalformed, v)
		}
	}
	if in.Thickness < 0 {
		return fmt.Errorf("%w: negative thickness %v", ErrMalformed, in.Thickness)
	}
	if in.Color == "" {
		return fmt.Errorf("%w: empty color", ErrMalformed)
	}
	return nil
}

// IsErase reports whether the segment removes ink.
func (in Instruction) IsErase() bool {
	return IsEraseColor(in.Color)
}

// IsEraseColor reports whether color is the surface background.
func IsEraseColor(color string) bool {
	switch color {
	case Eraser, "#ffffff", "#fff", "#FFFFFF", "#FFF":
		return true
	default:
		return false
	}
}

// ClampThickness keeps t inside the slider range.
func ClampThickness(t float64) float64 {
	return math.Max(MinThickness, math.Min(MaxThickness, t))
}
