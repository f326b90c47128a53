package draw

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec converts instructions to and from channel payloads.
type Codec interface {
	Name() string
	Encode(Instruction) ([]byte, error)
	Decode([]byte) (Instruction, error)
	// Binary reports whether payloads go out as binary frames.
	Binary() bool
}

// NewCodec returns the codec registered under name.
func NewCodec(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// JSONCodec is the browser compatible text format.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }
func (JSONCodec) Binary() bool { return false }

func (JSONCodec) Encode(in Instruction) ([]byte, error) {
	return json.Marshal(in)
}

// number accepts a JSON number or a numeric string, since browser range
// inputs report their value as a string.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", s)
		}
		*n = number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = number(v)
	return nil
}

type jsonPoint struct {
	X *number `json:"x"`
	Y *number `json:"y"`
}

func (p *jsonPoint) point(field string) (Point, error) {
	if p == nil || p.X == nil || p.Y == nil {
		return Point{}, fmt.Errorf("%w: missing %s", ErrMalformed, field)
	}
	return Point{X: float64(*p.X), Y: float64(*p.Y)}, nil
}

type jsonInstruction struct {
	Start     *jsonPoint `json:"start"`
	End       *jsonPoint `json:"end"`
	Thickness *number    `json:"thickness"`
	Color     *string    `json:"color"`
}

func (JSONCodec) Decode(data []byte) (Instruction, error) {
	var raw jsonInstruction
	if err := json.Unmarshal(data, &raw); err != nil {
		return Instruction{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return raw.instruction()
}

func (raw jsonInstruction) instruction() (Instruction, error) {
	start, err := raw.Start.point("start")
	if err != nil {
		return Instruction{}, err
	}
	end, err := raw.End.point("end")
	if err != nil {
		return Instruction{}, err
	}
	if raw.Thickness == nil {
		return Instruction{}, fmt.Errorf("%w: missing thickness", ErrMalformed)
	}
	if raw.Color == nil {
		return Instruction{}, fmt.Errorf("%w: missing color", ErrMalformed)
	}

	return accept(Instruction{Start: start, End: end, Thickness: float64(*raw.Thickness), Color: *raw.Color})
}

// accept validates a decoded instruction and caps its thickness at the
// slider maximum.
func accept(in Instruction) (Instruction, error) {
	if err := in.Validate(); err != nil {
		return Instruction{}, err
	}
	in.Thickness = min(in.Thickness, MaxThickness)
	return in, nil
}

// MsgpackCodec is a compact binary format. Both peers must use it.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }
func (MsgpackCodec) Binary() bool { return true }

func (MsgpackCodec) Encode(in Instruction) ([]byte, error) {
	return msgpack.Marshal(in)
}

type msgpackPoint struct {
	X *float64 `msgpack:"x"`
	Y *float64 `msgpack:"y"`
}

type msgpackInstruction struct {
	Start     *msgpackPoint `msgpack:"start"`
	End       *msgpackPoint `msgpack:"end"`
	Thickness *float64      `msgpack:"thickness"`
	Color     *string       `msgpack:"color"`
}

func (MsgpackCodec) Decode(data []byte) (Instruction, error) {
	var raw msgpackInstruction
	if err := msgpack.Unmarshal(data, &raw); err != nil {
		return Instruction{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var in Instruction
	for _, p := range []struct {
		name string
		src  *msgpackPoint
		dst  *Point
	}{{"start", raw.Start, &in.Start}, {"end", raw.End, &in.End}} {
		if p.src == nil || p.src.X == nil || p.src.Y == nil {
			return Instruction{}, fmt.Errorf("%w: missing %s", ErrMalformed, p.name)
		}
		*p.dst = Point{X: *p.src.X, Y: *p.src.Y}
	}
	if raw.Thickness == nil || raw.Color == nil {
		return Instruction{}, fmt.Errorf("%w: missing thickness or color", ErrMalformed)
	}
	in.Thickness = *raw.Thickness
	in.Color = *raw.Color

	return accept(in)
}
