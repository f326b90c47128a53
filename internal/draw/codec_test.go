package draw

import (
	"errors"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestJSONEncodeMatchesBrowserShape(t *testing.T) {
	data, err := JSONCodec{}.Encode(Instruction{
		Start:     Point{X: 10, Y: 20},
		End:       Point{X: 12, Y: 21},
		Thickness: 5,
		Color:     "#000000",
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"start":{"x":10,"y":20},"end":{"x":12,"y":21},"thickness":5,"color":"#000000"}`
	if string(data) != want {
		t.Fatalf("got %s\nwant %s", data, want)
	}
}

func TestJSONDecodeAcceptsBrowserPayload(t *testing.T) {
	// range inputs report thickness as a string
	in, err := JSONCodec{}.Decode([]byte(`{"start":{"x":99,"y":40},"end":{"x":101.5,"y":"42"},"thickness":"12","color":"white"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.Start != (Point{X: 99, Y: 40}) || in.End != (Point{X: 101.5, Y: 42}) {
		t.Fatalf("points=%+v %+v", in.Start, in.End)
	}
	if in.Thickness != 12 || !in.IsErase() {
		t.Fatalf("instruction=%+v", in)
	}
}

func TestJSONDecodeRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":          `{"start":`,
		"missing start":     `{"end":{"x":1,"y":1},"thickness":1,"color":"#000"}`,
		"missing end y":     `{"start":{"x":1,"y":1},"end":{"x":1},"thickness":1,"color":"#000"}`,
		"missing thickness": `{"start":{"x":1,"y":1},"end":{"x":1,"y":2},"color":"#000"}`,
		"missing color":     `{"start":{"x":1,"y":1},"end":{"x":1,"y":2},"thickness":1}`,
		"non numeric":       `{"start":{"x":"left","y":1},"end":{"x":1,"y":2},"thickness":1,"color":"#000"}`,
		"bool coordinate":   `{"start":{"x":true,"y":1},"end":{"x":1,"y":2},"thickness":1,"color":"#000"}`,
		"negative size":     `{"start":{"x":1,"y":1},"end":{"x":1,"y":2},"thickness":-3,"color":"#000"}`,
		"empty color":       `{"start":{"x":1,"y":1},"end":{"x":1,"y":2},"thickness":1,"color":""}`,
		"far end":           `{"start":{"x":1,"y":1},"end":{"x":1e10,"y":2},"thickness":1,"color":"#000"}`,
		"far start":         `{"start":{"x":1,"y":-40000},"end":{"x":1,"y":2},"thickness":1,"color":"#000"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := JSONCodec{}.Decode([]byte(raw))
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("err=%v", err)
			}
		})
	}
}

func TestDecodeCapsThickness(t *testing.T) {
	in, err := JSONCodec{}.Decode([]byte(`{"start":{"x":1,"y":1},"end":{"x":2,"y":2},"thickness":1e7,"color":"#000"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.Thickness != MaxThickness {
		t.Fatalf("thickness=%v", in.Thickness)
	}

	data, err := MsgpackCodec{}.Encode(Instruction{Start: Point{X: 1, Y: 1}, End: Point{X: 2, Y: 2}, Thickness: 1e7, Color: "#000"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	in, err = MsgpackCodec{}.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.Thickness != MaxThickness {
		t.Fatalf("msgpack thickness=%v", in.Thickness)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	for _, want := range []Instruction{
		{Start: Point{X: 1, Y: 2}, End: Point{X: 3.5, Y: 4}, Thickness: 8, Color: "#1e88e5"},
		{Start: Point{X: 0, Y: 0}, End: Point{X: 0, Y: 0}, Thickness: 0, Color: Eraser},
		{Start: Point{X: -12.25, Y: 640}, End: Point{X: 1920, Y: 1080.5}, Thickness: MaxThickness, Color: "#000000"},
	} {
		data, err := JSONCodec{}.Encode(want)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := JSONCodec{}.Decode(data)
		if err != nil {
			t.Fatalf("decode %s: %v", data, err)
		}
		if got != want {
			t.Fatalf("got %+v want %+v", got, want)
		}
	}
}

func TestMsgpackRoundTrip(t *testing.T) {
	want := Instruction{Start: Point{X: 1, Y: 2}, End: Point{X: 3.5, Y: 4}, Thickness: 8, Color: "#1e88e5"}
	c := MsgpackCodec{}
	data, err := c.Encode(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := c.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
	if !c.Binary() || (JSONCodec{}).Binary() {
		t.Fatalf("unexpected frame kinds")
	}
}

func TestMsgpackDecodeRejectsMissingFields(t *testing.T) {
	data, err := msgpack.Marshal(map[string]any{
		"start":     map[string]any{"x": 1, "y": 2},
		"thickness": 3,
		"color":     "#000000",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := (MsgpackCodec{}).Decode(data); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err=%v", err)
	}
	if _, err := (MsgpackCodec{}).Decode([]byte{0xc1}); !errors.Is(err, ErrMalformed) {
		t.Fatalf("garbage err=%v", err)
	}
}

func TestNewCodec(t *testing.T) {
	for name, want := range map[string]string{"": "json", "json": "json", "msgpack": "msgpack"} {
		c, err := NewCodec(name)
		if err != nil || c.Name() != want {
			t.Fatalf("NewCodec(%q) = %v, %v", name, c, err)
		}
	}
	if _, err := NewCodec("xml"); err == nil {
		t.Fatalf("expected error for unknown codec")
	}
}
