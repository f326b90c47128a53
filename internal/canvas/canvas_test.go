package canvas

import (
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BioHazard786/Warpdraw/internal/draw"
)

func TestHorizontalThinLine(t *testing.T) {
	c := New(20, 5)
	c.RenderSegment(ToPixel(2, 2), ToPixel(10, 2), 1, "#e53935")

	for col := 2; col <= 10; col++ {
		if got := c.At(col, 2); got != "#e53935" {
			t.Fatalf("cell %d,2 = %q", col, got)
		}
	}
	if c.Inked() != 9 {
		t.Fatalf("inked=%d", c.Inked())
	}
	if c.At(1, 2) != "" || c.At(11, 2) != "" || c.At(5, 1) != "" {
		t.Fatalf("line bled outside its path")
	}
}

func TestDiagonalLineIsConnected(t *testing.T) {
	c := New(30, 30)
	c.RenderSegment(ToPixel(0, 0), ToPixel(20, 7), 1, "#000000")
	for _, cell := range [][2]int{{0, 0}, {20, 7}} {
		if c.At(cell[0], cell[1]) == "" {
			t.Fatalf("endpoint %v not drawn", cell)
		}
	}
	// every column between the endpoints holds ink
	for col := 0; col <= 20; col++ {
		found := false
		for row := 0; row <= 7; row++ {
			if c.At(col, row) != "" {
				found = true
			}
		}
		if !found {
			t.Fatalf("gap at column %d", col)
		}
	}
}

func TestThickBrushIsRound(t *testing.T) {
	c := New(40, 20)
	p := ToPixel(20, 10)
	c.RenderSegment(p, p, 48, "#000000")

	if c.At(20, 10) == "" || c.At(23, 10) == "" || c.At(20, 11) == "" {
		t.Fatalf("brush too small")
	}
	if c.At(23, 12) != "" {
		t.Fatalf("brush corner should stay empty")
	}
}

func TestWhiteErases(t *testing.T) {
	c := New(10, 3)
	c.RenderSegment(ToPixel(0, 1), ToPixel(9, 1), 1, "#000000")
	c.RenderSegment(ToPixel(3, 1), ToPixel(5, 1), 1, draw.Eraser)
	if c.At(4, 1) != "" || c.At(2, 1) == "" || c.At(6, 1) == "" {
		t.Fatalf("eraser misbehaved")
	}
	c.RenderSegment(ToPixel(6, 1), ToPixel(6, 1), 1, "#FFFFFF")
	if c.At(6, 1) != "" {
		t.Fatalf("#FFFFFF should erase")
	}
}

func TestClipsOutOfBounds(t *testing.T) {
	c := New(5, 5)
	c.RenderSegment(draw.Point{X: -100, Y: -100}, draw.Point{X: 1000, Y: 1000}, 3, "#000000")
	if c.Inked() == 0 {
		t.Fatalf("visible part not drawn")
	}
}

func TestHugeSegmentsFinishQuickly(t *testing.T) {
	cases := []struct {
		name       string
		start, end draw.Point
		thickness  float64
		wantInk    bool
	}{
		{"far end", ToPixel(2, 2), draw.Point{X: 1e10, Y: 20}, 1, true},
		{"huge brush", ToPixel(2, 2), ToPixel(3, 2), 1e7, true},
		{"far away", draw.Point{X: -1e12, Y: -1e12}, draw.Point{X: -1e12 + 5, Y: -1e12}, 1e9, false},
		{"nan", draw.Point{X: math.NaN(), Y: 0}, ToPixel(1, 1), 1, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := New(40, 10)
			done := make(chan struct{})
			go func() {
				c.RenderSegment(tc.start, tc.end, tc.thickness, "#000000")
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatalf("RenderSegment did not return")
			}
			if got := c.Inked() > 0; got != tc.wantInk {
				t.Fatalf("inked=%d", c.Inked())
			}
		})
	}
}

func TestClipKeepsInsideSegment(t *testing.T) {
	x0, y0, x1, y1, ok := clip(1, 1, 3, 2, 0, 0, 10, 10)
	if !ok || x0 != 1 || y0 != 1 || x1 != 3 || y1 != 2 {
		t.Fatalf("clip=%v %v %v %v %v", x0, y0, x1, y1, ok)
	}
	if _, _, x1, _, ok = clip(5, 5, 1e9, 5, 0, 0, 10, 10); !ok || math.Abs(x1-10) > 1e-6 {
		t.Fatalf("clipped end=%v ok=%v", x1, ok)
	}
	if _, _, _, _, ok = clip(-5, -5, -1, -1, 0, 0, 10, 10); ok {
		t.Fatalf("outside segment should be dropped")
	}
}

func TestClearAndResize(t *testing.T) {
	c := New(6, 4)
	c.RenderSegment(ToPixel(1, 1), ToPixel(4, 1), 1, "red")
	if c.At(1, 1) != "#ff0000" {
		t.Fatalf("named colour=%q", c.At(1, 1))
	}

	c.Resize(3, 2)
	if w, h := c.Size(); w != 3 || h != 2 {
		t.Fatalf("size=%dx%d", w, h)
	}
	if c.At(2, 1) == "" || c.Inked() != 2 {
		t.Fatalf("resize lost overlapping content, inked=%d", c.Inked())
	}

	c.Clear()
	if c.Inked() != 0 {
		t.Fatalf("clear left %d cells", c.Inked())
	}
}

func TestViewShape(t *testing.T) {
	c := New(4, 3)
	c.RenderSegment(ToPixel(0, 0), ToPixel(3, 0), 1, "#000000")
	lines := strings.Split(c.View(), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines=%d", len(lines))
	}
	if !strings.Contains(lines[0], strings.Repeat(inkRune, 4)) {
		t.Fatalf("first row=%q", lines[0])
	}
	if strings.Contains(lines[1], inkRune) {
		t.Fatalf("second row should be blank: %q", lines[1])
	}
}

func TestPixelCellMapping(t *testing.T) {
	col, row := ToCell(ToPixel(7, 3))
	if col != 7 || row != 3 {
		t.Fatalf("round trip gave %d,%d", col, row)
	}
	if col, row := ToCell(draw.Point{X: -1, Y: -1}); col != -1 || row != -1 {
		t.Fatalf("negative pixels map to %d,%d", col, row)
	}
}

func TestConcurrentUse(t *testing.T) {
	c := New(50, 20)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.RenderSegment(ToPixel(j%50, i), ToPixel((j+5)%50, i+5), 8, "#1e88e5")
				_ = c.View()
			}
		}(i)
	}
	wg.Wait()
}
