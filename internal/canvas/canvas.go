// Package canvas is a terminal drawing surface. Positions arrive in pixels so
// that segments line up with browser peers; each terminal cell covers
// CellWidth x CellHeight pixels.
package canvas

import (
	"math"
	"strings"
	"sync"

	"github.com/BioHazard786/Warpdraw/internal/draw"
	"github.com/charmbracelet/lipgloss"
)

const (
	CellWidth  = 8
	CellHeight = 16

	inkRune = "█"
)

var (
	paper = lipgloss.Color("#FFFFFF")

	// cssColors covers the named colours a browser colour picker or peer
	// might send. Anything else that is not hex is drawn black.
	cssColors = map[string]string{
		"black":  "#000000",
		"red":    "#FF0000",
		"green":  "#008000",
		"blue":   "#0000FF",
		"yellow": "#FFFF00",
		"orange": "#FFA500",
		"purple": "#800080",
		"gray":   "#808080",
		"grey":   "#808080",
	}
)

// Canvas is a grid of terminal cells. The zero colour means an empty cell.
type Canvas struct {
	mu     sync.RWMutex
	width  int
	height int
	cells  []string
	styles map[string]lipgloss.Style
}

// New returns an empty canvas of width x height cells.
func New(width, height int) *Canvas {
	c := &Canvas{styles: make(map[string]lipgloss.Style)}
	c.Resize(width, height)
	return c
}

// Resize changes the cell grid, keeping the overlapping drawing.
func (c *Canvas) Resize(width, height int) {
	width, height = max(width, 0), max(height, 0)

	c.mu.Lock()
	defer c.mu.Unlock()
	if width == c.width && height == c.height {
		return
	}
	cells := make([]string, width*height)
	for row := 0; row < min(height, c.height); row++ {
		copy(cells[row*width:row*width+min(width, c.width)], c.cells[row*c.width:])
	}
	c.width, c.height, c.cells = width, height, cells
}

// Size returns the grid in cells.
func (c *Canvas) Size() (int, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.width, c.height
}

// Bounds returns the surface size in pixels.
func (c *Canvas) Bounds() (float64, float64) {
	w, h := c.Size()
	return float64(w * CellWidth), float64(h * CellHeight)
}

// ToPixel returns the pixel position of the centre of a cell.
func ToPixel(col, row int) draw.Point {
	return draw.Point{
		X: float64(col*CellWidth + CellWidth/2),
		Y: float64(row*CellHeight + CellHeight/2),
	}
}

// ToCell returns the cell containing a pixel position.
func ToCell(p draw.Point) (int, int) {
	return int(math.Floor(p.X / CellWidth)), int(math.Floor(p.Y / CellHeight))
}

// RenderSegment draws a line with a round brush. White erases. The segment is
// clipped to the grid first, so the work is bounded by the canvas size
// whatever the coordinates.
func (c *Canvas) RenderSegment(start, end draw.Point, thickness float64, color string) {
	for _, v := range []float64{start.X, start.Y, end.X, end.Y, thickness} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return
		}
	}
	ink := normalizeColor(color)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.width == 0 || c.height == 0 {
		return
	}

	// radii in cells, with half a cell of slack so thin lines stay one cell wide;
	// a brush wider than the grid paints nothing more
	thickness = max(thickness, 0)
	rx := min(thickness/2/CellWidth+0.5, float64(c.width)+1)
	ry := min(thickness/2/CellHeight+0.5, float64(c.height)+1)

	fx0, fy0, fx1, fy1, ok := clip(
		start.X/CellWidth, start.Y/CellHeight, end.X/CellWidth, end.Y/CellHeight,
		-rx-1, -ry-1, float64(c.width)+rx+1, float64(c.height)+ry+1,
	)
	if !ok {
		return
	}

	x0, y0 := int(math.Floor(fx0)), int(math.Floor(fy0))
	x1, y1 := int(math.Floor(fx1)), int(math.Floor(fy1))
	line(x0, y0, x1, y1, func(x, y int) {
		c.stamp(x, y, rx, ry, ink)
	})
}

// clip trims the segment to the rectangle (Liang-Barsky). ok is false when
// nothing of it is inside.
func clip(x0, y0, x1, y1, xmin, ymin, xmax, ymax float64) (cx0, cy0, cx1, cy1 float64, ok bool) {
	dx, dy := x1-x0, y1-y0
	t0, t1 := 0.0, 1.0
	for _, edge := range [4][2]float64{
		{-dx, x0 - xmin},
		{dx, xmax - x0},
		{-dy, y0 - ymin},
		{dy, ymax - y0},
	} {
		p, q := edge[0], edge[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return 0, 0, 0, 0, false
			}
			t0 = max(t0, r)
		} else {
			if r < t0 {
				return 0, 0, 0, 0, false
			}
			t1 = min(t1, r)
		}
	}
	return x0 + t0*dx, y0 + t0*dy, x0 + t1*dx, y0 + t1*dy, true
}

func (c *Canvas) stamp(cx, cy int, rx, ry float64, ink string) {
	ix, iy := int(rx), int(ry)
	for dy := -iy; dy <= iy; dy++ {
		for dx := -ix; dx <= ix; dx++ {
			nx, ny := float64(dx)/rx, float64(dy)/ry
			if nx*nx+ny*ny > 1 {
				continue
			}
			c.set(cx+dx, cy+dy, ink)
		}
	}
}

func (c *Canvas) set(x, y int, ink string) {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return
	}
	c.cells[y*c.width+x] = ink
}

// line walks the cells between two points (Bresenham).
func line(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Clear empties every cell.
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.cells)
}

// At returns the ink of a cell, or "" when empty or out of range.
func (c *Canvas) At(col, row int) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if col < 0 || row < 0 || col >= c.width || row >= c.height {
		return ""
	}
	return c.cells[row*c.width+col]
}

// Inked counts non-empty cells.
func (c *Canvas) Inked() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, ink := range c.cells {
		if ink != "" {
			n++
		}
	}
	return n
}

// View renders the grid on white paper, one line per row.
func (c *Canvas) View() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	for row := 0; row < c.height; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		cells := c.cells[row*c.width : (row+1)*c.width]
		for start := 0; start < len(cells); {
			end := start + 1
			for end < len(cells) && cells[end] == cells[start] {
				end++
			}
			b.WriteString(c.run(cells[start], end-start))
			start = end
		}
	}
	return b.String()
}

// run renders n adjacent cells sharing ink. Callers hold the lock.
func (c *Canvas) run(ink string, n int) string {
	style, ok := c.styles[ink]
	if !ok {
		style = lipgloss.NewStyle().Background(paper)
		if ink != "" {
			style = style.Foreground(lipgloss.Color(ink))
		}
		c.styles[ink] = style
	}
	glyph := " "
	if ink != "" {
		glyph = inkRune
	}
	return style.Render(strings.Repeat(glyph, n))
}

// normalizeColor maps a wire colour to a hex ink, or "" for erase.
func normalizeColor(color string) string {
	color = strings.TrimSpace(color)
	if draw.IsEraseColor(color) || strings.EqualFold(color, "white") {
		return ""
	}
	if strings.HasPrefix(color, "#") && (len(color) == 7 || len(color) == 4) {
		return strings.ToLower(color)
	}
	if hex, ok := cssColors[strings.ToLower(color)]; ok {
		return hex
	}
	return "#000000"
}
