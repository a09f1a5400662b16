// SPDX-License-Identifier: MIT
package display

import (
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
)

// SinkFunc receives the front buffer after every successful Flush. The image
// is only valid for the duration of the call.
type SinkFunc func(front *image.Gray) error

// Framebuffer is an in-memory, double-buffered 128x64 monochrome Surface.
// Drawing goes to the back buffer; Flush copies it to the front buffer and
// hands the front buffer to the optional sink.
type Framebuffer struct {
	mu     sync.Mutex
	back   *image.Gray
	front  *image.Gray
	sink   SinkFunc
	closed bool
}

var _ Surface = (*Framebuffer)(nil)

var (
	pixelOn  = color.Gray{Y: 0xff}
	pixelOff = color.Gray{Y: 0x00}
)

// NewFramebuffer returns a blank framebuffer. sink may be nil.
func NewFramebuffer(sink SinkFunc) *Framebuffer {
	bounds := image.Rect(0, 0, Width, Height)
	return &Framebuffer{
		back:  image.NewGray(bounds),
		front: image.NewGray(bounds),
		sink:  sink,
	}
}

func grayOf(c Color) color.Gray {
	if c == On {
		return pixelOn
	}
	return pixelOff
}

func faceOf(f Font) font.Face {
	if f == FontLarge {
		return inconsolata.Regular8x16
	}
	return basicfont.Face7x13
}

func (f *Framebuffer) Clear(c Color) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	v := grayOf(c).Y
	for i := range f.back.Pix {
		f.back.Pix[i] = v
	}
	return nil
}

// DrawText renders text with its baseline starting at at. Glyphs falling
// outside the panel are clipped.
func (f *Framebuffer) DrawText(at Point, text string, style TextStyle) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	d := font.Drawer{
		Dst:  f.back,
		Src:  image.NewUniform(grayOf(style.Color)),
		Face: faceOf(style.Font),
		Dot:  fixed.P(at.X, at.Y),
	}
	d.DrawString(text)
	return nil
}

// DrawLine strokes a straight line between two points, inclusive, using
// Bresenham's algorithm. Pixels outside the panel are dropped.
func (f *Framebuffer) DrawLine(from, to Point, style LineStyle) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	width := max(style.Width, 1)
	c := grayOf(style.Color)

	x0, y0, x1, y1 := from.X, from.Y, to.X, to.Y
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	e := dx + dy
	for {
		f.plot(x0, y0, width, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
	return nil
}

// plot paints a width x width square anchored at (x, y).
func (f *Framebuffer) plot(x, y, width int, c color.Gray) {
	for oy := range width {
		for ox := range width {
			// SetGray ignores points outside the bounds.
			f.back.SetGray(x+ox, y+oy, c)
		}
	}
}

// Flush publishes the back buffer. The back buffer keeps its contents.
func (f *Framebuffer) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	copy(f.front.Pix, f.back.Pix)
	if f.sink != nil {
		return f.sink(f.front)
	}
	return nil
}

// Pixel reports the published state of (x, y). Points outside the panel are Off.
func (f *Framebuffer) Pixel(x, y int) Color {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !(image.Point{X: x, Y: y}.In(f.front.Bounds())) {
		return Off
	}
	return pixelColor(f.front, x, y)
}

// Snapshot returns a copy of the published image.
func (f *Framebuffer) Snapshot() *image.Gray {
	f.mu.Lock()
	defer f.mu.Unlock()

	img := image.NewGray(f.front.Bounds())
	copy(img.Pix, f.front.Pix)
	return img
}

// Close blanks the panel and rejects further drawing.
func (f *Framebuffer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true

	clear(f.back.Pix)
	clear(f.front.Pix)
	if f.sink != nil {
		return f.sink(f.front)
	}
	return nil
}

// pixelColor thresholds a gray pixel; anti-aliased glyph edges at half
// intensity or more count as lit.
func pixelColor(img *image.Gray, x, y int) Color {
	if img.GrayAt(x, y).Y >= 0x80 {
		return On
	}
	return Off
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
