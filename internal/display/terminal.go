// SPDX-License-Identifier: MIT
package display

import (
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Braille dot (column, row) to bit offset within a U+2800 cell.
var brailleBits = [2][4]uint{
	{0, 1, 2, 6},
	{3, 4, 5, 7},
}

const (
	cellWidth  = 2
	cellHeight = 4

	ansiClear = "\x1b[2J"
	ansiHome  = "\x1b[H"
)

// Terminal mirrors a framebuffer onto a text terminal. Every 2x4 block of
// pixels becomes one Braille cell, so the 128x64 panel fits in 64x16
// characters. With unicode disabled each block is '#' when any pixel is lit.
type Terminal struct {
	out     io.Writer
	unicode bool
	frame   lipgloss.Style
	started bool
	sb      strings.Builder
}

// NewTerminal returns a Terminal writing to out.
func NewTerminal(out io.Writer, unicode bool) *Terminal {
	border := lipgloss.RoundedBorder()
	if !unicode {
		border = lipgloss.ASCIIBorder()
	}
	return &Terminal{
		out:     out,
		unicode: unicode,
		frame:   lipgloss.NewStyle().Border(border),
	}
}

// Render draws img at the top-left corner of the terminal. It has the
// SinkFunc signature so it can be handed straight to NewFramebuffer.
func (t *Terminal) Render(img *image.Gray) error {
	var prefix string
	if !t.started {
		prefix = ansiClear
		t.started = true
	}

	if _, err := fmt.Fprint(t.out, prefix+ansiHome+t.View(img)+"\n"); err != nil {
		return fmt.Errorf("terminal write failed: %w", err)
	}
	return nil
}

// View returns the bordered text rendition of img.
func (t *Terminal) View(img *image.Gray) string {
	b := img.Bounds()
	cols := (b.Dx() + cellWidth - 1) / cellWidth
	rows := (b.Dy() + cellHeight - 1) / cellHeight

	t.sb.Reset()
	for row := range rows {
		if row > 0 {
			t.sb.WriteByte('\n')
		}
		for col := range cols {
			pattern := cellPattern(img, b.Min.X+col*cellWidth, b.Min.Y+row*cellHeight)
			switch {
			case t.unicode:
				t.sb.WriteRune(rune(0x2800 + pattern))
			case pattern != 0:
				t.sb.WriteByte('#')
			default:
				t.sb.WriteByte(' ')
			}
		}
	}

	return t.frame.Render(t.sb.String())
}

// cellPattern returns the Braille dot mask for the block at (x, y).
func cellPattern(img *image.Gray, x, y int) uint {
	b := img.Bounds()
	var pattern uint
	for dx := range cellWidth {
		for dy := range cellHeight {
			p := image.Point{X: x + dx, Y: y + dy}
			if p.In(b) && pixelColor(img, p.X, p.Y) == On {
				pattern |= 1 << brailleBits[dx][dy]
			}
		}
	}
	return pattern
}
