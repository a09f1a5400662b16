// SPDX-License-Identifier: MIT
package render

import (
	"fmt"

	"micscope/internal/display"
)

var (
	readoutOrigin = display.Point{X: 0, Y: 10}
	readoutStyle  = display.TextStyle{Color: display.On, Font: display.FontSmall}
	barStyle      = display.LineStyle{Color: display.On, Width: 1}
	statusStyle   = display.TextStyle{Color: display.On, Font: display.FontLarge}
	borderStyle   = display.LineStyle{Color: display.On, Width: 1}
)

// FrequencyLabel formats the dominant frequency readout.
func FrequencyLabel(hz float64) string {
	return fmt.Sprintf("Freq: %.0f Hz", hz)
}

// Frame draws one spectrum view: the frequency readout and one vertical bar
// per entry of heights, then flushes. The first failing surface call aborts
// the frame and its error is returned.
func Frame(s display.Surface, l Layout, dominantHz float64, heights []int) error {
	if err := s.Clear(display.Off); err != nil {
		return err
	}
	if err := s.DrawText(readoutOrigin, FrequencyLabel(dominantHz), readoutStyle); err != nil {
		return err
	}

	for i, h := range heights {
		x := l.BarX(i)
		from := display.Point{X: x, Y: l.BaseY}
		to := display.Point{X: x, Y: l.BarTop(h)}
		if err := s.DrawLine(from, to, barStyle); err != nil {
			return err
		}
	}

	return s.Flush()
}

// Status replaces the screen with an outlined box holding a single message.
func Status(s display.Surface, text string) error {
	if err := s.Clear(display.Off); err != nil {
		return err
	}

	const right, bottom = display.Width - 1, display.Height - 1
	corners := [...]display.Point{{X: 0, Y: 0}, {X: right, Y: 0}, {X: right, Y: bottom}, {X: 0, Y: bottom}}
	for i := range corners {
		if err := s.DrawLine(corners[i], corners[(i+1)%len(corners)], borderStyle); err != nil {
			return err
		}
	}

	at := display.Point{X: 10, Y: (display.Height - 10) / 2}
	if err := s.DrawText(at, text, statusStyle); err != nil {
		return err
	}
	return s.Flush()
}
