// SPDX-License-Identifier: MIT
/*
Package display provides the drawing surface the capture loop renders onto.

A Surface is double-buffered: Clear, DrawText and DrawLine mutate a back
buffer, and Flush publishes it. Nothing reaches the physical output until
Flush returns.
*/
package display

import "errors"

const (
	Width  = 128 // Panel width in pixels.
	Height = 64  // Panel height in pixels.
)

// Color is a monochrome pixel value.
type Color uint8

const (
	Off Color = iota
	On
)

// Point is a pixel coordinate with the origin at the top-left corner.
type Point struct {
	X, Y int
}

// Font selects one of the surface's built-in faces.
type Font int

const (
	FontSmall Font = iota // 7x13, used for the frequency readout.
	FontLarge             // 8x16, used for status screens.
)

// TextStyle describes how a string is drawn. The text position is the
// baseline origin of the first glyph.
type TextStyle struct {
	Color Color
	Font  Font
}

// LineStyle describes a stroked line.
type LineStyle struct {
	Color Color
	Width int // Stroke width in pixels; 0 is treated as 1.
}

// Surface is the display collaborator of the capture loop.
type Surface interface {
	Clear(c Color) error
	DrawText(at Point, text string, style TextStyle) error
	DrawLine(from, to Point, style LineStyle) error
	Flush() error
}

// ErrClosed is returned by surfaces that have been shut down.
var ErrClosed = errors.New("display: surface is closed")
