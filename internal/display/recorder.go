// SPDX-License-Identifier: MIT
package display

import "fmt"

// Op names a Surface method.
type Op int

const (
	OpClear Op = iota
	OpDrawText
	OpDrawLine
	OpFlush
)

func (o Op) String() string {
	switch o {
	case OpClear:
		return "clear"
	case OpDrawText:
		return "draw_text"
	case OpDrawLine:
		return "draw_line"
	case OpFlush:
		return "flush"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Call is one recorded Surface invocation.
type Call struct {
	Op    Op
	Color Color  // Clear
	At    Point  // DrawText origin, DrawLine start
	To    Point  // DrawLine end
	Text  string // DrawText
	Font  Font   // DrawText
}

// Recorder implements Surface by recording every call instead of drawing.
// Operations listed in FailOn are still recorded but return the mapped error.
type Recorder struct {
	Calls  []Call
	FailOn map[Op]error
}

var _ Surface = (*Recorder)(nil)

func (r *Recorder) record(c Call) error {
	r.Calls = append(r.Calls, c)
	if err, ok := r.FailOn[c.Op]; ok {
		return err
	}
	return nil
}

func (r *Recorder) Clear(c Color) error {
	return r.record(Call{Op: OpClear, Color: c})
}

func (r *Recorder) DrawText(at Point, text string, style TextStyle) error {
	return r.record(Call{Op: OpDrawText, At: at, Text: text, Color: style.Color, Font: style.Font})
}

func (r *Recorder) DrawLine(from, to Point, style LineStyle) error {
	return r.record(Call{Op: OpDrawLine, At: from, To: to, Color: style.Color})
}

func (r *Recorder) Flush() error {
	return r.record(Call{Op: OpFlush})
}

// Count returns how many recorded calls used op.
func (r *Recorder) Count(op Op) int {
	n := 0
	for _, c := range r.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Texts returns the strings passed to DrawText, in order.
func (r *Recorder) Texts() []string {
	var texts []string
	for _, c := range r.Calls {
		if c.Op == OpDrawText {
			texts = append(texts, c.Text)
		}
	}
	return texts
}

// Reset forgets all recorded calls.
func (r *Recorder) Reset() {
	r.Calls = r.Calls[:0]
}
