package targets

import (
	"fmt"
	"strings"
	"time"
)

// SendMethod is how a target's message is submitted after the text is entered.
type SendMethod string

const (
	SendEnter      SendMethod = "enter"
	SendCtrlEnter  SendMethod = "ctrl+enter"
	SendShiftEnter SendMethod = "shift+enter"
	SendClick      SendMethod = "click"
	SendNone       SendMethod = "none"
)

// InputMethod is how the text reaches the input field.
type InputMethod string

const (
	InputType  InputMethod = "type"
	InputPaste InputMethod = "paste"
)

// Entry is one chat target: where its window is, where to click and how to send.
type Entry struct {
	ID      string      `json:"-"`
	Title   string      `json:"title"`
	X       int         `json:"x"`
	Y       int         `json:"y"`
	RelX    *float64    `json:"rel_x,omitempty"`
	RelY    *float64    `json:"rel_y,omitempty"`
	Send    SendMethod  `json:"send,omitempty"`
	SendX   int         `json:"send_x,omitempty"`
	SendY   int         `json:"send_y,omitempty"`
	Input   InputMethod `json:"input,omitempty"`
	DelayMs int         `json:"delay_ms,omitempty"`
}

// HasRelative reports whether the entry carries a normalized coordinate.
func (e Entry) HasRelative() bool {
	return e.RelX != nil && e.RelY != nil
}

// SendMethodOrDefault returns the configured send method, enter when unset.
func (e Entry) SendMethodOrDefault() SendMethod {
	if e.Send == "" {
		return SendEnter
	}
	return SendMethod(strings.ToLower(string(e.Send)))
}

// InputMethodOrDefault returns the configured input method, type when unset.
func (e Entry) InputMethodOrDefault() InputMethod {
	if e.Input == "" {
		return InputType
	}
	return InputMethod(strings.ToLower(string(e.Input)))
}

// Delay returns the wait after this target, or def when the entry has none.
func (e Entry) Delay(def time.Duration) time.Duration {
	if e.DelayMs > 0 {
		return time.Duration(e.DelayMs) * time.Millisecond
	}
	return def
}

// Validate checks the entry for values the dispatcher cannot act on.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("entry: empty identifier")
	}
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("entry %s: empty title pattern", e.ID)
	}
	if (e.RelX == nil) != (e.RelY == nil) {
		return fmt.Errorf("entry %s: rel_x and rel_y must be set together", e.ID)
	}
	if e.HasRelative() {
		if *e.RelX < 0 || *e.RelX > 1 || *e.RelY < 0 || *e.RelY > 1 {
			return fmt.Errorf("entry %s: relative coordinate (%v,%v) outside [0,1]", e.ID, *e.RelX, *e.RelY)
		}
	}
	switch e.SendMethodOrDefault() {
	case SendEnter, SendCtrlEnter, SendShiftEnter, SendClick, SendNone:
	default:
		return fmt.Errorf("entry %s: unknown send method %q", e.ID, e.Send)
	}
	switch e.InputMethodOrDefault() {
	case InputType, InputPaste:
	default:
		return fmt.Errorf("entry %s: unknown input method %q", e.ID, e.Input)
	}
	if e.DelayMs < 0 {
		return fmt.Errorf("entry %s: negative delay", e.ID)
	}
	return nil
}
