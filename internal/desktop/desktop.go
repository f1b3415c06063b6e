// Package desktop drives windows, the pointer and the keyboard through robotgo.
package desktop

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-vgo/robotgo"

	"multibot/internal/clipboard"
)

// ErrNoWindow is returned when no window matches or none is focused.
var ErrNoWindow = errors.New("no matching window")

// Window is a top-level window as reported by the OS. Handle identifies the
// window itself (HWND, X11 window id); PID is only the owning process, which
// several windows of one browser share.
type Window struct {
	Handle int
	PID    int
	Title  string
	X      int
	Y      int
	W      int
	H      int
}

// Robot is the robotgo-backed driver. Every window operation goes through a
// window handle.
type Robot struct {
	list     func() ([]Window, error)
	active   func() int
	title    func(handle int) string
	bounds   func(handle int) (x, y, w, h int)
	activate func(handle int) error
}

// New returns a Robot.
func New() *Robot {
	return &Robot{
		list:   listWindows,
		active: activeHandle,
		title: func(h int) string {
			return robotgo.GetTitle(append([]int{h}, handleArgs...)...)
		},
		bounds: func(h int) (int, int, int, int) {
			return robotgo.GetBounds(h, handleArgs...)
		},
		activate: func(h int) error {
			return robotgo.ActivePid(h, handleArgs...)
		},
	}
}

// Windows lists titled top-level windows, one entry per window.
func (r *Robot) Windows() ([]Window, error) {
	wins, err := r.list()
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	out := wins[:0]
	for _, w := range wins {
		if strings.TrimSpace(w.Title) == "" {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

// FindWindow returns the first window whose title contains pattern.
func (r *Robot) FindWindow(pattern string) (Window, error) {
	wins, err := r.Windows()
	if err != nil {
		return Window{}, err
	}
	w, ok := Match(wins, pattern)
	if !ok {
		return Window{}, fmt.Errorf("%w: %q", ErrNoWindow, pattern)
	}
	return r.withBounds(w), nil
}

// ActiveWindow returns the focused window with its bounds.
func (r *Robot) ActiveWindow() (Window, error) {
	h := r.active()
	if h == 0 {
		return Window{}, ErrNoWindow
	}
	return r.withBounds(Window{Handle: h, Title: r.title(h)}), nil
}

// Activate brings w to the foreground.
func (r *Robot) Activate(w Window) error {
	if w.Handle == 0 {
		return fmt.Errorf("%w: %q has no handle", ErrNoWindow, w.Title)
	}
	return r.activate(w.Handle)
}

// Pointer returns the current pointer position.
func (r *Robot) Pointer() (int, int) {
	return robotgo.Location()
}

// Click moves the pointer to x,y and left-clicks.
func (r *Robot) Click(x, y int) error {
	robotgo.Move(x, y)
	robotgo.MilliSleep(50)
	robotgo.Click()
	return nil
}

// Type sends text as keystrokes to the focused window.
func (r *Robot) Type(text string) error {
	robotgo.TypeStr(text)
	return nil
}

// Paste sends text through the clipboard.
func (r *Robot) Paste(text string) error {
	return clipboard.PasteText(text)
}

// KeyTap presses key with optional modifiers ("ctrl", "shift", ...).
func (r *Robot) KeyTap(key string, mods ...string) error {
	args := make([]interface{}, len(mods))
	for i, m := range mods {
		args[i] = m
	}
	return robotgo.KeyTap(key, args...)
}

// Displays returns the number of attached displays.
func (r *Robot) Displays() int {
	return robotgo.DisplaysNum()
}

func (r *Robot) withBounds(w Window) Window {
	w.X, w.Y, w.W, w.H = r.bounds(w.Handle)
	return w
}

// Match picks the first window whose title contains pattern, ignoring case.
// An empty pattern never matches.
func Match(wins []Window, pattern string) (Window, bool) {
	p := strings.ToLower(strings.TrimSpace(pattern))
	if p == "" {
		return Window{}, false
	}
	for _, w := range wins {
		if strings.Contains(strings.ToLower(w.Title), p) {
			return w, true
		}
	}
	return Window{}, false
}
