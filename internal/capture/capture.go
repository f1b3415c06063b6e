// Package capture records where a chat target's input field is by sampling the
// focused window and the pointer.
package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"multibot/internal/desktop"
	"multibot/internal/targets"
)

// ErrUnavailable is returned when no window is focused or it reports no size.
var ErrUnavailable = errors.New("capture unavailable")

// Desktop reports the focused window and the pointer.
type Desktop interface {
	ActiveWindow() (desktop.Window, error)
	Pointer() (int, int)
}

// Putter stores one entry.
type Putter interface {
	Put(e targets.Entry) error
}

// Request describes the entry to capture. Empty fields take the captured or
// default values.
type Request struct {
	ID      string
	Title   string
	Send    targets.SendMethod
	Input   targets.InputMethod
	DelayMs int
}

// Capturer samples the desktop after the user confirms.
type Capturer struct {
	desk    Desktop
	store   Putter
	confirm func(prompt string) error
}

// New returns a Capturer. confirm blocks until the user is ready.
func New(desk Desktop, store Putter, confirm func(prompt string) error) *Capturer {
	return &Capturer{desk: desk, store: store, confirm: confirm}
}

// Normalize maps a pointer position into the window's unit square. It fails
// with ErrUnavailable when the window has no width or height.
func Normalize(px, py int, w desktop.Window) (float64, float64, error) {
	if w.W <= 0 || w.H <= 0 {
		return 0, 0, ErrUnavailable
	}
	rx := float64(px-w.X) / float64(w.W)
	ry := float64(py-w.Y) / float64(w.H)
	return rx, ry, nil
}

// Capture waits for confirmation, samples the desktop and writes the entry.
// An existing entry with the same identifier is replaced.
func (c *Capturer) Capture(req Request) (targets.Entry, error) {
	if strings.TrimSpace(req.ID) == "" {
		return targets.Entry{}, fmt.Errorf("capture: empty identifier")
	}
	prompt := fmt.Sprintf("Focus the %s window, hover its input field and press Enter", req.ID)
	if err := c.confirm(prompt); err != nil {
		return targets.Entry{}, err
	}

	w, err := c.desk.ActiveWindow()
	if err != nil || strings.TrimSpace(w.Title) == "" {
		return targets.Entry{}, ErrUnavailable
	}
	px, py := c.desk.Pointer()
	rx, ry, err := Normalize(px, py, w)
	if err != nil {
		return targets.Entry{}, err
	}

	e := targets.Entry{
		ID:      req.ID,
		Title:   req.Title,
		X:       px,
		Y:       py,
		Send:    req.Send,
		Input:   req.Input,
		DelayMs: req.DelayMs,
	}
	if e.Title == "" {
		e.Title = w.Title
	}
	if rx >= 0 && rx <= 1 && ry >= 0 && ry <= 1 {
		e.RelX, e.RelY = &rx, &ry
	} else {
		slog.Warn("pointer outside the focused window, keeping absolute position only", "target", req.ID, "x", px, "y", py)
	}

	if err := c.store.Put(e); err != nil {
		return targets.Entry{}, fmt.Errorf("store %s: %w", e.ID, err)
	}
	slog.Info("captured", "target", e.ID, "title", e.Title, "x", px, "y", py)
	return e, nil
}

// Session captures n targets named prefix1..prefixN. Unavailable samples are
// logged and skipped; other errors stop the session.
func (c *Capturer) Session(n int, prefix string, tmpl Request) ([]targets.Entry, error) {
	var out []targets.Entry
	for i := 1; i <= n; i++ {
		req := tmpl
		req.ID = fmt.Sprintf("%s%d", prefix, i)
		e, err := c.Capture(req)
		if errors.Is(err, ErrUnavailable) {
			slog.Warn("no usable window, skipped", "target", req.ID)
			continue
		}
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}

// LinePrompt returns a confirm function that prints the prompt to w and waits
// for a line on r.
func LinePrompt(r io.Reader, w io.Writer) func(string) error {
	br := bufio.NewReader(r)
	return func(prompt string) error {
		fmt.Fprintf(w, "%s... ", prompt)
		if _, err := br.ReadString('\n'); err != nil {
			return fmt.Errorf("capture: waiting for confirmation: %w", err)
		}
		return nil
	}
}
