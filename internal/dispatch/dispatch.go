// Package dispatch types one text into every configured chat target.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"multibot/internal/desktop"
	"multibot/internal/targets"
)

// ErrTargetNotFound is reported for a target whose window could not be located.
var ErrTargetNotFound = errors.New("target window not found")

// Driver is the slice of desktop automation the dispatcher needs.
type Driver interface {
	FindWindow(pattern string) (desktop.Window, error)
	Activate(w desktop.Window) error
	Click(x, y int) error
	Type(text string) error
	Paste(text string) error
	KeyTap(key string, mods ...string) error
}

// Options tunes a Dispatcher.
type Options struct {
	// Delay is the wait between targets when an entry has no delay of its own.
	Delay time.Duration
	// Settle is the pause after focusing a window before clicking into it.
	Settle time.Duration
	// Limit caps how many entries one dispatch visits. Zero means all.
	Limit int
	Debug bool
}

// Dispatcher fans a text out to targets in order.
type Dispatcher struct {
	driver Driver
	opts   Options
	sleep  func(ctx context.Context, d time.Duration) error
}

// New returns a Dispatcher using driver.
func New(driver Driver, opts Options) *Dispatcher {
	return &Dispatcher{driver: driver, opts: opts, sleep: sleepCtx}
}

// TargetError is the failure of one target.
type TargetError struct {
	ID  string
	Err error
}

func (e *TargetError) Error() string { return e.ID + ": " + e.Err.Error() }

func (e *TargetError) Unwrap() error { return e.Err }

// Report summarizes one dispatch.
type Report struct {
	Attempted int
	Succeeded []string
	Failed    []*TargetError
}

func (r Report) String() string {
	return fmt.Sprintf("%d/%d targets", len(r.Succeeded), r.Attempted)
}

// Dispatch delivers text to each entry in order. A failing target is logged and
// skipped; the rest of the batch still runs. Partial delivery is reported, not
// rolled back. Cancelling ctx stops the batch before the next target.
func (d *Dispatcher) Dispatch(ctx context.Context, text string, entries []targets.Entry) Report {
	var rep Report
	if strings.TrimSpace(text) == "" {
		slog.Warn("dispatch skipped: empty text")
		return rep
	}
	if d.opts.Limit > 0 && len(entries) > d.opts.Limit {
		entries = entries[:d.opts.Limit]
	}

	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			for _, rest := range entries[i:] {
				rep.Failed = append(rep.Failed, &TargetError{ID: rest.ID, Err: err})
			}
			break
		}
		rep.Attempted++

		acted, err := d.deliver(ctx, text, e)
		if err != nil {
			te := &TargetError{ID: e.ID, Err: err}
			rep.Failed = append(rep.Failed, te)
			if errors.Is(err, ErrTargetNotFound) {
				slog.Warn("target skipped", "target", e.ID, "title", e.Title)
			} else {
				slog.Error("target failed", "target", e.ID, "err", err)
			}
		} else {
			rep.Succeeded = append(rep.Succeeded, e.ID)
			if d.opts.Debug {
				slog.Info("target delivered", "target", e.ID)
			}
		}

		if acted && i < len(entries)-1 {
			_ = d.sleep(ctx, e.Delay(d.opts.Delay))
		}
	}

	slog.Info("dispatch finished", "delivered", len(rep.Succeeded), "attempted", rep.Attempted)
	return rep
}

// deliver runs the steps for one target. acted reports whether any input
// reached the desktop, which decides if the inter-target wait applies.
func (d *Dispatcher) deliver(ctx context.Context, text string, e targets.Entry) (acted bool, err error) {
	w, err := d.driver.FindWindow(e.Title)
	if err != nil {
		if errors.Is(err, desktop.ErrNoWindow) {
			return false, fmt.Errorf("%w: %q", ErrTargetNotFound, e.Title)
		}
		return false, fmt.Errorf("find window: %w", err)
	}
	d.debug("window found", e, "handle", w.Handle, "pid", w.PID, "title", w.Title)

	if err := d.driver.Activate(w); err != nil {
		return false, fmt.Errorf("focus: %w", err)
	}
	if err := d.sleep(ctx, d.opts.Settle); err != nil {
		return true, err
	}

	x, y := Resolve(e, w)
	d.debug("click input", e, "x", x, "y", y)
	if err := d.driver.Click(x, y); err != nil {
		return true, fmt.Errorf("click: %w", err)
	}

	switch e.InputMethodOrDefault() {
	case targets.InputPaste:
		err = d.driver.Paste(text)
	default:
		err = d.driver.Type(text)
	}
	if err != nil {
		return true, fmt.Errorf("input: %w", err)
	}

	if err := d.submit(e); err != nil {
		return true, fmt.Errorf("submit: %w", err)
	}
	return true, nil
}

func (d *Dispatcher) submit(e targets.Entry) error {
	switch m := e.SendMethodOrDefault(); m {
	case targets.SendEnter:
		return d.driver.KeyTap("enter")
	case targets.SendCtrlEnter:
		return d.driver.KeyTap("enter", "ctrl")
	case targets.SendShiftEnter:
		return d.driver.KeyTap("enter", "shift")
	case targets.SendClick:
		return d.driver.Click(e.SendX, e.SendY)
	case targets.SendNone:
		return nil
	default:
		return fmt.Errorf("unknown send method %q", m)
	}
}

func (d *Dispatcher) debug(msg string, e targets.Entry, args ...any) {
	if d.opts.Debug {
		slog.Debug(msg, append([]any{"target", e.ID}, args...)...)
	}
}

// Resolve returns the screen point for an entry. A normalized coordinate is
// mapped onto the window's current bounds; without one, or when the window
// reports no size, the stored absolute point is used.
func Resolve(e targets.Entry, w desktop.Window) (int, int) {
	if e.HasRelative() && w.W > 0 && w.H > 0 {
		x := w.X + int(math.Round(*e.RelX*float64(w.W)))
		y := w.Y + int(math.Round(*e.RelY*float64(w.H)))
		return x, y
	}
	return e.X, e.Y
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
