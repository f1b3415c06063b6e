package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"multibot/internal/desktop"
	"multibot/internal/targets"
)

type fakeDriver struct {
	windows   []desktop.Window
	failClick map[string]bool
	focused   desktop.Window
	log       []string
}

func (f *fakeDriver) FindWindow(pattern string) (desktop.Window, error) {
	w, ok := desktop.Match(f.windows, pattern)
	if !ok {
		return desktop.Window{}, fmt.Errorf("%w: %q", desktop.ErrNoWindow, pattern)
	}
	return w, nil
}

func (f *fakeDriver) Activate(w desktop.Window) error {
	f.focused = w
	f.log = append(f.log, "focus "+w.Title)
	return nil
}

func (f *fakeDriver) Click(x, y int) error {
	if f.failClick[f.focused.Title] {
		return errors.New("click refused")
	}
	f.log = append(f.log, fmt.Sprintf("click %d,%d", x, y))
	return nil
}

func (f *fakeDriver) Type(text string) error {
	f.log = append(f.log, "type "+text)
	return nil
}

func (f *fakeDriver) Paste(text string) error {
	f.log = append(f.log, "paste "+text)
	return nil
}

func (f *fakeDriver) KeyTap(key string, mods ...string) error {
	f.log = append(f.log, "key "+strings.Join(append(mods, key), "+"))
	return nil
}

func newTestDispatcher(drv Driver, opts Options) (*Dispatcher, *[]time.Duration) {
	d := New(drv, opts)
	var waits []time.Duration
	d.sleep = func(ctx context.Context, dur time.Duration) error {
		if dur > 0 {
			waits = append(waits, dur)
		}
		return ctx.Err()
	}
	return d, &waits
}

func ptr(v float64) *float64 { return &v }

func TestDispatchPartialMatchAttemptsAll(t *testing.T) {
	drv := &fakeDriver{windows: []desktop.Window{
		{Handle: 1, Title: "ChatGPT"},
		{Handle: 3, Title: "Gemini"},
	}}
	entries := []targets.Entry{
		{ID: "gpt", Title: "chatgpt", X: 10, Y: 20},
		{ID: "claude", Title: "Claude", X: 30, Y: 40},
		{ID: "gemini", Title: "gemini", X: 50, Y: 60},
		{ID: "grok", Title: "Grok", X: 70, Y: 80},
	}
	d, _ := newTestDispatcher(drv, Options{})

	rep := d.Dispatch(context.Background(), "hello", entries)

	if rep.Attempted != 4 {
		t.Fatalf("expected 4 attempted, got %d", rep.Attempted)
	}
	if len(rep.Succeeded) != 2 || rep.Succeeded[0] != "gpt" || rep.Succeeded[1] != "gemini" {
		t.Fatalf("unexpected successes %v", rep.Succeeded)
	}
	if len(rep.Failed) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(rep.Failed))
	}
	for _, f := range rep.Failed {
		if !errors.Is(f, ErrTargetNotFound) {
			t.Fatalf("expected ErrTargetNotFound for %s, got %v", f.ID, f.Err)
		}
	}
}

func TestDispatchStepFailureDoesNotAbort(t *testing.T) {
	drv := &fakeDriver{
		windows:   []desktop.Window{{Title: "A"}, {Title: "B"}, {Title: "C"}},
		failClick: map[string]bool{"B": true},
	}
	entries := []targets.Entry{
		{ID: "a", Title: "A"}, {ID: "b", Title: "B"}, {ID: "c", Title: "C"},
	}
	d, _ := newTestDispatcher(drv, Options{})

	rep := d.Dispatch(context.Background(), "hi", entries)
	if rep.Attempted != 3 || len(rep.Succeeded) != 2 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if rep.Failed[0].ID != "b" || !strings.Contains(rep.Failed[0].Error(), "click") {
		t.Fatalf("unexpected failure %v", rep.Failed[0])
	}
}

func TestDispatchStepsAndSendMethods(t *testing.T) {
	drv := &fakeDriver{windows: []desktop.Window{
		{Title: "One"}, {Title: "Two"}, {Title: "Three"}, {Title: "Four"},
	}}
	entries := []targets.Entry{
		{ID: "1", Title: "One", X: 1, Y: 1},
		{ID: "2", Title: "Two", X: 2, Y: 2, Send: targets.SendCtrlEnter, Input: targets.InputPaste},
		{ID: "3", Title: "Three", X: 3, Y: 3, Send: targets.SendClick, SendX: 33, SendY: 34},
		{ID: "4", Title: "Four", X: 4, Y: 4, Send: targets.SendNone},
	}
	d, _ := newTestDispatcher(drv, Options{})
	d.Dispatch(context.Background(), "msg", entries)

	want := []string{
		"focus One", "click 1,1", "type msg", "key enter",
		"focus Two", "click 2,2", "paste msg", "key ctrl+enter",
		"focus Three", "click 3,3", "type msg", "click 33,34",
		"focus Four", "click 4,4", "type msg",
	}
	if strings.Join(drv.log, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected steps:\n got  %v\n want %v", drv.log, want)
	}
}

func TestDispatchDelays(t *testing.T) {
	drv := &fakeDriver{windows: []desktop.Window{{Title: "A"}, {Title: "C"}}}
	entries := []targets.Entry{
		{ID: "a", Title: "A", DelayMs: 250},
		{ID: "b", Title: "missing"},
		{ID: "c", Title: "C"},
	}
	d, waits := newTestDispatcher(drv, Options{Delay: time.Second})
	d.Dispatch(context.Background(), "x", entries)

	// a waits its own delay; b was never reached on screen; c is last.
	if len(*waits) != 1 || (*waits)[0] != 250*time.Millisecond {
		t.Fatalf("unexpected waits %v", *waits)
	}
}

func TestDispatchLimit(t *testing.T) {
	drv := &fakeDriver{windows: []desktop.Window{{Title: "A"}, {Title: "B"}, {Title: "C"}}}
	entries := []targets.Entry{{ID: "a", Title: "A"}, {ID: "b", Title: "B"}, {ID: "c", Title: "C"}}
	d, _ := newTestDispatcher(drv, Options{Limit: 2})
	rep := d.Dispatch(context.Background(), "x", entries)
	if rep.Attempted != 2 {
		t.Fatalf("expected 2 attempted, got %d", rep.Attempted)
	}
}

func TestDispatchEmptyTextIsNoop(t *testing.T) {
	drv := &fakeDriver{windows: []desktop.Window{{Title: "A"}}}
	d, _ := newTestDispatcher(drv, Options{})
	rep := d.Dispatch(context.Background(), "   ", []targets.Entry{{ID: "a", Title: "A"}})
	if rep.Attempted != 0 || len(drv.log) != 0 {
		t.Fatalf("expected no-op, got %+v %v", rep, drv.log)
	}
}

func TestDispatchCancelled(t *testing.T) {
	drv := &fakeDriver{windows: []desktop.Window{{Title: "A"}, {Title: "B"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d, _ := newTestDispatcher(drv, Options{})
	rep := d.Dispatch(ctx, "x", []targets.Entry{{ID: "a", Title: "A"}, {ID: "b", Title: "B"}})
	if rep.Attempted != 0 || len(rep.Failed) != 2 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if !errors.Is(rep.Failed[0], context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", rep.Failed[0].Err)
	}
}

func TestResolve(t *testing.T) {
	win := desktop.Window{X: 100, Y: 50, W: 800, H: 600}
	tests := []struct {
		name   string
		e      targets.Entry
		w      desktop.Window
		wx, wy int
	}{
		{"absolute", targets.Entry{X: 7, Y: 9}, win, 7, 9},
		{"relative", targets.Entry{X: 7, Y: 9, RelX: ptr(0.5), RelY: ptr(0.25)}, win, 500, 200},
		{"relative corner", targets.Entry{RelX: ptr(1), RelY: ptr(1)}, win, 900, 650},
		{"zero size falls back", targets.Entry{X: 7, Y: 9, RelX: ptr(0.5), RelY: ptr(0.5)}, desktop.Window{X: 100}, 7, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := Resolve(tt.e, tt.w)
			if x != tt.wx || y != tt.wy {
				t.Fatalf("got %d,%d want %d,%d", x, y, tt.wx, tt.wy)
			}
		})
	}
}
