package capture

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"multibot/internal/desktop"
	"multibot/internal/targets"
)

type fakeDesk struct {
	win    desktop.Window
	err    error
	px, py int
}

func (f *fakeDesk) ActiveWindow() (desktop.Window, error) { return f.win, f.err }
func (f *fakeDesk) Pointer() (int, int)                   { return f.px, f.py }

func ok(string) error { return nil }

func TestNormalizeInsideIsUnit(t *testing.T) {
	w := desktop.Window{X: 100, Y: 200, W: 640, H: 480}
	for px := w.X + 1; px < w.X+w.W; px += 37 {
		for py := w.Y + 1; py < w.Y+w.H; py += 29 {
			rx, ry, err := Normalize(px, py, w)
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if rx < 0 || rx > 1 || ry < 0 || ry > 1 {
				t.Fatalf("(%d,%d) -> (%v,%v) outside unit square", px, py, rx, ry)
			}
		}
	}
}

func TestNormalizeZeroSize(t *testing.T) {
	for _, w := range []desktop.Window{{W: 0, H: 10}, {W: 10, H: 0}, {}} {
		if _, _, err := Normalize(5, 5, w); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable for %+v, got %v", w, err)
		}
	}
}

func TestCaptureWritesEntry(t *testing.T) {
	store := targets.NewStore(filepath.Join(t.TempDir(), "config.json"))
	desk := &fakeDesk{win: desktop.Window{Title: "ChatGPT - Chrome", X: 0, Y: 0, W: 1000, H: 500}, px: 250, py: 400}
	c := New(desk, store, ok)

	e, err := c.Capture(Request{ID: "gpt", Send: targets.SendCtrlEnter})
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if e.Title != "ChatGPT - Chrome" || e.X != 250 || e.Y != 400 {
		t.Fatalf("unexpected entry %+v", e)
	}
	if !e.HasRelative() || *e.RelX != 0.25 || *e.RelY != 0.8 {
		t.Fatalf("unexpected relative %+v", e)
	}

	got, err := store.Get("gpt")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.SendMethodOrDefault() != targets.SendCtrlEnter || *got.RelX != 0.25 {
		t.Fatalf("stored entry differs: %+v", got)
	}
}

func TestCaptureRepeatedNameOverwrites(t *testing.T) {
	store := targets.NewStore(filepath.Join(t.TempDir(), "config.json"))
	desk := &fakeDesk{win: desktop.Window{Title: "Bot", W: 100, H: 100}}
	c := New(desk, store, ok)

	for i := 0; i < 3; i++ {
		desk.px, desk.py = 10*i, 10*i
		if _, err := c.Capture(Request{ID: "bot"}); err != nil {
			t.Fatalf("Capture %d failed: %v", i, err)
		}
	}
	entries, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 1 || entries[0].X != 20 {
		t.Fatalf("expected single last-written entry, got %+v", entries)
	}
}

func TestCaptureUnavailable(t *testing.T) {
	tests := []struct {
		name string
		desk *fakeDesk
	}{
		{"no window", &fakeDesk{err: desktop.ErrNoWindow}},
		{"untitled", &fakeDesk{win: desktop.Window{W: 10, H: 10}}},
		{"zero size", &fakeDesk{win: desktop.Window{Title: "X"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := targets.NewStore(filepath.Join(t.TempDir(), "config.json"))
			c := New(tt.desk, store, ok)
			if _, err := c.Capture(Request{ID: "a"}); !errors.Is(err, ErrUnavailable) {
				t.Fatalf("expected ErrUnavailable, got %v", err)
			}
		})
	}
}

func TestCaptureOutsideWindowKeepsAbsolute(t *testing.T) {
	store := targets.NewStore(filepath.Join(t.TempDir(), "config.json"))
	desk := &fakeDesk{win: desktop.Window{Title: "Bot", X: 100, Y: 100, W: 100, H: 100}, px: 5, py: 5}
	e, err := New(desk, store, ok).Capture(Request{ID: "a"})
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if e.HasRelative() {
		t.Fatalf("expected no relative coordinate, got %+v", e)
	}
}

func TestSession(t *testing.T) {
	store := targets.NewStore(filepath.Join(t.TempDir(), "config.json"))
	desk := &fakeDesk{win: desktop.Window{Title: "Bot", W: 100, H: 100}, px: 1, py: 1}
	c := New(desk, store, ok)

	got, err := c.Session(3, "bot", Request{DelayMs: 300})
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if len(got) != 3 || got[2].ID != "bot3" || got[0].DelayMs != 300 {
		t.Fatalf("unexpected session result %+v", got)
	}
}

func TestLinePrompt(t *testing.T) {
	var out bytes.Buffer
	confirm := LinePrompt(strings.NewReader("\n"), &out)
	if err := confirm("Ready"); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if !strings.Contains(out.String(), "Ready") {
		t.Fatalf("prompt not written: %q", out.String())
	}
	if err := confirm("Again"); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}
