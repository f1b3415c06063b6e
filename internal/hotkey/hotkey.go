// Package hotkey binds the start, pause and cancel chords to callbacks using a
// global keyboard hook.
package hotkey

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	hook "github.com/robotn/gohook"
)

// Action identifies which chord fired.
type Action int

const (
	Start Action = iota + 1
	Pause
	Cancel
)

func (a Action) String() string {
	switch a {
	case Start:
		return "start"
	case Pause:
		return "pause"
	case Cancel:
		return "cancel"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

var aliases = map[string]string{
	"control": "ctrl",
	"option":  "alt",
	"escape":  "esc",
	"return":  "enter",
	"command": "cmd",
	"win":     "cmd",
	"super":   "cmd",
}

var modifiers = map[string]bool{"ctrl": true, "alt": true, "shift": true, "cmd": true}

// Parse turns "Ctrl+Alt+Q" into the hook key list ["ctrl" "alt" "q"]. A chord
// has at most one non-modifier key.
func Parse(spec string) ([]string, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, fmt.Errorf("empty hotkey")
	}
	var keys []string
	seen := map[string]bool{}
	plain := 0
	for _, part := range strings.Split(spec, "+") {
		k := strings.ToLower(strings.TrimSpace(part))
		if k == "" {
			return nil, fmt.Errorf("invalid hotkey %q", spec)
		}
		if a, ok := aliases[k]; ok {
			k = a
		}
		if seen[k] {
			return nil, fmt.Errorf("duplicate key %q in %q", k, spec)
		}
		seen[k] = true
		if !modifiers[k] {
			plain++
		}
		keys = append(keys, k)
	}
	if plain > 1 {
		return nil, fmt.Errorf("hotkey %q has more than one non-modifier key", spec)
	}
	return keys, nil
}

// Bindings maps each action to its parsed chord. An empty chord leaves the
// action unbound.
func Bindings(start, pause, cancel string) (map[Action][]string, error) {
	out := make(map[Action][]string, 3)
	for a, spec := range map[Action]string{Start: start, Pause: pause, Cancel: cancel} {
		if strings.TrimSpace(spec) == "" {
			continue
		}
		keys, err := Parse(spec)
		if err != nil {
			return nil, fmt.Errorf("%s hotkey: %w", a, err)
		}
		out[a] = keys
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no hotkeys configured")
	}
	return out, nil
}

// queueSize bounds how many chord presses wait behind a running handler.
const queueSize = 16

// Listen registers the chords and blocks until ctx is done. The hook callback
// only enqueues; handler runs on a separate goroutine one action at a time, so
// a slow handler never stalls the OS hook thread.
func Listen(ctx context.Context, start, pause, cancel string, handler func(Action), debug bool) error {
	binds, err := Bindings(start, pause, cancel)
	if err != nil {
		return err
	}
	q := newQueue(queueSize)
	go q.run(handler)
	defer q.close()

	for a, keys := range binds {
		if debug {
			slog.Debug("hotkey registered", "action", a, "keys", strings.Join(keys, "+"))
		}
		hook.Register(hook.KeyDown, keys, func(hook.Event) {
			if debug {
				slog.Debug("hotkey fired", "action", a)
			}
			q.push(a)
		})
	}

	s := hook.Start()
	done := hook.Process(s)
	select {
	case <-ctx.Done():
		hook.End()
		<-done
		return ctx.Err()
	case <-done:
		return nil
	}
}

// queue hands actions from the hook goroutine to a single worker.
type queue struct {
	ch   chan Action
	quit chan struct{}
	once sync.Once
}

func newQueue(size int) *queue {
	return &queue{ch: make(chan Action, size), quit: make(chan struct{})}
}

// push never blocks. A press arriving while the queue is full is dropped.
func (q *queue) push(a Action) bool {
	select {
	case <-q.quit:
		return false
	default:
	}
	select {
	case q.ch <- a:
		return true
	default:
		slog.Warn("hotkey dropped, handler busy", "action", a)
		return false
	}
}

func (q *queue) run(handler func(Action)) {
	for {
		select {
		case <-q.quit:
			return
		case a := <-q.ch:
			handler(a)
		}
	}
}

func (q *queue) close() {
	q.once.Do(func() { close(q.quit) })
}
