//go:build darwin

package desktop

import (
	"fmt"

	"github.com/go-vgo/robotgo"
)

// handleArgs is empty: on macOS a Window.Handle holds a pid.
var handleArgs []int

var activeHandle = robotgo.GetPid

// listWindows falls back to one entry per process: robotgo exposes no
// per-window enumeration on macOS.
func listWindows() ([]Window, error) {
	procs, err := robotgo.Process()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	out := make([]Window, 0, len(procs))
	for _, p := range procs {
		out = append(out, Window{Handle: p.Pid, PID: p.Pid, Title: robotgo.GetTitle(p.Pid)})
	}
	return out, nil
}
