//go:build !darwin && !windows

package desktop

import (
	"fmt"
	"sync"

	"github.com/go-vgo/robotgo"
	"github.com/robotn/xgbutil"
	"github.com/robotn/xgbutil/ewmh"
)

// handleArgs makes robotgo treat the first argument as an X window id.
var handleArgs = []int{1}

var activeHandle = robotgo.GetHandle

var (
	xOnce sync.Once
	xConn *xgbutil.XUtil
	xErr  error
)

// listWindows reads _NET_CLIENT_LIST, which holds one id per managed window.
func listWindows() ([]Window, error) {
	xOnce.Do(func() { xConn, xErr = xgbutil.NewConn() })
	if xErr != nil {
		return nil, fmt.Errorf("connect to X: %w", xErr)
	}
	ids, err := ewmh.ClientListGet(xConn)
	if err != nil {
		return nil, fmt.Errorf("client list: %w", err)
	}
	out := make([]Window, 0, len(ids))
	for _, id := range ids {
		title, err := ewmh.WmNameGet(xConn, id)
		if err != nil || title == "" {
			title = robotgo.GetTitle(int(id), 1)
		}
		w := Window{Handle: int(id), Title: title}
		if pid, err := ewmh.WmPidGet(xConn, id); err == nil {
			w.PID = int(pid)
		}
		out = append(out, w)
	}
	return out, nil
}
