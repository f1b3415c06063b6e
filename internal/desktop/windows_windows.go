//go:build windows

package desktop

import (
	"unsafe"

	"github.com/go-vgo/robotgo"
	"golang.org/x/sys/windows"
)

// handleArgs makes robotgo treat the first argument as an HWND.
var handleArgs = []int{1}

var activeHandle = robotgo.GetHandle

// listWindows enumerates visible top-level windows in z-order.
func listWindows() ([]Window, error) {
	var out []Window
	cb := windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		if !windows.IsWindowVisible(hwnd) {
			return 1
		}
		w := Window{Handle: int(hwnd), Title: robotgo.GetTitle(int(hwnd), 1)}
		var pid uint32
		if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err == nil {
			w.PID = int(pid)
		}
		out = append(out, w)
		return 1
	})
	if err := windows.EnumWindows(cb, unsafe.Pointer(nil)); err != nil {
		return nil, err
	}
	return out, nil
}
