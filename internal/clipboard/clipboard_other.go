//go:build !windows

package clipboard

import (
	"runtime"

	"github.com/go-vgo/robotgo"
)

func sendPaste() error {
	mod := "ctrl"
	if runtime.GOOS == "darwin" {
		mod = "cmd"
	}
	return robotgo.KeyTap("v", mod)
}
