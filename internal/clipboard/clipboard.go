// Package clipboard pastes text into the focused window through the system
// clipboard, restoring the previous clipboard contents afterwards.
package clipboard

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
)

const (
	settleDelay  = 80 * time.Millisecond
	restoreDelay = 120 * time.Millisecond
)

// PasteText writes text to the clipboard, sends the paste chord and restores
// the clipboard.
func PasteText(text string) error {
	orig, _ := clipboard.ReadAll()
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard write: %w", err)
	}
	time.Sleep(settleDelay)

	if err := sendPaste(); err != nil {
		return fmt.Errorf("paste chord: %w", err)
	}
	time.Sleep(restoreDelay)
	_ = clipboard.WriteAll(orig)
	return nil
}
