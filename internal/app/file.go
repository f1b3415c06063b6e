package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"multibot/internal/config"
)

// RunFileMode transcribes an existing audio file. The text is written to
// outputPath (default: the input name with .txt in the working directory)
// and, when deliver is set, dispatched to the targets.
func (a *App) RunFileMode(ctx context.Context, inputPath, outputPath string, deliver bool) error {
	cleanupOldTempFiles(config.TempDir(&a.cfg))

	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("file %q: %w", inputPath, err)
	}
	text, err := a.transcribe(ctx, "", inputPath)
	if err != nil {
		a.notifier.Error("transcribe", err)
		return err
	}

	if outputPath == "" {
		base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
		outputPath = base + ".txt"
	}
	if err := os.WriteFile(outputPath, []byte(text), 0644); err != nil {
		return fmt.Errorf("write %s: %w", outputPath, err)
	}
	a.notifier.Notify("Transcript written to " + outputPath)

	if deliver {
		if _, err := a.Deliver(ctx, text); err != nil {
			return err
		}
	}
	return nil
}
