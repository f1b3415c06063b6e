package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"multibot/internal/config"
)

const tempPrefix = "RecordTemp_"

// cleanupOldTempFiles removes leftovers of earlier runs.
func cleanupOldTempFiles(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Warn("cleanup: read dir failed", "dir", dir, "err", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if err := os.Remove(p); err != nil {
			slog.Warn("cleanup: remove failed", "file", p, "err", err)
			continue
		}
		slog.Debug("cleanup: removed", "file", p)
	}
}

// handleCache keeps the audio and the reply under CACHE_DIR when KEEP_CACHE is
// set, and deletes the temporary files otherwise. The reply is kept only for a
// successful upload.
func handleCache(cfg config.Config, wavPath, outPath string, uploadOk bool, reply []byte) {
	if !cfg.KeepCache || cfg.CacheDir == "" {
		for _, p := range []string{wavPath, outPath} {
			if p != "" {
				os.Remove(p)
			}
		}
		return
	}

	base := "audio-" + time.Now().Format("2006-01-02-15.04.05")
	// The recording gets a -raw suffix so a converted file with the same
	// extension does not replace it.
	for _, f := range []struct{ path, suffix string }{{wavPath, "-raw"}, {outPath, ""}} {
		p := f.path
		if p == "" || (f.suffix == "" && p == wavPath) {
			continue
		}
		dst := filepath.Join(cfg.CacheDir, base+f.suffix+filepath.Ext(p))
		if err := os.Rename(p, dst); err != nil {
			slog.Warn("cache: rename failed", "file", dst, "err", err)
			os.Remove(p)
		}
	}
	if uploadOk && len(reply) > 0 {
		dst := filepath.Join(cfg.CacheDir, base+".json")
		if err := os.WriteFile(dst, reply, 0644); err != nil {
			slog.Warn("cache: write reply failed", "file", dst, "err", err)
		}
	}
}

func tempOutputPath(dir, ext string) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	if dir == "" {
		dir, _ = os.Getwd()
	}
	return filepath.Join(dir, fmt.Sprintf("%s%s.%s", tempPrefix, id, ext))
}
