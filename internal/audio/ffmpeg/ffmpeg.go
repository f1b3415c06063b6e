// Package ffmpeg converts recorded WAV files into the upload codec.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"multibot/internal/config"
)

type codec struct {
	name    string
	bitrate bool
}

var codecs = map[string]codec{
	"opus":      {"libopus", true},
	"libopus":   {"libopus", true},
	"vorbis":    {"libvorbis", true},
	"libvorbis": {"libvorbis", true},
	"aac":       {"aac", true},
	"ac3":       {"ac3", true},
	"eac3":      {"eac3", true},
	"mp3":       {"libmp3lame", true},
	"mp2":       {"mp2", true},
	"amr":       {"libopencore_amrnb", true},
	"flac":      {"flac", false},
	"alac":      {"alac", false},
	"wavpack":   {"wavpack", false},
	"adpcm":     {"adpcm_ms", false},
	"pcm":       {"pcm_s16le", false},
}

var sampleFormats = map[int]string{8: "u8", 16: "s16", 24: "s24", 32: "s32"}

func lookup(key string) (codec, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	if c, ok := codecs[k]; ok {
		return c, true
	}
	if strings.HasPrefix(k, "pcm_") {
		return codec{name: k}, true
	}
	return codec{}, false
}

// Supported reports whether the CODECS value maps to an ffmpeg encoder.
func Supported(key string) bool {
	_, ok := lookup(key)
	return ok
}

// Args builds the ffmpeg argument list for converting in to out.
func Args(cfg config.Config, in, out string) ([]string, error) {
	c, ok := lookup(cfg.CODECS)
	if !ok {
		return nil, fmt.Errorf("unsupported codec: %s", cfg.CODECS)
	}
	channels := max(cfg.Channels, 1)
	rate := cfg.SAMPLING_RATE
	if rate <= 0 {
		rate = 16000
	}
	bitrate := cfg.BIT_RATE
	if bitrate <= 0 {
		bitrate = 128
	}

	args := []string{"-y", "-loglevel", "error", "-i", in,
		"-ac", strconv.Itoa(channels), "-ar", strconv.Itoa(rate), "-c:a", c.name}
	if !strings.HasPrefix(c.name, "pcm_") {
		if c.bitrate {
			args = append(args, "-b:a", fmt.Sprintf("%dk", bitrate))
		}
		if sf, ok := sampleFormats[cfg.SAMPLING_RATE_DEPTH]; ok {
			args = append(args, "-sample_fmt", sf)
		}
	}
	return append(args, out), nil
}

// Convert runs ffmpeg. The process is killed when ctx is cancelled.
func Convert(ctx context.Context, cfg config.Config, in, out string) error {
	args, err := Args(cfg, in, out)
	if err != nil {
		return err
	}
	if cfg.FFMPEG_DEBUG {
		slog.Debug("ffmpeg", "args", strings.Join(args, " "))
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Available reports whether an ffmpeg binary is on PATH.
func Available() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}
