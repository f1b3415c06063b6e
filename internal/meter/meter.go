// Package meter draws a live input-level bar on a terminal line.
package meter

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"
)

// RGB is a 24-bit color.
type RGB struct{ R, G, B uint8 }

var (
	low  = RGB{0x2e, 0xcc, 0x40}
	mid  = RGB{0xff, 0xdc, 0x00}
	high = RGB{0xff, 0x41, 0x36}
)

// Lerp interpolates each channel between a and b. t is clamped to [0,1].
func Lerp(a, b RGB, t float64) RGB {
	t = clamp(t)
	ch := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return RGB{ch(a.R, b.R), ch(a.G, b.G), ch(a.B, b.B)}
}

// Color maps a level in [0,1] onto green, yellow, red.
func Color(level float64) RGB {
	level = clamp(level)
	if level < 0.5 {
		return Lerp(low, mid, level*2)
	}
	return Lerp(mid, high, (level-0.5)*2)
}

// Scale boosts quiet speech so it fills a visible part of the bar. RMS of
// normal speech sits far below full scale.
func Scale(rms float64) float64 {
	return clamp(math.Sqrt(clamp(rms) * 4))
}

// Bar renders level as width cells, the filled part colored with ANSI
// truecolor escapes.
func Bar(level float64, width int) string {
	if width <= 0 {
		return ""
	}
	level = clamp(level)
	n := int(math.Round(level * float64(width)))
	c := Color(level)
	var b strings.Builder
	b.WriteByte('[')
	if n > 0 {
		fmt.Fprintf(&b, "\x1b[38;2;%d;%d;%dm%s\x1b[0m", c.R, c.G, c.B, strings.Repeat("█", n))
	}
	b.WriteString(strings.Repeat(" ", width-n))
	b.WriteByte(']')
	return b.String()
}

// Run redraws the bar on w every interval until ctx is done, then clears the
// line. A stop is observed at the next tick at the latest.
func Run(ctx context.Context, interval time.Duration, level func() float64, w io.Writer) {
	const width = 30
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(w, "\r%s\r", strings.Repeat(" ", width+2))
			return
		case <-t.C:
			fmt.Fprintf(w, "\r%s", Bar(Scale(level()), width))
		}
	}
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
