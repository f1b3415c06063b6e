// Package notify surfaces status to the user as desktop notifications and an
// optional audible cue.
package notify

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/gen2brain/beeep"
)

const appName = "multibot"

// speakerRate is the fixed output rate; cues are resampled to it.
const speakerRate = beep.SampleRate(44100)

// Notifier is safe for concurrent use.
type Notifier struct {
	enabled bool
	sound   string

	mu          sync.Mutex
	speakerInit bool

	notify func(title, message string) error
}

// New returns a Notifier. Desktop notifications are sent only when enabled;
// sound is the path of an MP3 cue, empty for none.
func New(enabled bool, sound string) *Notifier {
	return &Notifier{
		enabled: enabled,
		sound:   sound,
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// Notify logs message and shows it as a desktop notification.
func (n *Notifier) Notify(message string) {
	slog.Info(message)
	n.show(appName, message)
}

// Error logs err and shows it as a desktop notification.
func (n *Notifier) Error(what string, err error) {
	slog.Error(what, "err", err)
	n.show(appName+" error", fmt.Sprintf("%s: %v", what, err))
}

func (n *Notifier) show(title, message string) {
	if !n.enabled {
		return
	}
	if err := n.notify(title, message); err != nil {
		slog.Debug("desktop notification failed", "err", err)
	}
}

// Cue plays the configured sound in the background. Without a sound file it
// does nothing.
func (n *Notifier) Cue() {
	if n.sound == "" {
		return
	}
	go func() {
		if err := n.play(); err != nil {
			slog.Warn("cue failed", "file", n.sound, "err", err)
		}
	}()
}

func (n *Notifier) play() error {
	f, err := os.Open(n.sound)
	if err != nil {
		return err
	}
	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()

	n.mu.Lock()
	if !n.speakerInit {
		if err := speaker.Init(speakerRate, speakerRate.N(time.Second/10)); err != nil {
			n.mu.Unlock()
			return fmt.Errorf("speaker init: %w", err)
		}
		n.speakerInit = true
	}
	n.mu.Unlock()

	var s beep.Streamer = streamer
	if format.SampleRate != speakerRate {
		s = beep.Resample(4, format.SampleRate, speakerRate, streamer)
	}
	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() { close(done) })))
	<-done
	return nil
}
