package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"multibot/internal/config"
	"multibot/internal/hotkey"
	"multibot/internal/meter"
	"multibot/internal/record"
)

const meterInterval = 50 * time.Millisecond

// RunVoiceMode listens for the hotkeys until ctx is done. The start chord
// toggles recording; a finished recording is transcribed and dispatched.
func (a *App) RunVoiceMode(ctx context.Context) error {
	tempDir := config.TempDir(&a.cfg)
	cleanupOldTempFiles(tempDir)

	rec := record.New(a.cfg, tempDir)
	v := &voice{app: a, rec: rec}
	defer v.shutdown()

	slog.Info("ready", "start", a.cfg.StartKey, "pause", a.cfg.PauseKey, "cancel", a.cfg.CancelKey)
	err := hotkey.Listen(ctx, a.cfg.StartKey, a.cfg.PauseKey, a.cfg.CancelKey, func(act hotkey.Action) {
		v.handle(ctx, act)
	}, a.cfg.HOTKEY_DEBUG)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// voice serializes hotkey actions against one recorder.
type voice struct {
	app *App
	rec *record.Recorder

	mu        sync.Mutex
	stopMeter context.CancelFunc
}

func (v *voice) handle(ctx context.Context, act hotkey.Action) {
	v.mu.Lock()
	defer v.mu.Unlock()
	a := v.app

	switch act {
	case hotkey.Start:
		if v.rec.State() == record.StateIdle {
			v.start(ctx)
			return
		}
		v.endMeter()
		res, err := v.rec.Stop()
		if err != nil {
			a.notifier.Error("recording", err)
			return
		}
		a.notifier.Cue()
		if res.Canceled {
			return
		}
		a.notifier.Notify("Recording finished, transcribing")
		text, err := a.transcribe(ctx, res.WavPath, res.WavPath)
		if err != nil {
			a.notifier.Error("transcribe", err)
			return
		}
		if _, err := a.Deliver(ctx, text); err != nil {
			slog.Debug("deliver failed", "err", err)
		}

	case hotkey.Pause:
		if err := v.rec.TogglePause(); err != nil {
			if a.cfg.HOTKEY_DEBUG {
				slog.Debug("not recording, cannot pause")
			}
			return
		}
		slog.Info("recording", "state", v.rec.State())

	case hotkey.Cancel:
		if v.rec.State() == record.StateIdle {
			if a.cfg.HOTKEY_DEBUG {
				slog.Debug("not recording, nothing to cancel")
			}
			return
		}
		v.endMeter()
		if _, err := v.rec.Cancel(); err != nil {
			slog.Warn("cancel failed", "err", err)
		}
		a.notifier.Notify("Recording canceled")
	}
}

func (v *voice) start(ctx context.Context) {
	a := v.app
	if err := v.rec.Start(ctx); err != nil {
		a.notifier.Error("recording", err)
		return
	}
	a.notifier.Cue()
	a.notifier.Notify("Recording started")
	if a.cfg.LevelMeter {
		mctx, cancel := context.WithCancel(ctx)
		v.stopMeter = cancel
		go meter.Run(mctx, meterInterval, v.rec.Level, a.meterOut)
	}
}

func (v *voice) endMeter() {
	if v.stopMeter != nil {
		v.stopMeter()
		v.stopMeter = nil
	}
}

func (v *voice) shutdown() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.endMeter()
	if s := v.rec.State(); s == record.StateRecording || s == record.StatePaused {
		v.rec.Cancel()
	}
}
