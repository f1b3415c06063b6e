// Package app wires recording, transcription and dispatch into the run modes
// the CLI exposes.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"multibot/internal/asr"
	"multibot/internal/audio/ffmpeg"
	"multibot/internal/config"
	"multibot/internal/desktop"
	"multibot/internal/dispatch"
	"multibot/internal/notify"
	"multibot/internal/targets"
)

// settle is the pause between focusing a window and clicking into it.
const settle = 150 * time.Millisecond

// Dispatcher delivers a text to targets.
type Dispatcher interface {
	Dispatch(ctx context.Context, text string, entries []targets.Entry) dispatch.Report
}

// Transcript is the latest recognized text. Each new value supersedes the
// previous one.
type Transcript struct {
	mu   sync.Mutex
	text string
	at   time.Time
}

// Set replaces the transcript and stamps it with the current time.
func (t *Transcript) Set(text string) {
	t.mu.Lock()
	t.text, t.at = text, time.Now()
	t.mu.Unlock()
}

// Get returns the text and when it was set. The time is zero before the first Set.
func (t *Transcript) Get() (string, time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.text, t.at
}

// App holds the state shared by every run mode.
type App struct {
	cfg         config.Config
	store       *targets.Store
	transcriber asr.Transcriber
	dispatcher  Dispatcher
	notifier    *notify.Notifier
	convert     func(ctx context.Context, cfg config.Config, in, out string) error
	meterOut    io.Writer

	Transcript Transcript
}

// New builds an App on top of the desktop driver and the configured
// transcription backend.
func New(cfg config.Config, store *targets.Store) (*App, error) {
	httpClient, err := asr.NewHTTPClient(cfg)
	if err != nil {
		return nil, err
	}
	tr, err := asr.New(cfg, httpClient)
	if err != nil {
		return nil, err
	}
	d := dispatch.New(desktop.New(), dispatch.Options{
		Delay:  time.Duration(cfg.DispatchDelayMs) * time.Millisecond,
		Settle: settle,
		Limit:  cfg.MaxTargets,
		Debug:  cfg.DISPATCH_DEBUG,
	})
	return &App{
		cfg:         cfg,
		store:       store,
		transcriber: tr,
		dispatcher:  d,
		notifier:    notify.New(cfg.Notification, cfg.BeepSound),
		convert:     ffmpeg.Convert,
		meterOut:    os.Stderr,
	}, nil
}

// Deliver sends text to every configured target and reports the outcome.
func (a *App) Deliver(ctx context.Context, text string) (dispatch.Report, error) {
	entries, err := a.store.Load()
	if err != nil {
		a.notifier.Error("load targets", err)
		return dispatch.Report{}, err
	}
	if len(entries) == 0 {
		a.notifier.Notify("No chat targets configured, run capture first")
		return dispatch.Report{}, nil
	}
	rep := a.dispatcher.Dispatch(ctx, text, entries)
	if rep.Attempted == 0 {
		return rep, nil
	}
	for _, f := range rep.Failed {
		slog.Warn("target failed", "target", f.ID, "err", f.Err)
	}
	a.notifier.Notify(rep.String())
	return rep, nil
}

// transcribe converts an audio file to the upload format, transcribes it and
// stores the result as the current transcript.
func (a *App) transcribe(ctx context.Context, wavPath, inPath string) (string, error) {
	outPath := tempOutputPath(config.TempDir(&a.cfg), config.ContainerExt(a.cfg.CONTAINER))
	if err := a.convert(ctx, a.cfg, inPath, outPath); err != nil {
		os.Remove(outPath)
		handleCache(a.cfg, wavPath, "", false, nil)
		return "", fmt.Errorf("convert: %w", err)
	}

	res, err := a.transcriber.Transcribe(ctx, outPath)
	handleCache(a.cfg, wavPath, outPath, err == nil, res.Raw)
	if err != nil {
		return "", describe(err)
	}
	if res.Text == "" {
		return "", errEmpty
	}
	a.Transcript.Set(res.Text)
	return res.Text, nil
}

var errEmpty = errors.New("empty transcription")

// describe adds a short classification in front of transcription errors.
func describe(err error) error {
	var netErr *asr.NetworkError
	var apiErr *asr.APIError
	switch {
	case errors.As(err, &apiErr):
		return fmt.Errorf("service rejected the request (%d): %w", apiErr.StatusCode, err)
	case errors.As(err, &netErr):
		return fmt.Errorf("service unreachable: %w", err)
	}
	return err
}
