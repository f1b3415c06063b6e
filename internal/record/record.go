// Package record captures microphone audio into a temporary WAV file.
package record

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"

	"multibot/internal/config"
)

// State represents recorder state.
type State int

const (
	StateIdle State = iota
	StateRecording
	StatePaused
	StateStopping
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	case StateCanceled:
		return "canceled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrNotRunning is returned by Stop, Cancel and TogglePause on an idle recorder.
var ErrNotRunning = errors.New("recorder not running")

// ErrOverflow is returned by a Source alongside a frame that is still valid:
// the device dropped input before it, but the buffer itself is intact.
var ErrOverflow = errors.New("input overflowed")

// Result is returned when a recording completes or is canceled.
type Result struct {
	WavPath  string
	Canceled bool
	Err      error
}

// Source delivers interleaved 16-bit frames.
type Source interface {
	Start() error
	Read() ([]int16, error)
	Close() error
}

// Recorder streams a Source into a WAV file and tracks the input level.
type Recorder struct {
	mu      sync.Mutex
	state   State
	cfg     config.Config
	tempDir string
	cancel  context.CancelFunc
	done    chan Result

	// level holds math.Float64bits of the last frame's RMS.
	level atomic.Uint64

	openSource func(cfg config.Config) (Source, error)
}

// New creates a recorder that reads the default microphone.
func New(cfg config.Config, tempDir string) *Recorder {
	return &Recorder{cfg: cfg, tempDir: tempDir, state: StateIdle, openSource: openPortAudio}
}

// Start begins recording.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateIdle {
		return fmt.Errorf("recorder is %s", r.state)
	}
	r.state = StateRecording
	r.done = make(chan Result, 1)
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.level.Store(0)

	go r.loop(loopCtx, r.tempPath())
	return nil
}

// Stop finishes the file and waits for it.
func (r *Recorder) Stop() (Result, error) {
	return r.end(StateStopping)
}

// Cancel stops and discards the file.
func (r *Recorder) Cancel() (Result, error) {
	return r.end(StateCanceled)
}

func (r *Recorder) end(next State) (Result, error) {
	r.mu.Lock()
	if r.state != StateRecording && r.state != StatePaused {
		r.mu.Unlock()
		return Result{}, ErrNotRunning
	}
	r.state = next
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	res := <-done
	return res, res.Err
}

// TogglePause toggles pause/resume.
func (r *Recorder) TogglePause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case StatePaused:
		r.state = StateRecording
	case StateRecording:
		r.state = StatePaused
		r.level.Store(0)
	default:
		return ErrNotRunning
	}
	return nil
}

// State returns the current recorder state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Level is the RMS of the last captured frame, in [0,1].
func (r *Recorder) Level() float64 {
	return math.Float64frombits(r.level.Load())
}

func (r *Recorder) loop(ctx context.Context, wavPath string) {
	if r.cfg.RECORD_DEBUG {
		slog.Debug("recording", "file", wavPath)
	}
	src, err := r.openSource(r.cfg)
	if err != nil {
		r.finish(Result{Err: err})
		return
	}
	if err := src.Start(); err != nil {
		src.Close()
		r.finish(Result{Err: fmt.Errorf("start stream: %w", err)})
		return
	}

	file, err := os.Create(wavPath)
	if err != nil {
		src.Close()
		r.finish(Result{Err: fmt.Errorf("create wav: %w", err)})
		return
	}
	enc := wav.NewEncoder(file, r.cfg.SAMPLING_RATE, 16, r.cfg.Channels, 1)

	werr := r.pump(ctx, src, enc)
	src.Close()
	cerr := enc.Close()
	file.Close()

	switch {
	case r.State() == StateCanceled:
		os.Remove(wavPath)
		r.finish(Result{Canceled: true})
	case werr != nil:
		os.Remove(wavPath)
		r.finish(Result{Err: werr})
	case cerr != nil:
		os.Remove(wavPath)
		r.finish(Result{Err: fmt.Errorf("wav close: %w", cerr)})
	default:
		r.finish(Result{WavPath: wavPath})
	}
}

// pump copies frames until ctx is done. Paused frames are read and dropped so
// the device buffer does not overflow.
func (r *Recorder) pump(ctx context.Context, src Source, enc *wav.Encoder) error {
	format := &audio.Format{NumChannels: r.cfg.Channels, SampleRate: r.cfg.SAMPLING_RATE}
	var ints []int
	for ctx.Err() == nil {
		frame, err := src.Read()
		if err != nil {
			if r.cfg.RECORD_DEBUG {
				slog.Debug("stream read", "err", err)
			}
			if !errors.Is(err, ErrOverflow) {
				continue
			}
		}
		if r.State() == StatePaused {
			continue
		}
		r.level.Store(math.Float64bits(RMS(frame)))

		if cap(ints) < len(frame) {
			ints = make([]int, len(frame))
		}
		ints = ints[:len(frame)]
		for i, v := range frame {
			ints[i] = int(v)
		}
		buf := &audio.IntBuffer{Format: format, Data: ints, SourceBitDepth: 16}
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("wav write: %w", err)
		}
	}
	return nil
}

func (r *Recorder) finish(res Result) {
	r.level.Store(0)
	r.mu.Lock()
	r.state = StateIdle
	r.cancel = nil
	r.mu.Unlock()
	r.done <- res
}

func (r *Recorder) tempPath() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	dir := r.tempDir
	if dir == "" {
		dir, _ = os.Getwd()
	}
	return filepath.Join(dir, fmt.Sprintf("RecordTemp_%s.wav", id))
}

// RMS returns the root mean square of a 16-bit frame scaled to [0,1].
func RMS(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var s float64
	for _, v := range frame {
		x := float64(v) / 32768
		s += x * x
	}
	return math.Sqrt(s / float64(len(frame)))
}
