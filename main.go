package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"

	"multibot/internal/config"
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// options are the flags that are not config settings.
type options struct {
	configPath string
	logLevel   string
	envFile    string
	file       string
	output     string
	deliver    bool
	prefix     string
	title      string
	sendMethod string
	input      string
}

func usage(fs *pflag.FlagSet) func() {
	return func() {
		name := filepath.Base(os.Args[0])
		fmt.Fprintf(os.Stderr, `Usage: %s [flags] <command> [args]

Records speech, transcribes it and types the text into several chat windows.

Commands:
  run                     listen for hotkeys, record, transcribe and dispatch
  file                    transcribe --file, write the text, and dispatch with --deliver
  send <text...>          dispatch text (stdin when no text is given)
  capture [name]          capture one target, or --targets N targets named <prefix>1..N
  list                    list configured targets
  remove <name>           delete a target
  relay serve             run the relay server on --relay-addr
  relay send <text...>    submit text to the relay at --relay-url
  relay get               print the relay's current text
  relay watch             dispatch every text submitted to the relay

Without a config file and without flags, "run" writes a default config.json and exits.

Flags:
`, name)
		fs.PrintDefaults()
	}
}

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// realMain runs the CLI and returns the process exit code: 0 on success and 1
// on any error, flag errors included.
func realMain(argv []string) int {
	fs := pflag.NewFlagSet("multibot", pflag.ContinueOnError)
	var opts options
	fs.StringVarP(&opts.configPath, "config", "c", "config.json", "config JSON path")
	fs.StringVarP(&opts.logLevel, "log", "l", "info", "log level (debug|info|warn|error)")
	fs.StringVarP(&opts.envFile, "env", "e", ".env", "env file path")
	fs.StringVarP(&opts.file, "file", "f", "", "audio file for the file command")
	fs.StringVarP(&opts.output, "output", "o", "", "transcript output path for the file command")
	fs.BoolVar(&opts.deliver, "deliver", false, "file command: also dispatch the transcript")
	fs.StringVar(&opts.prefix, "prefix", "bot", "capture: name prefix for a multi-target session")
	fs.StringVar(&opts.title, "title", "", "capture: title pattern (default: the focused window's title)")
	fs.StringVar(&opts.sendMethod, "send-method", "", "capture: enter|ctrl+enter|shift+enter|click|none")
	fs.StringVar(&opts.input, "input", "", "capture: type|paste")
	fv := config.BindFlags(fs)
	fs.Usage = usage(fs)

	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}

	level, ok := logLevels[opts.logLevel]
	if !ok {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level})))

	if err := godotenv.Load(opts.envFile); err != nil {
		slog.Debug("no env file", "file", opts.envFile)
	}

	args := fs.Args()
	cmd := "run"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	cfg, created, err := loadConfig(opts.configPath, fv, cmd)
	if err != nil {
		slog.Error("config", "path", opts.configPath, "err", err)
		return 1
	}
	if created {
		slog.Info("default config created, edit it and re-run", "path", opts.configPath)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cmd, args, cfg, opts); err != nil {
		slog.Error(cmd+" failed", "err", err)
		return 1
	}
	return 0
}

// loadConfig applies the precedence flags > file > env > defaults. A missing
// file is created with defaults when the run command has no flags to go on.
func loadConfig(path string, fv *config.FlagValues, cmd string) (cfg config.Config, created bool, err error) {
	cfg, err = config.Load(path)
	switch {
	case err == nil:
	case errors.Is(err, config.ErrConfigMissing):
		if cmd == "run" && !fv.AnySet() {
			if err := config.SaveDefault(path); err != nil {
				return cfg, false, err
			}
			return cfg, true, nil
		}
		slog.Debug("no config file, using defaults", "path", path)
	default:
		return cfg, false, err
	}

	config.ApplyEnv(&cfg)
	config.ApplyFlags(&cfg, fv)
	if err := config.Validate(&cfg); err != nil {
		return cfg, false, fmt.Errorf("invalid config: %w", err)
	}
	config.InitCacheDir(&cfg)
	return cfg, false, nil
}
