package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"multibot/internal/app"
	"multibot/internal/audio/ffmpeg"
	"multibot/internal/capture"
	"multibot/internal/config"
	"multibot/internal/desktop"
	"multibot/internal/relay"
	"multibot/internal/targets"
)

func run(ctx context.Context, cmd string, args []string, cfg config.Config, opts options) error {
	store := targets.NewStore(opts.configPath)

	switch cmd {
	case "run":
		if err := needFFmpeg(); err != nil {
			return err
		}
		checkScreens(cfg)
		a, err := app.New(cfg, store)
		if err != nil {
			return err
		}
		return a.RunVoiceMode(ctx)

	case "file":
		if opts.file == "" {
			return errors.New("--file is required")
		}
		if err := needFFmpeg(); err != nil {
			return err
		}
		a, err := app.New(cfg, store)
		if err != nil {
			return err
		}
		return a.RunFileMode(ctx, opts.file, opts.output, opts.deliver)

	case "send":
		text, err := textArg(args, os.Stdin)
		if err != nil {
			return err
		}
		checkScreens(cfg)
		a, err := app.New(cfg, store)
		if err != nil {
			return err
		}
		rep, err := a.Deliver(ctx, text)
		if err != nil {
			return err
		}
		fmt.Println(rep)
		if rep.Attempted > 0 && len(rep.Succeeded) == 0 {
			return errors.New("no target received the text")
		}
		return nil

	case "capture":
		return captureTargets(cfg, store, args, opts)

	case "list":
		return listTargets(store, os.Stdout)

	case "remove":
		if len(args) != 1 {
			return errors.New("usage: remove <name>")
		}
		if err := store.Delete(args[0]); err != nil {
			return err
		}
		slog.Info("removed", "target", args[0])
		return nil

	case "relay":
		return runRelay(ctx, cfg, store, args)

	default:
		return fmt.Errorf("unknown command %q (see --help)", cmd)
	}
}

func captureTargets(cfg config.Config, store *targets.Store, args []string, opts options) error {
	checkScreens(cfg)
	c := capture.New(desktop.New(), store, capture.LinePrompt(os.Stdin, os.Stderr))
	req := capture.Request{
		Title: opts.title,
		Send:  targets.SendMethod(opts.sendMethod),
		Input: targets.InputMethod(opts.input),
	}
	sample := targets.Entry{ID: "sample", Title: "sample", Send: req.Send, Input: req.Input}
	if err := sample.Validate(); err != nil {
		return err
	}

	if len(args) > 0 {
		req.ID = args[0]
		_, err := c.Capture(req)
		return err
	}
	n := cfg.MaxTargets
	if n <= 0 {
		n = 1
	}
	got, err := c.Session(n, opts.prefix, req)
	slog.Info("capture finished", "captured", len(got), "requested", n)
	return err
}

func listTargets(store *targets.Store, w io.Writer) error {
	entries, err := store.Load()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTITLE\tX,Y\tRELATIVE\tSEND\tINPUT\tDELAY")
	for _, e := range entries {
		rel := "-"
		if e.HasRelative() {
			rel = fmt.Sprintf("%.3f,%.3f", *e.RelX, *e.RelY)
		}
		delay := "default"
		if e.DelayMs > 0 {
			delay = (time.Duration(e.DelayMs) * time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d,%d\t%s\t%s\t%s\t%s\n",
			e.ID, e.Title, e.X, e.Y, rel, e.SendMethodOrDefault(), e.InputMethodOrDefault(), delay)
	}
	return tw.Flush()
}

func runRelay(ctx context.Context, cfg config.Config, store *targets.Store, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: relay serve|send|get|watch")
	}
	sub, args := args[0], args[1:]
	switch sub {
	case "serve":
		return serveRelay(ctx, cfg.RelayAddr)
	case "send":
		text, err := textArg(args, os.Stdin)
		if err != nil {
			return err
		}
		q, err := relay.NewClient(cfg.RelayURL).Send(ctx, text)
		if err != nil {
			return err
		}
		slog.Info("relayed", "query", q)
		return nil
	case "get":
		q, ok, err := relay.NewClient(cfg.RelayURL).Get(ctx)
		if err != nil {
			return err
		}
		if !ok {
			slog.Info("relay is empty")
			return nil
		}
		fmt.Println(q.Query)
		return nil
	case "watch":
		a, err := app.New(cfg, store)
		if err != nil {
			return err
		}
		return a.WatchRelay(ctx)
	default:
		return fmt.Errorf("unknown relay command %q", sub)
	}
}

func serveRelay(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           relay.NewServer().Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	slog.Info("relay listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("relay stopped")
	return nil
}

// textArg joins args, or reads r when there are none.
func textArg(args []string, r io.Reader) (string, error) {
	text := strings.Join(args, " ")
	if len(args) == 0 {
		b, err := io.ReadAll(bufio.NewReader(r))
		if err != nil {
			return "", err
		}
		text = string(b)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("no text given")
	}
	return text, nil
}

func needFFmpeg() error {
	if !ffmpeg.Available() {
		return errors.New("ffmpeg not found on PATH")
	}
	return nil
}

// checkScreens warns when the attached displays differ from the layout the
// coordinates were captured on.
func checkScreens(cfg config.Config) {
	if cfg.ScreenCount <= 0 {
		return
	}
	if n := desktop.New().Displays(); n != cfg.ScreenCount {
		slog.Warn("display count differs from SCREEN_COUNT, stored coordinates may be off",
			"displays", n, "expected", cfg.ScreenCount)
	}
}
