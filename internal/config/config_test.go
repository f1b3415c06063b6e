package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, ErrConfigMissing) {
		t.Fatalf("expected ErrConfigMissing, got %v", err)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"API_ENDPOINT": `), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errors.Is(err, ErrConfigMalformed) {
		t.Fatalf("expected ErrConfigMalformed, got %v", err)
	}
}

func TestLoadKeepsDefaultsAndIgnoresChatbots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	doc := `{
  "API_ENDPOINT": "https://stt.example/v1/audio/transcriptions",
  "DISPATCH_DELAY_MS": 250,
  "chatbots": {"a": {"title": "A", "x": 1, "y": 2}}
}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIEndpoint != "https://stt.example/v1/audio/transcriptions" {
		t.Fatalf("unexpected endpoint %q", cfg.APIEndpoint)
	}
	if cfg.DispatchDelayMs != 250 {
		t.Fatalf("expected delay 250, got %d", cfg.DispatchDelayMs)
	}
	if cfg.TEXTPath != "text" || cfg.SAMPLING_RATE != 16000 {
		t.Fatalf("defaults not kept: %+v", cfg)
	}
}

func TestSaveDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := SaveDefault(path); err != nil {
		t.Fatalf("SaveDefault failed: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := Validate(&cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestApplyFlagsOverridesOnlySetValues(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fv := BindFlags(fs)
	if err := fs.Parse([]string{"--targets", "4", "--notification", "--backend=openai"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !fv.AnySet() {
		t.Fatalf("expected AnySet")
	}

	cfg := DefaultConfig()
	cfg.Model = "whisper-1"
	ApplyFlags(&cfg, fv)

	if cfg.MaxTargets != 4 {
		t.Fatalf("expected 4 targets, got %d", cfg.MaxTargets)
	}
	if !cfg.Notification {
		t.Fatalf("expected notification enabled")
	}
	if cfg.Backend != "openai" {
		t.Fatalf("expected openai backend, got %s", cfg.Backend)
	}
	if cfg.Model != "whisper-1" {
		t.Fatalf("unset flag overrode model: %s", cfg.Model)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"default", func(*Config) {}, true},
		{"channels", func(c *Config) { c.Channels = 0 }, false},
		{"depth", func(c *Config) { c.SAMPLING_RATE_DEPTH = 12 }, false},
		{"backend", func(c *Config) { c.Backend = "grpc" }, false},
		{"delay", func(c *Config) { c.DispatchDelayMs = -1 }, false},
		{"screens", func(c *Config) { c.ScreenCount = 0 }, false},
		{"container", func(c *Config) { c.CONTAINER = "avi" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := Validate(&cfg)
			if (err == nil) != tt.ok {
				t.Fatalf("ok=%v, err=%v", tt.ok, err)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("STT_TOKEN", "")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	cfg := DefaultConfig()
	ApplyEnv(&cfg)
	if cfg.Token != "sk-env" {
		t.Fatalf("expected env token, got %q", cfg.Token)
	}

	cfg.Token = "from-file"
	ApplyEnv(&cfg)
	if cfg.Token != "from-file" {
		t.Fatalf("env overrode explicit token")
	}
}
