package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// FlagValues holds parsed flags with explicit set tracking.
type FlagValues struct {
	APIEndpoint       string
	APIEndpointSet    bool
	Token             string
	TokenSet          bool
	Model             string
	ModelSet          bool
	Language          string
	LanguageSet       bool
	Prompt            string
	PromptSet         bool
	TEXTPath          string
	TEXTPathSet       bool
	ExtraConfig       string
	ExtraConfigSet    bool
	Backend           string
	BackendSet        bool
	Proxy             string
	ProxySet          bool
	RequestTimeout    int
	RequestTimeoutSet bool
	EnableHTTP2       bool
	EnableHTTP2Set    bool
	VerifySSL         bool
	VerifySSLSet      bool

	CODECS                 string
	CODECSSet              bool
	CONTAINER              string
	CONTAINERSet           bool
	Channels               int
	ChannelsSet            bool
	SAMPLING_RATE          int
	SAMPLING_RATESet       bool
	SAMPLING_RATE_DEPTH    int
	SAMPLING_RATE_DEPTHSet bool
	BIT_RATE               int
	BIT_RATESet            bool

	StartKey     string
	StartKeySet  bool
	PauseKey     string
	PauseKeySet  bool
	CancelKey    string
	CancelKeySet bool

	CacheDir        string
	CacheDirSet     bool
	KeepCache       bool
	KeepCacheSet    bool
	Notification    bool
	NotificationSet bool
	BeepSound       string
	BeepSoundSet    bool
	LevelMeter      bool
	LevelMeterSet   bool

	DispatchDelayMs    int
	DispatchDelayMsSet bool
	MaxTargets         int
	MaxTargetsSet      bool
	ScreenCount        int
	ScreenCountSet     bool

	RelayAddr    string
	RelayAddrSet bool
	RelayURL     string
	RelayURLSet  bool

	FFMPEG_DEBUG      bool
	FFMPEG_DEBUGSet   bool
	RECORD_DEBUG      bool
	RECORD_DEBUGSet   bool
	HOTKEY_DEBUG      bool
	HOTKEY_DEBUGSet   bool
	UPLOAD_DEBUG      bool
	UPLOAD_DEBUGSet   bool
	DISPATCH_DEBUG    bool
	DISPATCH_DEBUGSet bool
}

type stringFlag struct {
	target *string
	set    *bool
}

func (s *stringFlag) String() string {
	if s == nil || s.target == nil {
		return ""
	}
	return *s.target
}

func (s *stringFlag) Set(v string) error {
	if s.target != nil {
		*s.target = v
	}
	if s.set != nil {
		*s.set = true
	}
	return nil
}

func (s *stringFlag) Type() string { return "string" }

type intFlag struct {
	target *int
	set    *bool
}

func (i *intFlag) String() string {
	if i == nil || i.target == nil {
		return ""
	}
	return strconv.Itoa(*i.target)
}

func (i *intFlag) Set(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	if i.target != nil {
		*i.target = n
	}
	if i.set != nil {
		*i.set = true
	}
	return nil
}

func (i *intFlag) Type() string { return "int" }

type boolFlag struct {
	target *bool
	set    *bool
}

func (b *boolFlag) String() string {
	if b == nil || b.target == nil {
		return ""
	}
	return strconv.FormatBool(*b.target)
}

// ParseBool accepts the usual true/false spellings plus yes/no and y/n.
func ParseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean: %s", v)
}

func (b *boolFlag) Set(v string) error {
	n, err := ParseBool(v)
	if err != nil {
		return err
	}
	if b.target != nil {
		*b.target = n
	}
	if b.set != nil {
		*b.set = true
	}
	return nil
}

func (b *boolFlag) Type() string { return "bool" }

func boolVar(fs *pflag.FlagSet, target, set *bool, name, usage string) {
	fs.Var(&boolFlag{target, set}, name, usage)
	fs.Lookup(name).NoOptDefVal = "true"
}

// BindFlags registers all config flags and returns the populated FlagValues.
func BindFlags(fs *pflag.FlagSet) *FlagValues {
	fv := &FlagValues{}

	fs.Var(&stringFlag{&fv.APIEndpoint, &fv.APIEndpointSet}, "api-endpoint", "speech-to-text endpoint URL")
	fs.Var(&stringFlag{&fv.Token, &fv.TokenSet}, "token", "authorization token")
	fs.Var(&stringFlag{&fv.Model, &fv.ModelSet}, "model", "transcription model")
	fs.Var(&stringFlag{&fv.Language, &fv.LanguageSet}, "language", "transcription language")
	fs.Var(&stringFlag{&fv.Prompt, &fv.PromptSet}, "prompt", "transcription prompt")
	fs.Var(&stringFlag{&fv.TEXTPath, &fv.TEXTPathSet}, "text-path", "JSON path to extract text")
	fs.Var(&stringFlag{&fv.ExtraConfig, &fv.ExtraConfigSet}, "extra-config", "extra JSON fields merged into the upload form")
	fs.Var(&stringFlag{&fv.Backend, &fv.BackendSet}, "backend", "transcription backend (http|openai)")
	fs.Var(&stringFlag{&fv.Proxy, &fv.ProxySet}, "proxy", "SOCKS5 proxy address for transcription requests")
	fs.Var(&intFlag{&fv.RequestTimeout, &fv.RequestTimeoutSet}, "request-timeout", "request timeout seconds")
	boolVar(fs, &fv.EnableHTTP2, &fv.EnableHTTP2Set, "enable-http2", "enable HTTP/2")
	boolVar(fs, &fv.VerifySSL, &fv.VerifySSLSet, "verify-ssl", "verify TLS certificates")

	fs.Var(&stringFlag{&fv.CODECS, &fv.CODECSSet}, "codecs", "audio codec (e.g. OPUS, AAC, MP3, FLAC)")
	fs.Var(&stringFlag{&fv.CONTAINER, &fv.CONTAINERSet}, "container", "audio container (e.g. OGG, MP3, FLAC, M4A)")
	fs.Var(&intFlag{&fv.Channels, &fv.ChannelsSet}, "channels", "channels")
	fs.Var(&intFlag{&fv.SAMPLING_RATE, &fv.SAMPLING_RATESet}, "sampling-rate", "sampling rate (Hz)")
	fs.Var(&intFlag{&fv.SAMPLING_RATE_DEPTH, &fv.SAMPLING_RATE_DEPTHSet}, "sampling-rate-depth", "sampling depth (bits)")
	fs.Var(&intFlag{&fv.BIT_RATE, &fv.BIT_RATESet}, "bit-rate", "bit rate (kbps)")

	fs.Var(&stringFlag{&fv.StartKey, &fv.StartKeySet}, "start-key", "start/stop hotkey")
	fs.Var(&stringFlag{&fv.PauseKey, &fv.PauseKeySet}, "pause-key", "pause/resume hotkey")
	fs.Var(&stringFlag{&fv.CancelKey, &fv.CancelKeySet}, "cancel-key", "cancel hotkey")

	fs.Var(&stringFlag{&fv.CacheDir, &fv.CacheDirSet}, "cache-dir", "cache directory")
	boolVar(fs, &fv.KeepCache, &fv.KeepCacheSet, "keep-cache", "keep recordings and responses in cache-dir")
	boolVar(fs, &fv.Notification, &fv.NotificationSet, "notification", "enable desktop notifications")
	fs.Var(&stringFlag{&fv.BeepSound, &fv.BeepSoundSet}, "beep-sound", "mp3 played when recording starts")
	boolVar(fs, &fv.LevelMeter, &fv.LevelMeterSet, "level-meter", "draw a microphone level meter while recording")

	fs.Var(&intFlag{&fv.DispatchDelayMs, &fv.DispatchDelayMsSet}, "delay-ms", "default wait between targets (ms)")
	fs.Var(&intFlag{&fv.MaxTargets, &fv.MaxTargetsSet}, "targets", "number of targets to dispatch to or capture (0 = all)")
	fs.Var(&intFlag{&fv.ScreenCount, &fv.ScreenCountSet}, "screens", "number of screens the coordinates were captured on")

	fs.Var(&stringFlag{&fv.RelayAddr, &fv.RelayAddrSet}, "relay-addr", "relay server listen address")
	fs.Var(&stringFlag{&fv.RelayURL, &fv.RelayURLSet}, "relay-url", "relay server base URL")

	boolVar(fs, &fv.FFMPEG_DEBUG, &fv.FFMPEG_DEBUGSet, "ffmpeg-debug", "log ffmpeg commands")
	boolVar(fs, &fv.RECORD_DEBUG, &fv.RECORD_DEBUGSet, "record-debug", "log recorder details")
	boolVar(fs, &fv.HOTKEY_DEBUG, &fv.HOTKEY_DEBUGSet, "hotkey-debug", "log hotkey events")
	boolVar(fs, &fv.UPLOAD_DEBUG, &fv.UPLOAD_DEBUGSet, "upload-debug", "log upload requests and responses")
	boolVar(fs, &fv.DISPATCH_DEBUG, &fv.DISPATCH_DEBUGSet, "dispatch-debug", "log every dispatch step")

	return fv
}

// ApplyFlags applies present flags to the config.
func ApplyFlags(cfg *Config, fv *FlagValues) {
	if fv.APIEndpointSet {
		cfg.APIEndpoint = fv.APIEndpoint
	}
	if fv.TokenSet {
		cfg.Token = fv.Token
	}
	if fv.ModelSet {
		cfg.Model = fv.Model
	}
	if fv.LanguageSet {
		cfg.Language = fv.Language
	}
	if fv.PromptSet {
		cfg.Prompt = fv.Prompt
	}
	if fv.TEXTPathSet {
		cfg.TEXTPath = fv.TEXTPath
	}
	if fv.ExtraConfigSet {
		cfg.ExtraConfig = fv.ExtraConfig
	}
	if fv.BackendSet {
		cfg.Backend = fv.Backend
	}
	if fv.ProxySet {
		cfg.Proxy = fv.Proxy
	}
	if fv.RequestTimeoutSet {
		cfg.RequestTimeout = fv.RequestTimeout
	}
	if fv.EnableHTTP2Set {
		cfg.EnableHTTP2 = fv.EnableHTTP2
	}
	if fv.VerifySSLSet {
		cfg.VerifySSL = fv.VerifySSL
	}

	if fv.CODECSSet {
		cfg.CODECS = fv.CODECS
	}
	if fv.CONTAINERSet {
		cfg.CONTAINER = fv.CONTAINER
	}
	if fv.ChannelsSet {
		cfg.Channels = fv.Channels
	}
	if fv.SAMPLING_RATESet {
		cfg.SAMPLING_RATE = fv.SAMPLING_RATE
	}
	if fv.SAMPLING_RATE_DEPTHSet {
		cfg.SAMPLING_RATE_DEPTH = fv.SAMPLING_RATE_DEPTH
	}
	if fv.BIT_RATESet {
		cfg.BIT_RATE = fv.BIT_RATE
	}

	if fv.StartKeySet {
		cfg.StartKey = fv.StartKey
	}
	if fv.PauseKeySet {
		cfg.PauseKey = fv.PauseKey
	}
	if fv.CancelKeySet {
		cfg.CancelKey = fv.CancelKey
	}

	if fv.CacheDirSet {
		cfg.CacheDir = fv.CacheDir
	}
	if fv.KeepCacheSet {
		cfg.KeepCache = fv.KeepCache
	}
	if fv.NotificationSet {
		cfg.Notification = fv.Notification
	}
	if fv.BeepSoundSet {
		cfg.BeepSound = fv.BeepSound
	}
	if fv.LevelMeterSet {
		cfg.LevelMeter = fv.LevelMeter
	}

	if fv.DispatchDelayMsSet {
		cfg.DispatchDelayMs = fv.DispatchDelayMs
	}
	if fv.MaxTargetsSet {
		cfg.MaxTargets = fv.MaxTargets
	}
	if fv.ScreenCountSet {
		cfg.ScreenCount = fv.ScreenCount
	}

	if fv.RelayAddrSet {
		cfg.RelayAddr = fv.RelayAddr
	}
	if fv.RelayURLSet {
		cfg.RelayURL = fv.RelayURL
	}

	if fv.FFMPEG_DEBUGSet {
		cfg.FFMPEG_DEBUG = fv.FFMPEG_DEBUG
	}
	if fv.RECORD_DEBUGSet {
		cfg.RECORD_DEBUG = fv.RECORD_DEBUG
	}
	if fv.HOTKEY_DEBUGSet {
		cfg.HOTKEY_DEBUG = fv.HOTKEY_DEBUG
	}
	if fv.UPLOAD_DEBUGSet {
		cfg.UPLOAD_DEBUG = fv.UPLOAD_DEBUG
	}
	if fv.DISPATCH_DEBUGSet {
		cfg.DISPATCH_DEBUG = fv.DISPATCH_DEBUG
	}
}

// AnySet reports whether any config flag was explicitly set by the user.
func (fv *FlagValues) AnySet() bool {
	return fv.APIEndpointSet ||
		fv.TokenSet ||
		fv.ModelSet ||
		fv.LanguageSet ||
		fv.PromptSet ||
		fv.TEXTPathSet ||
		fv.ExtraConfigSet ||
		fv.BackendSet ||
		fv.ProxySet ||
		fv.RequestTimeoutSet ||
		fv.EnableHTTP2Set ||
		fv.VerifySSLSet ||
		fv.CODECSSet ||
		fv.CONTAINERSet ||
		fv.ChannelsSet ||
		fv.SAMPLING_RATESet ||
		fv.SAMPLING_RATE_DEPTHSet ||
		fv.BIT_RATESet ||
		fv.StartKeySet ||
		fv.PauseKeySet ||
		fv.CancelKeySet ||
		fv.CacheDirSet ||
		fv.KeepCacheSet ||
		fv.NotificationSet ||
		fv.BeepSoundSet ||
		fv.LevelMeterSet ||
		fv.DispatchDelayMsSet ||
		fv.MaxTargetsSet ||
		fv.ScreenCountSet ||
		fv.RelayAddrSet ||
		fv.RelayURLSet ||
		fv.FFMPEG_DEBUGSet ||
		fv.RECORD_DEBUGSet ||
		fv.HOTKEY_DEBUGSet ||
		fv.UPLOAD_DEBUGSet ||
		fv.DISPATCH_DEBUGSet
}
