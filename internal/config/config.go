// Package config handles pika configuration: CLI flags plus environment
// variables, per the daemon's "no config file" design (spec §6.3).
package config

import (
	"flag"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all runtime configuration for the daemon. All fields are
// populated by Parse; after Parse returns successfully every field is
// usable without additional nil/empty checks.
type Config struct {
	StateDir             string
	Relays               []string
	GiftwrapLookbackSec  int
	AllowPubkeys         []string // lowercased hex, empty means open mode

	EchoMode          bool
	TTSFixture        bool
	SilenceRMS        int
	SpeechAPIKey      string
	SpeechBaseURL     string
	SpeechModel       string
	SpeechVoice       string

	ReadinessTimeoutSec int
	LogLevel            string
}

type stringSlice []string

func (s *stringSlice) String() string {
	if s == nil {
		return ""
	}
	return strings.Join(*s, ",")
}

func (s *stringSlice) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// Parse builds a Config from CLI args (excluding argv[0]) and the
// process environment, applies defaults, and validates the result.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("pika", flag.ContinueOnError)

	stateDir := fs.String("state-dir", "", "directory for identity.json and mdk.sqlite")
	var relays stringSlice
	fs.Var(&relays, "relay", "relay URL (repeatable)")
	lookback := fs.Int("giftwrap-lookback-sec", 3*24*3600, "giftwrap inbox lookback window, seconds")
	var allow stringSlice
	fs.Var(&allow, "allow-pubkey", "permitted sender pubkey, hex (repeatable)")
	logLevel := fs.String("log-level", "", "log level: trace, debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &Config{
		StateDir:            *stateDir,
		Relays:              []string(relays),
		GiftwrapLookbackSec: *lookback,
		LogLevel:            *logLevel,
	}
	for _, pk := range allow {
		cfg.AllowPubkeys = append(cfg.AllowPubkeys, strings.ToLower(pk))
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// applyEnv reads the environment variables listed in spec §6.3. All
// other runtime configuration flows through commands, not env.
func (c *Config) applyEnv() {
	c.EchoMode = envBool("PIKA_ECHO_MODE", false)
	c.TTSFixture = envBool("PIKA_TTS_FIXTURE", false)
	c.SilenceRMS = envInt("PIKA_SILENCE_RMS", 0)
	c.SpeechAPIKey = os.Getenv("PIKA_SPEECH_API_KEY")
	c.SpeechBaseURL = os.Getenv("PIKA_SPEECH_BASE_URL")
	c.SpeechModel = os.Getenv("PIKA_SPEECH_MODEL")
	c.SpeechVoice = os.Getenv("PIKA_SPEECH_VOICE")
	if c.LogLevel == "" {
		c.LogLevel = os.Getenv("PIKA_LOG_LEVEL")
	}
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.StateDir == "" {
		c.StateDir = defaultStateDir()
	}
	if c.GiftwrapLookbackSec <= 0 {
		c.GiftwrapLookbackSec = 3 * 24 * 3600
	}
	if c.SilenceRMS <= 0 {
		c.SilenceRMS = 500
	}
	if c.SpeechModel == "" {
		c.SpeechModel = "tts-1"
	}
	if c.SpeechVoice == "" {
		c.SpeechVoice = "alloy"
	}
	if c.ReadinessTimeoutSec <= 0 {
		c.ReadinessTimeoutSec = 90
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func defaultStateDir() string {
	if u, err := user.Current(); err == nil && u.HomeDir != "" {
		return filepath.Join(u.HomeDir, ".pika")
	}
	return "./pika-data"
}

// Validate checks that the configuration is internally consistent. It
// runs after applyDefaults, so it can assume defaults are populated.
func (c *Config) Validate() error {
	if len(c.Relays) == 0 {
		return fmt.Errorf("at least one --relay is required")
	}
	if c.GiftwrapLookbackSec < 0 {
		return fmt.Errorf("giftwrap-lookback-sec must be non-negative")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// OpenMode reports whether the sender allowlist is empty, i.e. the
// daemon accepts welcomes and messages from any sender (spec §4.1).
func (c *Config) OpenMode() bool {
	return len(c.AllowPubkeys) == 0
}
