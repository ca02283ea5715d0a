// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration.
type Config struct {
	APIURL    string
	WSURL     string
	Language  string
	DBPath    string
	LogLevel  string
	LogFile   string
	Reconnect ReconnectConfig
	Speech    SpeechConfig
	DevServer DevServerConfig
}

// ReconnectConfig is the session channel's reconnect schedule.
type ReconnectConfig struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
	SendBuffer  int
}

// SpeechConfig controls voice input and output.
type SpeechConfig struct {
	Enabled      bool
	SocketPath   string
	SpeakCommand string
	Muted        bool
	QuietPeriod  time.Duration
}

// DevServerConfig controls the local stub interview service.
type DevServerConfig struct {
	Addr         string
	MaxQuestions int
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIURL:   "http://localhost:8000",
		WSURL:    "ws://localhost:8000/ws",
		Language: "python",
		DBPath:   DefaultDBPath(),
		LogLevel: "info",
		Reconnect: ReconnectConfig{
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
			MaxAttempts: 5,
			SendBuffer:  64,
		},
		Speech: SpeechConfig{
			SpeakCommand: "say",
			QuietPeriod:  2 * time.Second,
		},
		DevServer: DevServerConfig{
			Addr:         "127.0.0.1:8000",
			MaxQuestions: 3,
		},
	}
}

// DefaultDBPath returns the default archive location.
func DefaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "codesage", "codesage.sqlite")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "codesage.toml"
	}
	return filepath.Join(dir, "codesage", "config.toml")
}

type fileConfig struct {
	APIURL         string `toml:"api_url"`
	WSURL          string `toml:"ws_url"`
	Language       string `toml:"language"`
	DBPath         string `toml:"db_path"`
	LogLevel       string `toml:"log_level"`
	LogFile        string `toml:"log_file"`
	ReconnectBase  string `toml:"reconnect_base"`
	ReconnectMax   string `toml:"reconnect_max"`
	ReconnectTries int    `toml:"reconnect_attempts"`
	SendBuffer     int    `toml:"send_buffer"`
	Speech         struct {
		Enabled      bool   `toml:"enabled"`
		SocketPath   string `toml:"socket_path"`
		SpeakCommand string `toml:"speak_command"`
		Muted        bool   `toml:"muted"`
		QuietPeriod  string `toml:"quiet_period"`
	} `toml:"speech"`
	DevServer struct {
		Addr         string `toml:"addr"`
		MaxQuestions int    `toml:"max_questions"`
	} `toml:"devserver"`
}

// Load builds the configuration: defaults, then the TOML file at path, then CODESAGE_*
// environment variables. An empty path reads DefaultPath if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := cfg.applyFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}

	setString := func(key, value string, dst *string) {
		if meta.IsDefined(key) {
			*dst = strings.TrimSpace(value)
		}
	}
	setDuration := func(value string, dst *time.Duration, keys ...string) error {
		if !meta.IsDefined(keys...) {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("parse %s: %w", strings.Join(keys, "."), err)
		}
		*dst = d
		return nil
	}

	setString("api_url", raw.APIURL, &c.APIURL)
	setString("ws_url", raw.WSURL, &c.WSURL)
	setString("language", raw.Language, &c.Language)
	setString("db_path", raw.DBPath, &c.DBPath)
	setString("log_level", raw.LogLevel, &c.LogLevel)
	setString("log_file", raw.LogFile, &c.LogFile)

	if err := setDuration(raw.ReconnectBase, &c.Reconnect.BaseDelay, "reconnect_base"); err != nil {
		return err
	}
	if err := setDuration(raw.ReconnectMax, &c.Reconnect.MaxDelay, "reconnect_max"); err != nil {
		return err
	}
	if meta.IsDefined("reconnect_attempts") {
		c.Reconnect.MaxAttempts = raw.ReconnectTries
	}
	if meta.IsDefined("send_buffer") {
		c.Reconnect.SendBuffer = raw.SendBuffer
	}

	if meta.IsDefined("speech", "enabled") {
		c.Speech.Enabled = raw.Speech.Enabled
	}
	if meta.IsDefined("speech", "socket_path") {
		c.Speech.SocketPath = strings.TrimSpace(raw.Speech.SocketPath)
	}
	if meta.IsDefined("speech", "speak_command") {
		c.Speech.SpeakCommand = strings.TrimSpace(raw.Speech.SpeakCommand)
	}
	if meta.IsDefined("speech", "muted") {
		c.Speech.Muted = raw.Speech.Muted
	}
	if err := setDuration(raw.Speech.QuietPeriod, &c.Speech.QuietPeriod, "speech", "quiet_period"); err != nil {
		return err
	}

	if meta.IsDefined("devserver", "addr") {
		c.DevServer.Addr = strings.TrimSpace(raw.DevServer.Addr)
	}
	if meta.IsDefined("devserver", "max_questions") {
		c.DevServer.MaxQuestions = raw.DevServer.MaxQuestions
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.APIURL = getEnv("CODESAGE_API_URL", c.APIURL)
	c.WSURL = getEnv("CODESAGE_WS_URL", c.WSURL)
	c.Language = getEnv("CODESAGE_LANGUAGE", c.Language)
	c.DBPath = getEnv("CODESAGE_DB_PATH", c.DBPath)
	c.LogLevel = getEnv("CODESAGE_LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("CODESAGE_LOG_FILE", c.LogFile)
	c.Reconnect.MaxAttempts = getEnvInt("CODESAGE_RECONNECT_ATTEMPTS", c.Reconnect.MaxAttempts)
	c.Speech.Enabled = getEnvBool("CODESAGE_SPEECH", c.Speech.Enabled)
	c.Speech.SocketPath = getEnv("CODESAGE_SPEECH_SOCKET", c.Speech.SocketPath)
	c.Speech.SpeakCommand = getEnv("CODESAGE_SPEAK_COMMAND", c.Speech.SpeakCommand)
	c.Speech.Muted = getEnvBool("CODESAGE_MUTED", c.Speech.Muted)
	c.DevServer.Addr = getEnv("CODESAGE_DEVSERVER_ADDR", c.DevServer.Addr)

	var err error
	if c.Reconnect.BaseDelay, err = getEnvDuration("CODESAGE_RECONNECT_BASE", c.Reconnect.BaseDelay); err != nil {
		return err
	}
	if c.Reconnect.MaxDelay, err = getEnvDuration("CODESAGE_RECONNECT_MAX", c.Reconnect.MaxDelay); err != nil {
		return err
	}
	return nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url cannot be empty")
	}
	if !strings.HasPrefix(c.WSURL, "ws://") && !strings.HasPrefix(c.WSURL, "wss://") {
		return fmt.Errorf("ws_url must start with ws:// or wss://, got %q", c.WSURL)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path cannot be empty")
	}
	if c.Reconnect.BaseDelay <= 0 {
		return fmt.Errorf("reconnect_base must be > 0")
	}
	if c.Reconnect.MaxDelay < c.Reconnect.BaseDelay {
		return fmt.Errorf("reconnect_max must be >= reconnect_base")
	}
	if c.Reconnect.MaxAttempts < 0 {
		return fmt.Errorf("reconnect_attempts must be >= 0")
	}
	if c.Reconnect.SendBuffer <= 0 {
		return fmt.Errorf("send_buffer must be > 0")
	}
	if c.Speech.QuietPeriod <= 0 {
		return fmt.Errorf("speech.quiet_period must be > 0")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
