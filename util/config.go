package util

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const Name = "thrive"
const ConfigFileName = "config.yaml"

const (
	DefaultTimelineLimit          = 40
	DefaultRequestsPerSecond      = 5.0
	DefaultBurst                  = 10
	DefaultStreamMaxBackoffSec    = 120
	DefaultStreamFailureThreshold = 3
	DefaultStreamIdleTimeoutSec   = 30
	DefaultStreamJournalKeep      = 500
	DefaultDatabase               = "thrive.db"
	DefaultSoundPack              = "default"
)

//go:embed config_default.yaml
var embeddedConfig []byte

type AppConfig struct {
	Conf struct {
		Instance  string `yaml:"instance"`
		Database  string `yaml:"database"`
		LogLevel  string `yaml:"logLevel"`
		LogFormat string `yaml:"logFormat"`
		LogFile   string `yaml:"logFile"`
		// HttpPort 0 disables the local bridge.
		HttpHost string `yaml:"httpHost"`
		HttpPort int    `yaml:"httpPort"`

		TimelineLimit     int     `yaml:"timelineLimit"`
		RequestsPerSecond float64 `yaml:"requestsPerSecond"`
		Burst             int     `yaml:"burst"`

		StreamMaxBackoffSec    int `yaml:"streamMaxBackoffSec"`
		StreamMaxAttempts      int `yaml:"streamMaxAttempts"`
		StreamFailureThreshold int `yaml:"streamFailureThreshold"`
		StreamIdleTimeoutSec   int `yaml:"streamIdleTimeoutSec"`
		// StreamJournalKeep is how many received stream events stay in the
		// database.
		StreamJournalKeep int `yaml:"streamJournalKeep"`

		OptimisticPosts bool   `yaml:"optimisticPosts"`
		SoundsDir       string `yaml:"soundsDir"`
		PlayCommand     string `yaml:"playCommand"`

		// AccessToken is only ever taken from the environment.
		AccessToken string `yaml:"-"`
	}
}

func (c *AppConfig) StreamMaxBackoff() time.Duration {
	return time.Duration(c.Conf.StreamMaxBackoffSec) * time.Second
}

func (c *AppConfig) StreamIdleTimeout() time.Duration {
	return time.Duration(c.Conf.StreamIdleTimeoutSec) * time.Second
}

// ReadConf resolves config.yaml locally first, then in the user config dir.
func ReadConf() (*AppConfig, error) {
	return ReadConfFrom("")
}

// ReadConfFrom reads the given file, or the resolved default location when
// path is empty. A missing file falls back to the embedded defaults.
func ReadConfFrom(path string) (*AppConfig, error) {
	c := &AppConfig{}

	explicit := path != ""
	if !explicit {
		path = ResolveFilePath(ConfigFileName)
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		if explicit {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		buf = embeddedConfig
		writeDefaultConfig()
	}

	if err := yaml.Unmarshal(buf, c); err != nil {
		return nil, fmt.Errorf("in config file: %w", err)
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return c, nil
}

func writeDefaultConfig() {
	configDir, err := GetConfigDir()
	if err != nil {
		return
	}
	userConfigPath := filepath.Join(configDir, ConfigFileName)
	if _, err := os.Stat(userConfigPath); err == nil {
		return
	}
	_ = os.WriteFile(userConfigPath, embeddedConfig, 0644)
}

func (c *AppConfig) applyEnv() error {
	if v := os.Getenv("THRIVE_INSTANCE"); v != "" {
		c.Conf.Instance = v
	}
	if v := os.Getenv("THRIVE_ACCESS_TOKEN"); v != "" {
		c.Conf.AccessToken = v
	}
	if v := os.Getenv("THRIVE_DATABASE"); v != "" {
		c.Conf.Database = v
	}
	if v := os.Getenv("THRIVE_LOGLEVEL"); v != "" {
		c.Conf.LogLevel = v
	}
	if v := os.Getenv("THRIVE_HTTPHOST"); v != "" {
		c.Conf.HttpHost = v
	}
	if v := os.Getenv("THRIVE_HTTPPORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("THRIVE_HTTPPORT: %w", err)
		}
		c.Conf.HttpPort = port
	}
	if v := os.Getenv("THRIVE_OPTIMISTIC_POSTS"); v != "" {
		c.Conf.OptimisticPosts = v == "true"
	}
	return nil
}

func (c *AppConfig) applyDefaults() {
	if c.Conf.Database == "" {
		c.Conf.Database = DefaultDatabase
	}
	if c.Conf.LogLevel == "" {
		c.Conf.LogLevel = "info"
	}
	if c.Conf.LogFormat == "" {
		c.Conf.LogFormat = "console"
	}
	if c.Conf.HttpHost == "" {
		c.Conf.HttpHost = "127.0.0.1"
	}
	if c.Conf.TimelineLimit <= 0 {
		c.Conf.TimelineLimit = DefaultTimelineLimit
	}
	if c.Conf.RequestsPerSecond <= 0 {
		c.Conf.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.Conf.Burst <= 0 {
		c.Conf.Burst = DefaultBurst
	}
	if c.Conf.StreamMaxBackoffSec <= 0 {
		c.Conf.StreamMaxBackoffSec = DefaultStreamMaxBackoffSec
	}
	if c.Conf.StreamFailureThreshold <= 0 {
		c.Conf.StreamFailureThreshold = DefaultStreamFailureThreshold
	}
	if c.Conf.StreamIdleTimeoutSec <= 0 {
		c.Conf.StreamIdleTimeoutSec = DefaultStreamIdleTimeoutSec
	}
	if c.Conf.StreamJournalKeep <= 0 {
		c.Conf.StreamJournalKeep = DefaultStreamJournalKeep
	}
	if c.Conf.SoundsDir == "" {
		c.Conf.SoundsDir = "sounds"
	}
}
