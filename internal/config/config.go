// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/autobrr/dealdash/internal/domain"
)

const (
	configFileName = "config.toml"
	envPrefix      = "DEALDASH"
)

var configTemplate = `# config.toml - dealdash configuration

# Hostname / IP
# Default: "localhost"
host = "{{ .host }}"

# Port
# Default: 7480
port = {{ .port }}

# Base URL
# Set custom baseUrl eg /dealdash/ to serve in subdirectory.
# Not needed for subdomain, or by accessing with :port directly.
# Optional
#baseUrl = "/dealdash/"

# Session secret
# Used to sign and encrypt the session cookie. Generated on first run.
sessionSecret = "{{ .sessionSecret }}"

# Secure cookies
# Only send the session cookie over HTTPS. Enable behind a TLS proxy.
# Default: false
#secureCookies = false

# Log file path
# If not defined, logs to stdout
# Optional
#logPath = "log/dealdash.log"

# Log level
# Default: "INFO"
# Options: "ERROR", "WARN", "INFO", "DEBUG", "TRACE"
logLevel = "INFO"

# Log Max Size
# Max log size in megabytes
# Default: 50
#logMaxSize = 50

# Log Max Backups
# Max amount of old log files
# Default: 3
#logMaxBackups = 3

# Metrics
# Serve Prometheus metrics on a separate listener
#metricsEnabled = false
#metricsHost = "127.0.0.1"
#metricsPort = 9074
#metricsBasicAuthUsers = "user:pass"

[estuary]
# Storage backend API
url = "{{ .estuaryURL }}"

# Request timeout in seconds
#timeout = 30

# How long deal status responses are cached, in seconds. 0 disables the cache.
#statusCacheTtl = 15

# Parallel status requests per page load
#statusConcurrency = 8
`

// AppConfig wraps the loaded configuration and the viper instance behind it
type AppConfig struct {
	Config *domain.Config
	viper  *viper.Viper

	mu sync.Mutex
}

// New loads config.toml from configDir, writing a default one on first run.
// DEALDASH__* environment variables override file values.
func New(configDir string) (*AppConfig, error) {
	c := &AppConfig{
		Config: &domain.Config{},
		viper:  viper.New(),
	}

	c.defaults(configDir)

	if err := c.load(configDir); err != nil {
		return nil, err
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *AppConfig) defaults(configDir string) {
	v := c.viper
	v.SetDefault("host", "localhost")
	v.SetDefault("port", 7480)
	v.SetDefault("baseUrl", "")
	v.SetDefault("sessionSecret", "")
	v.SetDefault("secureCookies", false)
	v.SetDefault("logLevel", "INFO")
	v.SetDefault("logPath", "")
	v.SetDefault("logMaxSize", 50)
	v.SetDefault("logMaxBackups", 3)
	v.SetDefault("dataDir", configDir)
	v.SetDefault("metricsEnabled", false)
	v.SetDefault("metricsHost", "127.0.0.1")
	v.SetDefault("metricsPort", 9074)
	v.SetDefault("metricsBasicAuthUsers", "")
	v.SetDefault("estuary.url", "https://api.estuary.tech")
	v.SetDefault("estuary.timeout", 30)
	v.SetDefault("estuary.statusCacheTtl", 15)
	v.SetDefault("estuary.statusConcurrency", 8)
	v.SetDefault("httpTimeouts.readTimeout", 60)
	v.SetDefault("httpTimeouts.writeTimeout", 120)
	v.SetDefault("httpTimeouts.idleTimeout", 180)
}

func (c *AppConfig) load(configDir string) error {
	v := c.viper

	// DEALDASH__ESTUARY__URL overrides estuary.url
	for _, key := range v.AllKeys() {
		if err := v.BindEnv(key, envPrefix+"__"+strings.ToUpper(strings.ReplaceAll(key, ".", "__"))); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if configDir != "" {
		configPath := filepath.Join(configDir, configFileName)
		if err := writeDefaultConfig(configPath); err != nil {
			return err
		}

		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", configPath, err)
		}
	}

	if err := v.Unmarshal(c.Config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

func (c *AppConfig) validate() error {
	cfg := c.Config

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Estuary.URL == "" {
		return errors.New("estuary.url is required")
	}
	if cfg.SessionSecret == "" {
		// No file and no env: keep sessions valid for this process only
		secret, err := generateSecret()
		if err != nil {
			return err
		}
		cfg.SessionSecret = secret
		log.Warn().Msg("No sessionSecret configured, sessions will not survive a restart")
	}
	if cfg.BaseURL != "" {
		cfg.BaseURL = "/" + strings.Trim(cfg.BaseURL, "/") + "/"
		if cfg.BaseURL == "//" {
			cfg.BaseURL = "/"
		}
	}

	return nil
}

// WatchConfig reloads the log level when config.toml changes on disk
func (c *AppConfig) WatchConfig() {
	if c.viper.ConfigFileUsed() == "" {
		return
	}

	c.viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		level := c.viper.GetString("logLevel")
		log.Info().Str("file", e.Name).Str("logLevel", level).Msg("Config file changed")

		c.mu.Lock()
		c.Config.LogLevel = level
		c.mu.Unlock()

		zerolog.SetGlobalLevel(parseLevel(level))
	})
	c.viper.WatchConfig()
}

// InitLogger configures the global zerolog logger from the loaded config
func (c *AppConfig) InitLogger() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var writer io.Writer = os.Stderr
	if term.IsTerminal(int(os.Stderr.Fd())) {
		writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"}
	}

	if c.Config.LogPath != "" {
		logPath := c.Config.LogPath
		if !filepath.IsAbs(logPath) {
			logPath = filepath.Join(c.Config.DataDir, logPath)
		}
		writer = zerolog.MultiLevelWriter(writer, &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    c.Config.LogMaxSize,
			MaxBackups: c.Config.LogMaxBackups,
		})
	}

	zerolog.SetGlobalLevel(parseLevel(c.Config.LogLevel))
	log.Logger = zerolog.New(writer).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func writeDefaultConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat config %s: %w", configPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	secret, err := generateSecret()
	if err != nil {
		return err
	}

	host := "localhost"
	// Containers need to listen on every interface
	if _, err := os.Stat("/.dockerenv"); err == nil {
		host = "0.0.0.0"
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse config template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any{
		"host":          host,
		"port":          7480,
		"sessionSecret": secret,
		"estuaryURL":    "https://api.estuary.tech",
	}); err != nil {
		return fmt.Errorf("failed to render config template: %w", err)
	}

	if err := os.WriteFile(configPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	log.Info().Str("path", configPath).Msg("Wrote default config")

	return nil
}

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}
