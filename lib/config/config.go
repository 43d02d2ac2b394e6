// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file read by [Load].
const EnvironmentVariable = "HARMONY_CONFIG"

// DefaultEncoding is the encoding used when the file does not name one.
const DefaultEncoding = "HarmonyGptOss"

// Config is the master configuration for the harmony CLI.
type Config struct {
	// Encoding is the registered encoding name passed to
	// harmony.LoadEncoding.
	Encoding string `yaml:"encoding" toml:"encoding"`

	// Vocabulary configures where the BPE vocabulary comes from.
	Vocabulary VocabularyConfig `yaml:"vocabulary" toml:"vocabulary"`

	// Render configures conversation rendering and parsing defaults.
	Render RenderConfig `yaml:"render" toml:"render"`
}

// VocabularyConfig configures vocabulary file lookup and download.
type VocabularyConfig struct {
	// BaseDir is a local directory holding vocabulary files. When set,
	// nothing is downloaded. Empty means TIKTOKEN_ENCODINGS_BASE.
	BaseDir string `yaml:"base_dir" toml:"base_dir"`

	// CacheDir holds downloaded vocabulary files. Empty means
	// TIKTOKEN_RS_CACHE_DIR, then $TMPDIR/tiktoken-rs-cache.
	CacheDir string `yaml:"cache_dir" toml:"cache_dir"`

	// BaseURL is the download location. Empty means the published
	// OpenAI encodings bucket.
	BaseURL string `yaml:"base_url" toml:"base_url"`

	// Timeout bounds a vocabulary download, as a Go duration string.
	// Default: 60s
	Timeout string `yaml:"timeout" toml:"timeout"`
}

// RenderConfig configures rendering and parsing defaults.
type RenderConfig struct {
	// AutoDropAnalysis drops analysis messages of answered turns when
	// rendering a conversation for completion.
	// Default: true
	AutoDropAnalysis bool `yaml:"auto_drop_analysis" toml:"auto_drop_analysis"`

	// ValidChannels, when non-empty, restricts the channels accepted
	// by render and parse.
	ValidChannels []string `yaml:"valid_channels" toml:"valid_channels"`
}

// Default returns the default configuration. It is the base every file
// is merged into, so fields a file omits keep these values.
func Default() *Config {
	return &Config{
		Encoding: DefaultEncoding,
		Vocabulary: VocabularyConfig{
			Timeout: "60s",
		},
		Render: RenderConfig{
			AutoDropAnalysis: true,
		},
	}
}

// Load loads configuration from the HARMONY_CONFIG environment
// variable. There are no fallbacks: if HARMONY_CONFIG is not set, this
// fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your harmony.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path and validates
// it.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// loadFile merges a single configuration file into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	c.Vocabulary.BaseDir = expandVars(c.Vocabulary.BaseDir)
	c.Vocabulary.CacheDir = expandVars(c.Vocabulary.CacheDir)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Encoding == "" {
		errs = append(errs, errors.New("encoding is required"))
	}

	if c.Vocabulary.Timeout != "" {
		timeout, err := time.ParseDuration(c.Vocabulary.Timeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("vocabulary.timeout: %w", err))
		} else if timeout <= 0 {
			errs = append(errs, fmt.Errorf("vocabulary.timeout must be positive, got %s", c.Vocabulary.Timeout))
		}
	}

	if c.Vocabulary.BaseURL != "" {
		parsed, err := url.Parse(c.Vocabulary.BaseURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("vocabulary.base_url: %w", err))
		} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
			errs = append(errs, fmt.Errorf("vocabulary.base_url must be http or https, got %q", c.Vocabulary.BaseURL))
		}
	}

	seen := make(map[string]bool, len(c.Render.ValidChannels))
	for _, channel := range c.Render.ValidChannels {
		switch {
		case channel == "" || strings.ContainsFunc(channel, isHeaderSeparator):
			errs = append(errs, fmt.Errorf("render.valid_channels: %q is not a channel name", channel))
		case seen[channel]:
			errs = append(errs, fmt.Errorf("render.valid_channels: %q listed twice", channel))
		}
		seen[channel] = true
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// isHeaderSeparator reports characters that end a channel name in a
// rendered header.
func isHeaderSeparator(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '<'
}

// VocabularyTimeout returns the parsed download timeout, or zero when
// none is configured.
func (c *Config) VocabularyTimeout() time.Duration {
	timeout, err := time.ParseDuration(c.Vocabulary.Timeout)
	if err != nil {
		return 0
	}
	return timeout
}

// EnsureCacheDir creates the configured vocabulary cache directory if
// it does not exist.
func (c *Config) EnsureCacheDir() error {
	if c.Vocabulary.CacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(c.Vocabulary.CacheDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", c.Vocabulary.CacheDir, err)
	}
	return nil
}
