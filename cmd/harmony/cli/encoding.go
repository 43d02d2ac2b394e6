// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/harmony/lib/config"
	"github.com/bureau-foundation/harmony/lib/harmony"
	"github.com/bureau-foundation/harmony/lib/tokenizer"
)

// EncodingFlags is the flag group shared by every command that needs a
// Harmony encoding. Flags override the config file; the config file
// overrides built-in defaults.
type EncodingFlags struct {
	ConfigPath    string
	Encoding      string
	VocabularyDir string
	CacheDir      string
	BaseURL       string
	Timeout       time.Duration
}

// AddFlags implements [FlagBinder].
func (flags *EncodingFlags) AddFlags(flagSet *pflag.FlagSet) {
	configHelp := "config file (YAML or TOML)"
	if fromEnv := os.Getenv(config.EnvironmentVariable); fromEnv != "" {
		configHelp += fmt.Sprintf(" (default from %s: %s)", config.EnvironmentVariable, fromEnv)
	}
	flagSet.StringVar(&flags.ConfigPath, "config", "", configHelp)
	flagSet.StringVar(&flags.Encoding, "encoding", "", "encoding name (default "+config.DefaultEncoding+")")
	flagSet.StringVar(&flags.VocabularyDir, "vocabulary-dir", "",
		"directory holding o200k_base.tiktoken (default $"+tokenizer.EncodingsBaseEnv+")")
	flagSet.StringVar(&flags.CacheDir, "cache-dir", "",
		"vocabulary download cache (default $"+tokenizer.CacheDirEnv+")")
	flagSet.StringVar(&flags.BaseURL, "vocabulary-url", "", "base URL to download vocabulary files from")
	flagSet.DurationVar(&flags.Timeout, "timeout", 0, "vocabulary download timeout (default from config, 60s)")
}

// Config resolves the effective configuration: the --config file, else
// the HARMONY_CONFIG file, else built-in defaults, with flag values
// applied on top.
func (flags *EncodingFlags) Config() (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case flags.ConfigPath != "":
		cfg, err = config.LoadFile(flags.ConfigPath)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, err
	}

	if flags.Encoding != "" {
		cfg.Encoding = flags.Encoding
	}
	if flags.VocabularyDir != "" {
		cfg.Vocabulary.BaseDir = flags.VocabularyDir
	}
	if flags.CacheDir != "" {
		cfg.Vocabulary.CacheDir = flags.CacheDir
	}
	if flags.BaseURL != "" {
		cfg.Vocabulary.BaseURL = flags.BaseURL
	}
	if flags.Timeout != 0 {
		cfg.Vocabulary.Timeout = flags.Timeout.String()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEncoding resolves configuration and loads the encoding through
// the environment's loader.
func (flags *EncodingFlags) LoadEncoding(ctx context.Context, logger *slog.Logger) (*harmony.Encoding, *config.Config, error) {
	cfg, err := flags.Config()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.EnsureCacheDir(); err != nil {
		return nil, nil, err
	}

	options := harmony.LoadOptions{
		Vocabulary: tokenizer.LoadOptions{
			BaseDir:    cfg.Vocabulary.BaseDir,
			CacheDir:   cfg.Vocabulary.CacheDir,
			HTTPClient: &http.Client{Timeout: cfg.VocabularyTimeout()},
			Logger:     logger,
		},
		BaseURL: cfg.Vocabulary.BaseURL,
	}

	start := time.Now()
	encoding, err := EnvironmentFrom(ctx).LoadEncoding(ctx, cfg.Encoding, options)
	if err != nil {
		return nil, nil, fmt.Errorf("loading encoding %s: %w", cfg.Encoding, err)
	}
	logger.Debug("encoding loaded",
		"encoding", encoding.Name(),
		"tokenizer", encoding.TokenizerName(),
		"duration", time.Since(start),
	)
	return encoding, cfg, nil
}

// RenderConfig converts the render section of cfg.
func RenderConfig(cfg *config.Config) *harmony.RenderConfig {
	return &harmony.RenderConfig{
		AutoDropAnalysis: cfg.Render.AutoDropAnalysis,
		ValidChannels:    cfg.Render.ValidChannels,
	}
}
