// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the harmony CLI.
//
// Configuration is loaded from a single file named by either the
// HARMONY_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery and
// no automatic file search. Commands that run without a config file use
// [Default].
//
// Files ending in .toml are decoded as TOML; anything else is YAML.
// Both formats use the same keys:
//
//	encoding: HarmonyGptOss
//	vocabulary:
//	  base_dir: ${HOME}/tiktoken
//	  cache_dir: ${XDG_CACHE_HOME:-/tmp}/tiktoken-rs-cache
//	  base_url: https://openaipublic.blob.core.windows.net/encodings
//	  timeout: 30s
//	render:
//	  auto_drop_analysis: true
//	  valid_channels: [analysis, commentary, final]
//
// Variable expansion is performed on the vocabulary paths after
// loading: ${VAR} and ${VAR:-default} patterns are expanded from the
// process environment. No environment variable overrides a value the
// file sets. The vocabulary loader itself still consults
// TIKTOKEN_ENCODINGS_BASE and TIKTOKEN_RS_CACHE_DIR for paths the file
// leaves empty.
//
// This package depends on no other harmony packages.
package config
