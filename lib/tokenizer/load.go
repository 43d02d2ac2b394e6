// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tokenizer

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

const (
	// EncodingsBaseEnv names a local directory holding vocabulary files.
	// When set, no network access is attempted.
	EncodingsBaseEnv = "TIKTOKEN_ENCODINGS_BASE"

	// CacheDirEnv overrides the directory used to cache downloads.
	CacheDirEnv = "TIKTOKEN_RS_CACHE_DIR"
)

// VocabularySource identifies a published vocabulary file.
type VocabularySource struct {
	// FileName is the file name looked up in a local base directory.
	FileName string

	// URL is the remote location used when no base directory is set.
	URL string

	// SHA256 is the hex digest of the uncompressed file. Empty skips
	// verification.
	SHA256 string
}

// LoadOptions configures where vocabulary files are resolved from.
// Empty fields fall back to the environment variables above and then to
// built-in defaults.
type LoadOptions struct {
	BaseDir    string
	CacheDir   string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func (options LoadOptions) resolve() LoadOptions {
	if options.BaseDir == "" {
		options.BaseDir = os.Getenv(EncodingsBaseEnv)
	}
	if options.CacheDir == "" {
		options.CacheDir = os.Getenv(CacheDirEnv)
	}
	if options.CacheDir == "" {
		options.CacheDir = filepath.Join(os.TempDir(), "tiktoken-rs-cache")
	}
	if options.HTTPClient == nil {
		options.HTTPClient = http.DefaultClient
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	return options
}

// LoadVocabulary resolves, verifies and parses a vocabulary file.
func LoadVocabulary(ctx context.Context, source VocabularySource, options LoadOptions) (map[string]Rank, error) {
	data, err := ReadVocabulary(ctx, source, options)
	if err != nil {
		return nil, err
	}
	return ParseVocabulary(data)
}

// ReadVocabulary returns the verified bytes of a vocabulary file.
//
// With a base directory, the file (or a ".zst"/".lz4" compressed copy)
// is read from it and nothing else is tried. Otherwise the cache
// directory is consulted, and on a miss or a corrupt entry the file is
// downloaded and written back to the cache.
func ReadVocabulary(ctx context.Context, source VocabularySource, options LoadOptions) ([]byte, error) {
	options = options.resolve()
	logger := options.Logger.With("vocabulary", source.FileName)

	if options.BaseDir != "" {
		data, path, err := readLocalVocabulary(options.BaseDir, source.FileName)
		if err != nil {
			return nil, err
		}
		if err := VerifyHash(path, data, source.SHA256); err != nil {
			return nil, err
		}
		logger.Debug("loaded local vocabulary", "path", path)
		return data, nil
	}

	if source.URL == "" {
		return nil, fmt.Errorf("vocabulary %s: no %s set and no download URL", source.FileName, EncodingsBaseEnv)
	}

	cachePath := filepath.Join(options.CacheDir, CacheKey(source.URL))
	if data, err := os.ReadFile(cachePath); err == nil {
		if VerifyHash(cachePath, data, source.SHA256) == nil {
			logger.Debug("vocabulary cache hit", "path", cachePath)
			return data, nil
		}
		logger.Warn("discarding cached vocabulary with mismatched hash", "path", cachePath)
		_ = os.Remove(cachePath)
	}

	data, err := downloadVocabulary(ctx, options.HTTPClient, source.URL)
	if err != nil {
		return nil, err
	}
	if err := VerifyHash(source.URL, data, source.SHA256); err != nil {
		return nil, err
	}
	logger.Info("downloaded vocabulary", "url", source.URL, "bytes", len(data))

	if err := writeCacheFile(cachePath, data); err != nil {
		logger.Warn("caching vocabulary failed", "path", cachePath, "error", err)
	}
	return data, nil
}

// CacheKey returns the cache file name for a vocabulary URL.
func CacheKey(url string) string {
	sum := blake3.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

func readLocalVocabulary(baseDir, fileName string) ([]byte, string, error) {
	for _, compression := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
		path := filepath.Join(baseDir, fileName+compression.Suffix())
		file, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("opening vocabulary: %w", err)
		}
		data, err := Decompress(file, compression)
		file.Close()
		if err != nil {
			return nil, "", fmt.Errorf("reading %s: %w", path, err)
		}
		return data, path, nil
	}
	return nil, "", fmt.Errorf("vocabulary %s not found in %s", fileName, baseDir)
}

func downloadVocabulary(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building vocabulary request: %w", err)
	}
	response, err := client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("downloading vocabulary: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading vocabulary %s: HTTP %d", url, response.StatusCode)
	}
	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("reading vocabulary response: %w", err)
	}
	return data, nil
}

// writeCacheFile writes data next to path and renames it into place so
// that concurrent readers never observe a partial file.
func writeCacheFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	temporary, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		os.Remove(temporary.Name())
		return err
	}
	if err := temporary.Close(); err != nil {
		os.Remove(temporary.Name())
		return err
	}
	return os.Rename(temporary.Name(), path)
}
