// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tokenizer

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the container format of a vocabulary file.
type Compression uint8

const (
	// CompressionNone is a plain tiktoken file.
	CompressionNone Compression = iota
	// CompressionZstd is a zstd frame (".zst").
	CompressionZstd
	// CompressionLZ4 is an LZ4 frame (".lz4").
	CompressionLZ4
)

// String returns the file suffix name of the compression.
func (compression Compression) String() string {
	switch compression {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("compression(%d)", uint8(compression))
	}
}

// Suffix returns the file name suffix used for the compression.
func (compression Compression) Suffix() string {
	switch compression {
	case CompressionZstd:
		return ".zst"
	case CompressionLZ4:
		return ".lz4"
	default:
		return ""
	}
}

// CompressionForPath infers the compression from a file name suffix.
func CompressionForPath(path string) Compression {
	switch {
	case strings.HasSuffix(path, ".zst"):
		return CompressionZstd
	case strings.HasSuffix(path, ".lz4"):
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// Decompress reads the whole of reader, undoing compression.
func Decompress(reader io.Reader, compression Compression) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return io.ReadAll(reader)

	case CompressionZstd:
		decoder, err := zstd.NewReader(reader)
		if err != nil {
			return nil, fmt.Errorf("opening zstd stream: %w", err)
		}
		defer decoder.Close()
		data, err := io.ReadAll(decoder)
		if err != nil {
			return nil, fmt.Errorf("decompressing zstd: %w", err)
		}
		return data, nil

	case CompressionLZ4:
		data, err := io.ReadAll(lz4.NewReader(reader))
		if err != nil {
			return nil, fmt.Errorf("decompressing lz4: %w", err)
		}
		return data, nil

	default:
		return nil, fmt.Errorf("unsupported compression %s", compression)
	}
}

// Compress encodes data with compression. It exists so that mirrors of
// the published vocabulary can be produced with the same libraries that
// read them.
func Compress(data []byte, compression Compression) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return data, nil

	case CompressionZstd:
		encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		defer encoder.Close()
		return encoder.EncodeAll(data, nil), nil

	case CompressionLZ4:
		var buffer bytes.Buffer
		writer := lz4.NewWriter(&buffer)
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("compressing lz4: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("closing lz4 stream: %w", err)
		}
		return buffer.Bytes(), nil

	default:
		return nil, fmt.Errorf("unsupported compression %s", compression)
	}
}
