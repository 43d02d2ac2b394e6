// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports which build of the harmony CLI is running.
//
// Release builds inject [Version], [GitCommit], [GitDirty] and
// [BuildTime] with -ldflags -X:
//
//	go build -ldflags "-X github.com/bureau-foundation/harmony/lib/version.GitCommit=$(git rev-parse --short HEAD)" ./cmd/harmony
//
// Anything left unset is filled from the VCS stamp the go command
// embeds in binaries built inside a checkout (see
// [runtime/debug.ReadBuildInfo]), so a plain "go build" or "go install"
// still reports its commit.
package version
