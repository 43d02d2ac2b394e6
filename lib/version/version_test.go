// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func TestBuildInfoString(t *testing.T) {
	t.Parallel()

	info := BuildInfo{Version: "1.2.3", Commit: "abc1234", BuildTime: "2026-02-10T00:00:00Z"}
	if got, want := info.String(), "1.2.3 (abc1234, 2026-02-10T00:00:00Z)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	info.Dirty = true
	if got, want := info.String(), "1.2.3 (abc1234-dirty, 2026-02-10T00:00:00Z)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestWithSettings(t *testing.T) {
	t.Parallel()

	settings := []debug.BuildSetting{
		{Key: "-compiler", Value: "gc"},
		{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		{Key: "vcs.time", Value: "2026-03-01T12:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	}

	unset := BuildInfo{Version: "0.1.0-dev", Commit: "unknown", BuildTime: "unknown"}
	got := unset.withSettings(settings)
	if got.Commit != "0123456789ab" || got.BuildTime != "2026-03-01T12:00:00Z" || !got.Dirty {
		t.Errorf("withSettings on an unstamped build = %+v", got)
	}

	stamped := BuildInfo{Version: "1.0.0", Commit: "feedbee", BuildTime: "2026-01-01T00:00:00Z"}
	if got := stamped.withSettings(settings); got != stamped {
		t.Errorf("withSettings overrode linker values: %+v", got)
	}
}

func TestCurrent(t *testing.T) {
	t.Parallel()

	info := Current()
	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	if info.GoVersion != runtime.Version() || info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Current() = %+v", info)
	}
	if full := Full(); !strings.Contains(full, "Platform: "+info.Platform) {
		t.Errorf("Full() = %q", full)
	}
}
