// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		terminal  bool
		level     string
		wantInfo  bool
		wantJSON  bool
		wantDebug bool
		wantLevel bool
	}{
		{name: "default is warn", terminal: true},
		{name: "info", terminal: true, level: "info", wantInfo: true},
		{name: "debug json", level: "debug", wantInfo: true, wantDebug: true, wantJSON: true},
		{name: "unknown level keeps warn", level: "chatty", wantJSON: true, wantLevel: true},
		{name: "unknown level on a terminal", terminal: true, level: "chatty", wantLevel: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			var buffer bytes.Buffer
			logger := newLogger(&buffer, test.terminal, test.level)
			logger.Debug("debug line")
			logger.Info("info line")
			logger.Warn("warn line")

			output := buffer.String()
			if !strings.Contains(output, "warn line") {
				t.Errorf("warn line missing from %q", output)
			}
			if strings.Contains(output, "info line") != test.wantInfo {
				t.Errorf("info line present = %v, want %v", !test.wantInfo, test.wantInfo)
			}
			if strings.Contains(output, "debug line") != test.wantDebug {
				t.Errorf("debug line present = %v, want %v", !test.wantDebug, test.wantDebug)
			}
			if strings.Contains(output, "ignoring unknown HARMONY_LOG_LEVEL") != test.wantLevel {
				t.Errorf("level warning present = %v, want %v: %q", !test.wantLevel, test.wantLevel, output)
			}
			if test.wantLevel && !strings.Contains(output, "chatty") {
				t.Errorf("level warning does not name the value: %q", output)
			}
			if strings.HasPrefix(output, "{") != test.wantJSON {
				t.Errorf("JSON output = %v, want %v: %q", !test.wantJSON, test.wantJSON, output)
			}
		})
	}
}
