// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestBindFlags_BasicTypes(t *testing.T) {
	type params struct {
		Name     string        `flag:"name" desc:"the name"`
		Verbose  bool          `flag:"verbose,v" desc:"enable verbose output"`
		Count    int           `flag:"count" desc:"number of items"`
		Timeout  time.Duration `flag:"timeout" desc:"request timeout"`
		Channels []string      `flag:"channels" desc:"channel list"`
		Untagged string        // no flag tag, skipped
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}

	err := flagSet.Parse([]string{
		"--name", "alice",
		"-v",
		"--count", "42",
		"--timeout", "30s",
		"--channels", "analysis,final",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Name != "alice" {
		t.Errorf("Name = %q, want %q", p.Name, "alice")
	}
	if !p.Verbose {
		t.Error("Verbose = false, want true")
	}
	if p.Count != 42 {
		t.Errorf("Count = %d, want 42", p.Count)
	}
	if p.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", p.Timeout)
	}
	if len(p.Channels) != 2 || p.Channels[0] != "analysis" || p.Channels[1] != "final" {
		t.Errorf("Channels = %v, want [analysis final]", p.Channels)
	}
	if flagSet.Lookup("untagged") != nil {
		t.Error("untagged field was bound")
	}
}

func TestBindFlags_Defaults(t *testing.T) {
	type params struct {
		Mode     string        `flag:"mode" default:"completion"`
		Width    int           `flag:"width" default:"80"`
		Timeout  time.Duration `flag:"timeout" default:"10s"`
		Debug    bool          `flag:"debug" default:"true"`
		Channels []string      `flag:"channels" default:"analysis,final"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if err := flagSet.Parse(nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Mode != "completion" || p.Width != 80 || p.Timeout != 10*time.Second || !p.Debug {
		t.Errorf("defaults = %+v", p)
	}
	if len(p.Channels) != 2 {
		t.Errorf("Channels = %v, want [analysis final]", p.Channels)
	}
}

func TestBindFlags_InvalidDefault(t *testing.T) {
	type params struct {
		Width int `flag:"width" default:"wide"`
	}
	var p params
	err := BindFlags(&p, pflag.NewFlagSet("test", pflag.ContinueOnError))
	if err == nil || !strings.Contains(err.Error(), "--width") {
		t.Errorf("error = %v, want a --width default error", err)
	}
}

func TestBindFlags_UnsupportedType(t *testing.T) {
	type params struct {
		Rate float64 `flag:"rate"`
	}
	var p params
	err := BindFlags(&p, pflag.NewFlagSet("test", pflag.ContinueOnError))
	if err == nil || !strings.Contains(err.Error(), "unsupported type") {
		t.Errorf("error = %v, want unsupported type", err)
	}
}

func TestBindFlags_RequiresStructPointer(t *testing.T) {
	type params struct{}
	if err := BindFlags(params{}, pflag.NewFlagSet("test", pflag.ContinueOnError)); err == nil {
		t.Error("BindFlags accepted a struct value")
	}
}

func TestBindFlags_Composition(t *testing.T) {
	type params struct {
		JSONOutput
		EncodingFlags
		Role string `flag:"role,r"`
	}

	var p params
	flagSet := FlagsFromParams("parse", &p)
	for _, name := range []string{"json", "config", "encoding", "vocabulary-dir", "cache-dir", "vocabulary-url", "timeout", "role"} {
		if flagSet.Lookup(name) == nil {
			t.Errorf("flag --%s not bound", name)
		}
	}

	if err := flagSet.Parse([]string{"--json", "--encoding", "HarmonyGptOss", "-r", "assistant"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !p.OutputJSON || p.Encoding != "HarmonyGptOss" || p.Role != "assistant" {
		t.Errorf("parsed params = %+v", p)
	}
}

func TestFlagsFromParams_PanicsOnInvalidParams(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("FlagsFromParams did not panic")
		}
	}()
	FlagsFromParams("bad", "not a struct")
}
