// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/harmony/lib/chat"
	"github.com/bureau-foundation/harmony/lib/harmony"
)

func decodeEvents(t *testing.T, output string) []streamEvent {
	t.Helper()
	var events []streamEvent
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line == "" {
			continue
		}
		events = append(events, decodeJSON[streamEvent](t, line))
	}
	return events
}

func eventsOfKind(events []streamEvent, kind string) []streamEvent {
	var matching []streamEvent
	for _, event := range events {
		if event.Event == kind {
			matching = append(matching, event)
		}
	}
	return matching
}

func TestStreamEmitsTokensAndMessages(t *testing.T) {
	t.Parallel()
	encoding := mustEncoding(t)

	tokens, err := encoding.EncodeWithSpecialTokens(
		"<|start|>assistant<|channel|>analysis<|message|>hello<|end|>" +
			"<|start|>assistant<|channel|>final<|message|>hello world<|return|>")
	if err != nil {
		t.Fatalf("EncodeWithSpecialTokens: %v", err)
	}

	events := decodeEvents(t, mustExecute(t, joinIDs(tokens), "stream", "--session", "session-1"))
	for _, event := range events {
		if event.Session != "session-1" {
			t.Fatalf("event %+v has the wrong session", event)
		}
	}

	tokenEvents := eventsOfKind(events, "token")
	if len(tokenEvents) != len(tokens) {
		t.Fatalf("got %d token events for %d tokens", len(tokenEvents), len(tokens))
	}
	var text strings.Builder
	for index, event := range tokenEvents {
		if event.Index != index || event.Token == nil || *event.Token != tokens[index] {
			t.Errorf("token event %d = %+v", index, event)
		}
		text.WriteString(event.Delta)
	}
	if text.String() != "hellohello world" {
		t.Errorf("deltas joined = %q, want %q", text.String(), "hellohello world")
	}

	last := tokenEvents[len(tokenEvents)-2]
	if last.State != harmony.StateContent.String() || last.Channel != harmony.ChannelFinal || last.Role != chat.RoleAssistant {
		t.Errorf("event inside the final body = %+v", last)
	}

	messages := eventsOfKind(events, "message")
	if len(messages) != 2 {
		t.Fatalf("got %d message events, want 2", len(messages))
	}
	if messages[0].Message.Channel != harmony.ChannelAnalysis || messages[1].Message.TextContent() != "hello world" {
		t.Errorf("messages = %+v, %+v", messages[0].Message, messages[1].Message)
	}
	if messages[1].Index != 1 {
		t.Errorf("second message index = %d", messages[1].Index)
	}
}

func TestStreamEndOfInputFinishesBody(t *testing.T) {
	t.Parallel()
	encoding := mustEncoding(t)

	tokens, err := encoding.EncodeWithSpecialTokens("<|channel|>final<|message|>hello world")
	if err != nil {
		t.Fatalf("EncodeWithSpecialTokens: %v", err)
	}
	messages := eventsOfKind(decodeEvents(t, mustExecute(t, joinIDs(tokens), "stream", "--role", "assistant")), "message")
	if len(messages) != 1 || messages[0].Message.TextContent() != "hello world" {
		t.Fatalf("message events = %+v", messages)
	}
}

func TestStreamGrammarErrorEvent(t *testing.T) {
	t.Parallel()

	result := execute(t, "200006 117 115 101 114 200006", "stream", "--session", "s")
	if result.err == nil {
		t.Fatal("a <|start|> inside a header was accepted")
	}
	errorsSeen := eventsOfKind(decodeEvents(t, result.stdout), "error")
	if len(errorsSeen) != 1 || errorsSeen[0].Index != 5 || !strings.Contains(errorsSeen[0].Error, "header") {
		t.Errorf("error events = %+v", errorsSeen)
	}
}

func TestStreamSnapshotAndResume(t *testing.T) {
	t.Parallel()
	encoding := mustEncoding(t)

	tokens, err := encoding.EncodeWithSpecialTokens("<|start|>assistant<|channel|>final<|message|>hello world<|end|>")
	if err != nil {
		t.Fatalf("EncodeWithSpecialTokens: %v", err)
	}
	// Split after "hello", inside the body.
	split := len(tokens) - 2
	snapshot := filepath.Join(t.TempDir(), "parser.cbor")

	first := decodeEvents(t, mustExecute(t, joinIDs(tokens[:split]),
		"stream", "--no-eos", "--snapshot", snapshot))
	if messages := eventsOfKind(first, "message"); len(messages) != 0 {
		t.Fatalf("first half completed messages: %+v", messages)
	}
	if info, err := os.Stat(snapshot); err != nil || info.Size() == 0 {
		t.Fatalf("snapshot not written: %v", err)
	}

	second := decodeEvents(t, mustExecute(t, joinIDs(tokens[split:]), "stream", "--resume", snapshot))
	tokenEvents := eventsOfKind(second, "token")
	if len(tokenEvents) != 2 || tokenEvents[0].Index != split {
		t.Fatalf("resumed token events = %+v, want 2 starting at %d", tokenEvents, split)
	}
	if tokenEvents[0].Delta != " world" {
		t.Errorf("resumed delta = %q, want %q", tokenEvents[0].Delta, " world")
	}
	messages := eventsOfKind(second, "message")
	if len(messages) != 1 || messages[0].Message.TextContent() != "hello world" {
		t.Fatalf("resumed message events = %+v", messages)
	}
}

func TestStreamFlagConflicts(t *testing.T) {
	t.Parallel()

	result := execute(t, "", "stream", "--role", "assistant", "--resume", "state.cbor")
	if result.err == nil || !strings.Contains(result.err.Error(), "mutually exclusive") {
		t.Errorf("error = %v, want mutually exclusive", result.err)
	}
	result = execute(t, "", "stream", "--role", "narrator")
	if result.err == nil || !strings.Contains(result.err.Error(), "--role") {
		t.Errorf("error = %v, want a --role error", result.err)
	}
}
