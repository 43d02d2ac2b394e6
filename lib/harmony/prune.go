// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package harmony

import "github.com/bureau-foundation/harmony/lib/chat"

// turn is a contiguous slice of messages forming one logical exchange.
// A turn starts at a user message and runs until the next one; the
// messages before the first user message (system, developer) form a
// leading turn of their own.
//
// Examples of a single turn:
//   - user → assistant/analysis → assistant/final
//   - user → assistant/analysis → assistant/commentary (call) → tool → assistant/final
type turn struct {
	startIndex int // inclusive
	endIndex   int // exclusive
}

// identifyTurns partitions messages into turns. Returns nil if
// messages is empty.
func identifyTurns(messages []chat.Message) []turn {
	if len(messages) == 0 {
		return nil
	}
	var turns []turn
	currentStart := 0
	for index, message := range messages {
		if message.Author.Role == chat.RoleUser && index > currentStart {
			turns = append(turns, turn{startIndex: currentStart, endIndex: index})
			currentStart = index
		}
	}
	return append(turns, turn{startIndex: currentStart, endIndex: len(messages)})
}

// prunedAnalysis marks the analysis messages that a completion render
// leaves out: those followed, within the same turn, by an assistant
// message on the final channel. Analysis in a turn that has not reached
// a final answer (for example one waiting on a tool result) is kept.
func prunedAnalysis(messages []chat.Message) []bool {
	dropped := make([]bool, len(messages))
	for _, current := range identifyTurns(messages) {
		finalAhead := false
		for index := current.endIndex - 1; index >= current.startIndex; index-- {
			message := messages[index]
			if message.Channel == ChannelAnalysis && finalAhead {
				dropped[index] = true
			}
			if message.Author.Role == chat.RoleAssistant && message.Channel == ChannelFinal {
				finalAhead = true
			}
		}
	}
	return dropped
}
