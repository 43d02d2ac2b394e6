// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package harmony

import "fmt"

// FormattingToken is a structural role in the message grammar. An
// [Encoding] maps each one to the text of a special token in its
// vocabulary.
type FormattingToken int

const (
	TokenStart FormattingToken = iota
	TokenMessage
	TokenEndMessage
	// TokenReturn ends the final message of a training example.
	TokenReturn
	// TokenCall ends an assistant message addressed to a tool.
	TokenCall
	TokenRefusal
	TokenConstrain
	TokenChannel
	TokenBeginUntrusted
	TokenEndUntrusted
)

var formattingTokenNames = map[FormattingToken]string{
	TokenStart:          "Start",
	TokenMessage:        "Message",
	TokenEndMessage:     "EndMessage",
	TokenReturn:         "Return",
	TokenCall:           "Call",
	TokenRefusal:        "Refusal",
	TokenConstrain:      "Constrain",
	TokenChannel:        "Channel",
	TokenBeginUntrusted: "BeginUntrusted",
	TokenEndUntrusted:   "EndUntrusted",
}

func (token FormattingToken) String() string {
	if name, ok := formattingTokenNames[token]; ok {
		return name
	}
	return fmt.Sprintf("FormattingToken(%d)", int(token))
}

// Special token text of the Harmony grammar.
const (
	StartText          = "<|start|>"
	MessageText        = "<|message|>"
	EndText            = "<|end|>"
	ReturnText         = "<|return|>"
	CallText           = "<|call|>"
	RefusalText        = "<|refusal|>"
	ConstrainText      = "<|constrain|>"
	ChannelText        = "<|channel|>"
	UntrustedText      = "<|untrusted|>"
	EndUntrustedText   = "<|end_untrusted|>"
	StartOfTextText    = "<|startoftext|>"
	EndOfTextText      = "<|endoftext|>"
	reservedTextFormat = "<|reserved_%d|>"
)

// Ids of the Harmony special tokens in o200k_harmony.
const (
	StartOfTextID Rank = 199998
	EndOfTextID   Rank = 199999
	ReturnID      Rank = 200002
	ConstrainID   Rank = 200003
	ChannelID     Rank = 200005
	StartID       Rank = 200006
	EndID         Rank = 200007
	MessageID     Rank = 200008
	CallID        Rank = 200012

	// LastReservedID is the highest reserved placeholder id.
	LastReservedID Rank = 201088
)

// ReservedTokenText returns the placeholder text of a reserved id.
func ReservedTokenText(id Rank) string {
	return fmt.Sprintf(reservedTextFormat, id)
}

// HarmonySpecialTokens returns the special tokens of o200k_harmony:
// the named grammar tokens plus a reserved placeholder for every other
// id from 200000 through [LastReservedID].
func HarmonySpecialTokens() map[string]Rank {
	named := map[string]Rank{
		StartOfTextText: StartOfTextID,
		EndOfTextText:   EndOfTextID,
		ReturnText:      ReturnID,
		ConstrainText:   ConstrainID,
		ChannelText:     ChannelID,
		StartText:       StartID,
		EndText:         EndID,
		MessageText:     MessageID,
		CallText:        CallID,
	}
	taken := make(map[Rank]bool, len(named))
	for _, id := range named {
		taken[id] = true
	}
	specials := make(map[string]Rank, int(LastReservedID-199998)+1)
	for text, id := range named {
		specials[text] = id
	}
	for id := Rank(200000); id <= LastReservedID; id++ {
		if !taken[id] {
			specials[ReservedTokenText(id)] = id
		}
	}
	return specials
}

// harmonyFormatting maps the grammar roles to o200k_harmony text.
// Refusal and the untrusted markers are mapped but have no id in the
// vocabulary; rendering them fails.
func harmonyFormatting() map[FormattingToken]string {
	return map[FormattingToken]string{
		TokenStart:          StartText,
		TokenMessage:        MessageText,
		TokenEndMessage:     EndText,
		TokenReturn:         ReturnText,
		TokenRefusal:        RefusalText,
		TokenConstrain:      ConstrainText,
		TokenChannel:        ChannelText,
		TokenCall:           CallText,
		TokenBeginUntrusted: UntrustedText,
		TokenEndUntrusted:   EndUntrustedText,
	}
}
