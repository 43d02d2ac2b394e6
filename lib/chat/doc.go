// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chat defines the conversation data model consumed by the
// Harmony codec.
//
// A [Conversation] is an ordered list of [Message] values. Each message
// has an [Author] (a closed [Role] plus an optional name), a non-empty
// list of [Content] parts, and optional channel, recipient and content
// type header fields. Content is a closed tagged variant: plain text,
// [SystemContent] (model identity, reasoning effort, dates, channel
// policy, tools) or [DeveloperContent] (instructions and tools).
//
// The JSON shape is the canonical record form used on the wire and in
// files: role as a lowercase string, author name flattened beside it,
// content as a list of records discriminated by "type". A bare string
// is accepted in place of a one-element text list, and a message with a
// single text part is written back in that shorthand. The same records
// round-trip through CBOR via lib/codec. [DecodeConversation] also
// reads YAML and JSON with comments.
//
// Tool catalogs ([ToolNamespaceConfig]) carry JSON-Schema parameter
// definitions verbatim, preserving key order, because the prompt
// rendering of a tool follows the order its author wrote.
package chat
