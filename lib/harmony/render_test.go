// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package harmony

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/bureau-foundation/harmony/lib/chat"
)

func TestRenderMessage(t *testing.T) {
	t.Parallel()
	encoding := newTestEncoding(t)

	tests := []struct {
		name    string
		message chat.Message
		want    string
	}{
		{
			name:    "user",
			message: chat.TextMessage(chat.RoleUser, "hello world"),
			want:    "<|start|>user<|message|>hello world<|end|>",
		},
		{
			name:    "named author",
			message: chat.TextMessage(chat.RoleUser, "hi").WithName("alice"),
			want:    "<|start|>user:alice<|message|>hi<|end|>",
		},
		{
			name:    "channel",
			message: chat.TextMessage(chat.RoleAssistant, "4").WithChannel("final"),
			want:    "<|start|>assistant<|channel|>final<|message|>4<|end|>",
		},
		{
			name: "recipient without content type",
			message: chat.TextMessage(chat.RoleAssistant, `{"query":"harmony"}`).
				WithChannel("analysis").WithRecipient("browser.search"),
			want: `<|start|>assistant to=browser.search<|channel|>analysis<|message|>{"query":"harmony"}<|call|>`,
		},
		{
			name: "constrained content type",
			message: chat.TextMessage(chat.RoleAssistant, `{"location": "Tokyo"}`).
				WithChannel("commentary").WithRecipient("functions.get_weather").WithContentType("<|constrain|>json"),
			want: `<|start|>assistant to=functions.get_weather<|channel|>commentary <|constrain|>json<|message|>{"location": "Tokyo"}<|call|>`,
		},
		{
			name:    "plain content type",
			message: chat.TextMessage(chat.RoleAssistant, "x = 1").WithChannel("analysis").WithContentType("code"),
			want:    "<|start|>assistant<|channel|>analysis code<|message|>x = 1<|call|>",
		},
		{
			name:    "recipient all is not rendered",
			message: chat.TextMessage(chat.RoleAssistant, "done").WithChannel("final").WithRecipient(RecipientAll),
			want:    "<|start|>assistant<|channel|>final<|message|>done<|end|>",
		},
		{
			name: "tool response",
			message: chat.TextMessage(chat.RoleTool, `{"result": "https://openai.com/"}`).
				WithName("browser.search").WithChannel("commentary").WithRecipient("assistant"),
			want: `<|start|>browser.search to=assistant<|channel|>commentary<|message|>{"result": "https://openai.com/"}<|end|>`,
		},
		{
			name:    "special text in content stays text",
			message: chat.TextMessage(chat.RoleUser, "type <|end|> to stop"),
			want:    "<|start|>user<|message|>type <|end|> to stop<|end|>",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			tokens, err := encoding.RenderMessage(test.message)
			if err != nil {
				t.Fatalf("RenderMessage: %v", err)
			}
			if got := decode(t, encoding, tokens); got != test.want {
				t.Errorf("rendered\n%s\nwant\n%s", got, test.want)
			}
		})
	}
}

func TestRenderContentTextIsNeverSpecial(t *testing.T) {
	t.Parallel()
	encoding := newTestEncoding(t)

	tokens, err := encoding.RenderMessage(chat.TextMessage(chat.RoleUser, "<|end|>"))
	if err != nil {
		t.Fatalf("RenderMessage: %v", err)
	}
	var endCount int
	for _, token := range tokens {
		if token == EndID {
			endCount++
		}
	}
	if endCount != 1 {
		t.Errorf("rendered %d <|end|> ids, want only the terminator", endCount)
	}
}

func TestRenderMessageErrors(t *testing.T) {
	t.Parallel()
	encoding := newTestEncoding(t)

	tests := []struct {
		name    string
		message chat.Message
		kind    ErrorKind
	}{
		{"unknown role", chat.TextMessage(chat.Role("narrator"), "x"), KindVocabulary},
		{"no content", chat.NewMessage(chat.RoleUser), KindGrammar},
		{"tool without name", chat.TextMessage(chat.RoleTool, "{}"), KindGrammar},
		{"system content outside system", chat.NewMessage(chat.RoleUser, chat.System(chat.DefaultSystemContent())), KindGrammar},
		{"developer content outside developer", chat.NewMessage(chat.RoleSystem, chat.Developer(chat.DeveloperContent{Instructions: "x"})), KindGrammar},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			_, err := encoding.RenderMessage(test.message)
			if err == nil {
				t.Fatal("RenderMessage succeeded")
			}
			if kind, _ := KindOf(err); kind != test.kind {
				t.Errorf("kind = %v, want %v (error %v)", kind, test.kind, err)
			}
		})
	}

	_, err := encoding.RenderMessage(chat.TextMessage(chat.Role("narrator"), "x"))
	if !errors.Is(err, ErrUnknownRole) {
		t.Errorf("unknown role error %v does not wrap ErrUnknownRole", err)
	}
}

func TestRenderValidChannels(t *testing.T) {
	t.Parallel()
	encoding := newTestEncoding(t)

	conversation := chat.NewConversation(
		chat.TextMessage(chat.RoleAssistant, "hmm").WithChannel("scratchpad"),
	)
	config := &RenderConfig{ValidChannels: []string{ChannelAnalysis, ChannelFinal}}
	_, err := encoding.RenderConversation(conversation, config)
	if kind, _ := KindOf(err); kind != KindGrammar {
		t.Fatalf("error = %v, want grammar kind", err)
	}
	if !strings.Contains(err.Error(), "message 0") {
		t.Errorf("error %q does not locate the message", err)
	}

	if _, err := encoding.RenderConversation(conversation, nil); err != nil {
		t.Errorf("without a whitelist: %v", err)
	}
}

func TestRenderConversationMatchesMessages(t *testing.T) {
	t.Parallel()
	encoding := newTestEncoding(t)

	message := chat.TextMessage(chat.RoleUser, "hello")
	conversation := chat.NewConversation(message)

	messageTokens, err := encoding.RenderMessage(message)
	if err != nil {
		t.Fatalf("RenderMessage: %v", err)
	}
	conversationTokens, err := encoding.RenderConversation(conversation, nil)
	if err != nil {
		t.Fatalf("RenderConversation: %v", err)
	}
	if !reflect.DeepEqual(messageTokens, conversationTokens) {
		t.Errorf("RenderConversation = %v, want %v", conversationTokens, messageTokens)
	}

	completion, err := encoding.RenderForCompletion(conversation, chat.RoleAssistant, nil)
	if err != nil {
		t.Fatalf("RenderForCompletion: %v", err)
	}
	if !reflect.DeepEqual(completion[:len(conversationTokens)], conversationTokens) {
		t.Errorf("completion does not start with the conversation")
	}
	if got := decode(t, encoding, completion[len(conversationTokens):]); got != "<|start|>assistant" {
		t.Errorf("completion suffix = %q, want %q", got, "<|start|>assistant")
	}
}

func TestRenderForCompletionRejectsUnknownRole(t *testing.T) {
	t.Parallel()
	encoding := newTestEncoding(t)

	_, err := encoding.RenderForCompletion(chat.NewConversation(), chat.Role("narrator"), nil)
	if !errors.Is(err, ErrUnknownRole) {
		t.Errorf("error = %v, want ErrUnknownRole", err)
	}
}

func TestRenderForTraining(t *testing.T) {
	t.Parallel()
	encoding := newTestEncoding(t)

	question := chat.TextMessage(chat.RoleUser, "hello")
	tests := []struct {
		name   string
		last   chat.Message
		suffix string
	}{
		{"final answer", chat.TextMessage(chat.RoleAssistant, "world").WithChannel(ChannelFinal), "<|return|>"},
		{"analysis", chat.TextMessage(chat.RoleAssistant, "world").WithChannel(ChannelAnalysis), "<|end|>"},
		{"user final channel", chat.TextMessage(chat.RoleUser, "world").WithChannel(ChannelFinal), "<|end|>"},
		{"tool call", chat.TextMessage(chat.RoleAssistant, "{}").WithChannel(ChannelCommentary).WithRecipient("functions.f"), "<|call|>"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			conversation := chat.NewConversation(question, test.last)
			training, err := encoding.RenderForTraining(conversation, nil)
			if err != nil {
				t.Fatalf("RenderForTraining: %v", err)
			}
			replay, err := encoding.RenderConversation(conversation, nil)
			if err != nil {
				t.Fatalf("RenderConversation: %v", err)
			}
			text := decode(t, encoding, training)
			if !strings.HasSuffix(text, test.suffix) {
				t.Errorf("training render %q does not end with %s", text, test.suffix)
			}
			if len(training) != len(replay) {
				t.Fatalf("training render has %d tokens, replay %d", len(training), len(replay))
			}
			if !reflect.DeepEqual(training[:len(training)-1], replay[:len(replay)-1]) {
				t.Error("training render differs from replay before the last token")
			}
			if test.suffix != "<|return|>" && !reflect.DeepEqual(training, replay) {
				t.Error("non-final training render differs from replay")
			}
		})
	}
}

func TestRenderForTrainingEmpty(t *testing.T) {
	t.Parallel()
	encoding := newTestEncoding(t)
	tokens, err := encoding.RenderForTraining(chat.NewConversation(), nil)
	if err != nil {
		t.Fatalf("RenderForTraining: %v", err)
	}
	if len(tokens) != 0 {
		t.Errorf("tokens = %v, want none", tokens)
	}
}

func TestSystemPrompt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		system        chat.SystemContent
		functionTools bool
		want          string
	}{
		{
			name:   "default",
			system: chat.DefaultSystemContent(),
			want: "You are ChatGPT, a large language model trained by OpenAI.\n" +
				"Knowledge cutoff: 2024-06\n\n" +
				"Reasoning: medium\n\n" +
				"# Valid channels: analysis, commentary, final. Channel must be included for every message.",
		},
		{
			name:          "function tools note",
			system:        chat.DefaultSystemContent(),
			functionTools: true,
			want: "You are ChatGPT, a large language model trained by OpenAI.\n" +
				"Knowledge cutoff: 2024-06\n\n" +
				"Reasoning: medium\n\n" +
				"# Valid channels: analysis, commentary, final. Channel must be included for every message.\n" +
				"Calls to these tools must go to the commentary channel: 'functions'.",
		},
		{
			name: "dates and effort",
			system: chat.SystemContent{
				ModelIdentity:         "You are a test model.",
				ReasoningEffort:       chat.ReasoningHigh,
				ConversationStartDate: "2025-06-28",
				KnowledgeCutoff:       "2024-06",
			},
			want: "You are a test model.\nKnowledge cutoff: 2024-06\nCurrent date: 2025-06-28\n\nReasoning: high",
		},
		{
			name: "optional channels",
			system: chat.SystemContent{
				ChannelConfig: &chat.ChannelConfig{ValidChannels: []string{"analysis", "final"}},
			},
			want: "# Valid channels: analysis, final.",
		},
		{
			name:   "empty",
			system: chat.SystemContent{},
			want:   "",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got, err := SystemPrompt(test.system, test.functionTools)
			if err != nil {
				t.Fatalf("SystemPrompt: %v", err)
			}
			if got != test.want {
				t.Errorf("SystemPrompt =\n%s\nwant\n%s", got, test.want)
			}
		})
	}
}

func TestSystemPromptRejectsUnknownEffort(t *testing.T) {
	t.Parallel()
	_, err := SystemPrompt(chat.SystemContent{ReasoningEffort: "Extreme"}, false)
	if kind, _ := KindOf(err); kind != KindVocabulary {
		t.Errorf("error = %v, want vocabulary kind", err)
	}
}

func TestDeveloperPromptWithFunctions(t *testing.T) {
	t.Parallel()

	developer := chat.DeveloperContent{Instructions: "Always respond in riddles"}.WithFunctionTools(
		chat.NewToolDescription("get_location", "Gets the location of the user.", nil),
		chat.NewToolDescription("get_current_weather", "Gets the current weather in the provided location.", json.RawMessage(`{
			"type": "object",
			"properties": {
				"location": {"type": "string", "description": "The city and state, e.g. San Francisco, CA"},
				"format": {"type": "string", "enum": ["celsius", "fahrenheit"], "default": "celsius"}
			},
			"required": ["location"]
		}`)),
	)
	got, err := DeveloperPrompt(developer)
	if err != nil {
		t.Fatalf("DeveloperPrompt: %v", err)
	}
	want := `# Instructions

Always respond in riddles

# Tools

## functions

namespace functions {

// Gets the location of the user.
type get_location = () => any;

// Gets the current weather in the provided location.
type get_current_weather = (_: {
// The city and state, e.g. San Francisco, CA
location: string,
format?: "celsius" | "fahrenheit", // default: celsius
}) => any;

} // namespace functions`
	if got != want {
		t.Errorf("DeveloperPrompt =\n%s\nwant\n%s", got, want)
	}
}

func TestToolsSectionBuiltins(t *testing.T) {
	t.Parallel()

	system := chat.SystemContent{}.WithBrowserTool().WithPythonTool()
	got, err := ToolsSection(system.Tools)
	if err != nil {
		t.Fatalf("ToolsSection: %v", err)
	}
	browser := strings.Index(got, "## browser")
	python := strings.Index(got, "## python")
	if browser < 0 || python < 0 || browser > python {
		t.Fatalf("namespaces missing or out of order:\n%s", got)
	}
	for _, fragment := range []string{
		"namespace browser {",
		"type search = (_: {\nquery: string,\ntopn?: number, // default: 10\nsource?: string,\n}) => any;",
		"} // namespace browser",
	} {
		if !strings.Contains(got, fragment) {
			t.Errorf("tools section lacks %q", fragment)
		}
	}
	// A namespace without individual tools is described in plain text.
	if strings.Contains(got, "namespace python {") {
		t.Error("python namespace rendered as a TypeScript namespace")
	}
	if strings.Contains(got[python:], "// Use this tool") {
		t.Error("python description rendered as comments")
	}
}

func TestRenderSystemMessageWithFunctionTools(t *testing.T) {
	t.Parallel()
	encoding := newTestEncoding(t)

	developer := chat.DeveloperContent{}.WithFunctionTools(chat.NewToolDescription("ping", "Pings.", nil))
	conversation := chat.NewConversation(
		chat.NewMessage(chat.RoleSystem, chat.System(chat.DefaultSystemContent())),
		chat.NewMessage(chat.RoleDeveloper, chat.Developer(developer)),
	)
	tokens, err := encoding.RenderConversation(conversation, nil)
	if err != nil {
		t.Fatalf("RenderConversation: %v", err)
	}
	text := decode(t, encoding, tokens)
	if !strings.Contains(text, "Calls to these tools must go to the commentary channel: 'functions'.<|end|>") {
		t.Errorf("system message lacks the functions routing note:\n%s", text)
	}
	if !strings.Contains(text, "<|start|>developer<|message|># Tools\n\n## functions\n\nnamespace functions {") {
		t.Errorf("developer message not rendered as expected:\n%s", text)
	}
}
