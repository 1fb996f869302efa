package convert

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ConvertResponse translates a non-streaming OpenAI Chat Completions
// response body into an Anthropic Messages response body. Callers that
// receive a text/event-stream response must not call this; streams are
// piped through unchanged.
func ConvertResponse(body []byte) ([]byte, error) {
	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("convert: decode openai response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("convert: openai response has no choices")
	}
	choice := resp.Choices[0]
	msg := choice.Message

	out := anthropicResponse{
		Type:         "message",
		Role:         "assistant",
		StopReason:   normalizeStopReason(choice.FinishReason),
		StopSequence: []byte("null"),
	}

	var blocks []contentBlock
	emittedThinking := false

	if signature, thinkingText, ok := extractThoughtSignature(msg); ok {
		blocks = append(blocks, contentBlock{Type: "thinking", Thinking: thinkingText, Signature: signature})
		emittedThinking = true
	}

	if msg.Content != "" {
		blocks = append(blocks, contentBlock{Type: "text", Text: msg.Content})
	} else if len(msg.ToolCalls) > 0 && !emittedThinking {
		blocks = append(blocks, contentBlock{Type: "text", Text: ""})
	}

	for _, tc := range msg.ToolCalls {
		input := parseToolArguments(tc.Function.Arguments)
		blocks = append(blocks, contentBlock{
			Type:  "tool_use",
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: input,
		})
	}

	for _, ann := range msg.Annotations {
		if ann.Type != "url_citation" || ann.URLCitation == nil {
			continue
		}
		toolUseID := "srvtoolu_" + uuid.NewString()
		blocks = append(blocks,
			contentBlock{Type: "server_tool_use", ID: toolUseID, Name: "web_search", Input: json.RawMessage(`{"query":""}`)},
			webSearchResultBlock(toolUseID, ann.URLCitation),
		)
	}

	out.Content = blocks

	if resp.Usage != nil {
		out.Usage = anthropicUsage{
			InputTokens:          resp.Usage.PromptTokens - resp.Usage.cachedTokens(),
			OutputTokens:         resp.Usage.CompletionTokens,
			CacheReadInputTokens: resp.Usage.cachedTokens(),
		}
	}

	return json.Marshal(out)
}

// webSearchResultBlock is built via a raw map because "content" on this
// block type is an array of {type, url, title} rather than the string/
// object shapes contentBlock's Content field otherwise carries.
func webSearchResultBlock(toolUseID string, citation *urlCitation) contentBlock {
	content, _ := json.Marshal([]map[string]string{
		{"type": "web_search_result", "url": citation.URL, "title": citation.Title},
	})
	return contentBlock{
		Type:      "web_search_tool_result",
		ToolUseID: toolUseID,
		Content:   content,
	}
}

func extractThoughtSignature(msg openAIRespMessage) (signature, thinkingText string, ok bool) {
	if msg.Thinking != nil && msg.Thinking.Signature != "" {
		return msg.Thinking.Signature, msg.Thinking.Content, true
	}
	for _, tc := range msg.ToolCalls {
		if tc.ExtraContent != nil && tc.ExtraContent.Google != nil && tc.ExtraContent.Google.ThoughtSignature != "" {
			return tc.ExtraContent.Google.ThoughtSignature, "", true
		}
	}
	for _, tc := range msg.ToolCalls {
		if tc.Function.ThoughtSignature != "" {
			return tc.Function.ThoughtSignature, "", true
		}
	}
	return "", "", false
}

func parseToolArguments(arguments string) json.RawMessage {
	var v interface{}
	if err := json.Unmarshal([]byte(arguments), &v); err != nil {
		fallback, _ := json.Marshal(map[string]string{"text": arguments})
		return fallback
	}
	return json.RawMessage(arguments)
}

// normalizeStopReason maps an OpenAI finish_reason to an Anthropic
// stop_reason, defaulting unrecognized values to "end_turn".
func normalizeStopReason(finishReason string) string {
	switch finishReason {
	case "stop":
		return "end_turn"
	case "length":
		return "max_tokens"
	case "tool_calls":
		return "tool_use"
	case "content_filter":
		return "stop_sequence"
	default:
		return "end_turn"
	}
}
