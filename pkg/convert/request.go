package convert

import (
	"encoding/json"
	"fmt"
	"strings"
)

// IsGeminiModel reports whether model names a Gemini target, matched
// case-insensitively by prefix as required for thinking-signature
// placement.
func IsGeminiModel(model string) bool {
	return strings.HasPrefix(strings.ToLower(model), "gemini")
}

// RewritePath returns the OpenAI-shaped path and true when path is an
// Anthropic messages endpoint ("/v1/messages" or "/messages"); otherwise
// it returns path unchanged and false.
func RewritePath(path string) (string, bool) {
	switch path {
	case "/v1/messages", "/messages":
		return "/chat/completions", true
	default:
		return path, false
	}
}

// ConvertRequest translates an Anthropic Messages request body into an
// OpenAI Chat Completions request body. body is expected to already carry
// the model-mapping result (§4.E runs before this).
func ConvertRequest(body []byte) ([]byte, error) {
	var req anthropicRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("convert: decode anthropic request: %w", err)
	}

	gemini := IsGeminiModel(req.Model)

	out := openAIRequest{
		Model:     req.Model,
		Stream:    req.Stream,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil {
		out.Temperature = req.Temperature
	}
	if req.TopP != nil {
		out.TopP = req.TopP
	}
	if len(req.StopSequences) > 0 {
		out.Stop = req.StopSequences
	}

	if sys, ok, err := systemMessage(req.System); err != nil {
		return nil, err
	} else if ok {
		out.Messages = append(out.Messages, sys)
	}

	for _, m := range req.Messages {
		converted, err := convertMessage(m, gemini)
		if err != nil {
			return nil, err
		}
		out.Messages = append(out.Messages, converted...)
	}

	if len(req.Tools) > 0 {
		out.Tools = make([]openAITool, len(req.Tools))
		for i, t := range req.Tools {
			out.Tools[i] = openAITool{
				Type: "function",
				Function: openAIFunctionDef{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.InputSchema,
				},
			}
		}
	}

	if len(req.ToolChoice) > 0 {
		choice, err := convertToolChoice(req.ToolChoice)
		if err != nil {
			return nil, err
		}
		out.ToolChoice = choice
	}

	if req.Thinking != nil && !gemini {
		out.Reasoning = &reasoning{Effort: thinkingEffort(req.Thinking.BudgetTokens), Enabled: true}
	}

	return json.Marshal(out)
}

func thinkingEffort(budgetTokens int) string {
	switch {
	case budgetTokens == 0:
		return "medium"
	case budgetTokens <= 1024:
		return "low"
	case budgetTokens <= 8192:
		return "medium"
	default:
		return "high"
	}
}

// systemMessage decodes the Anthropic "system" field, which is either a
// bare string or an array of content blocks preserving cache_control.
func systemMessage(raw json.RawMessage) (openAIMessage, bool, error) {
	if len(raw) == 0 {
		return openAIMessage{}, false, nil
	}

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return openAIMessage{}, false, nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return openAIMessage{}, false, fmt.Errorf("convert: decode system string: %w", err)
		}
		return openAIMessage{Role: "system", Content: s}, true, nil
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return openAIMessage{}, false, fmt.Errorf("convert: decode system array: %w", err)
	}
	parts := make([]openAIContentPart, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, openAIContentPart{Type: "text", Text: b.Text, CacheControl: b.CacheControl})
	}
	return openAIMessage{Role: "system", Content: parts}, true, nil
}

// convertMessage expands one Anthropic message into zero or more OpenAI
// messages: a user message with tool_result blocks becomes one "tool"
// message per block; everything else becomes a single message.
func convertMessage(m anthropicMessage, gemini bool) ([]openAIMessage, error) {
	trimmed := strings.TrimSpace(string(m.Content))
	if trimmed != "" && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(m.Content, &s); err != nil {
			return nil, fmt.Errorf("convert: decode message content string: %w", err)
		}
		return []openAIMessage{{Role: m.Role, Content: s}}, nil
	}

	var blocks []contentBlock
	if len(trimmed) > 0 {
		if err := json.Unmarshal(m.Content, &blocks); err != nil {
			return nil, fmt.Errorf("convert: decode message content blocks: %w", err)
		}
	}

	switch m.Role {
	case "user":
		if hasToolResult(blocks) {
			return convertToolResults(blocks), nil
		}
		return []openAIMessage{convertUserContent(blocks)}, nil
	case "assistant":
		msg, err := convertAssistantContent(blocks, gemini)
		if err != nil {
			return nil, err
		}
		return []openAIMessage{msg}, nil
	default:
		return []openAIMessage{{Role: m.Role, Content: blocksToText(blocks)}}, nil
	}
}

func hasToolResult(blocks []contentBlock) bool {
	for _, b := range blocks {
		if b.Type == "tool_result" {
			return true
		}
	}
	return false
}

func convertToolResults(blocks []contentBlock) []openAIMessage {
	var out []openAIMessage
	for _, b := range blocks {
		if b.Type != "tool_result" {
			continue
		}
		out = append(out, openAIMessage{
			Role:       "tool",
			ToolCallID: b.ToolUseID,
			Content:    toolResultContent(b.Content),
		})
	}
	return out
}

// toolResultContent passes a string through unchanged; a JSON object/array
// is re-serialised to a string.
func toolResultContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

func convertUserContent(blocks []contentBlock) openAIMessage {
	parts := make([]openAIContentPart, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case "text":
			parts = append(parts, openAIContentPart{Type: "text", Text: b.Text, CacheControl: b.CacheControl})
		case "image":
			if b.Source == nil {
				continue
			}
			url := b.Source.URL
			if b.Source.Type == "base64" {
				url = fmt.Sprintf("data:%s;base64,%s", b.Source.MediaType, b.Source.Data)
			}
			parts = append(parts, openAIContentPart{Type: "image_url", ImageURL: &openAIImageURL{URL: url}})
		}
	}
	return openAIMessage{Role: "user", Content: parts}
}

func convertAssistantContent(blocks []contentBlock, gemini bool) (openAIMessage, error) {
	msg := openAIMessage{Role: "assistant"}

	var text strings.Builder
	var toolCalls []openAIToolCall
	var signature string

	for _, b := range blocks {
		switch b.Type {
		case "text":
			text.WriteString(b.Text)
		case "tool_use":
			args, err := inputToArguments(b.Input)
			if err != nil {
				return openAIMessage{}, err
			}
			toolCalls = append(toolCalls, openAIToolCall{
				ID:   b.ID,
				Type: "function",
				Function: openAIFunction{
					Name:      b.Name,
					Arguments: args,
				},
			})
		case "thinking":
			signature = b.Signature
			if gemini {
				msg.Thinking = nil
			} else {
				msg.Thinking = &openAIThinking{Content: b.Thinking, Signature: b.Signature}
			}
		}
	}

	if text.Len() > 0 {
		msg.Content = text.String()
	}

	if signature != "" && gemini {
		for i := range toolCalls {
			toolCalls[i].ExtraContent = &extraContent{Google: &googleExtra{ThoughtSignature: signature}}
		}
	}

	msg.ToolCalls = toolCalls
	return msg, nil
}

func inputToArguments(input json.RawMessage) (string, error) {
	if len(input) == 0 {
		return "{}", nil
	}
	return string(input), nil
}

func blocksToText(blocks []contentBlock) string {
	var sb strings.Builder
	for _, b := range blocks {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// convertToolChoice maps Anthropic's tool_choice shape to OpenAI's.
func convertToolChoice(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("convert: decode tool_choice string: %w", err)
		}
		switch s {
		case "auto", "any":
			return json.Marshal("auto")
		case "none":
			return json.Marshal("none")
		default:
			return json.Marshal("auto")
		}
	}

	var obj struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("convert: decode tool_choice object: %w", err)
	}
	if obj.Type == "tool" {
		return json.Marshal(map[string]interface{}{
			"type":     "function",
			"function": map[string]string{"name": obj.Name},
		})
	}
	return json.Marshal("auto")
}
