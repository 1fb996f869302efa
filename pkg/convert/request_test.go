package convert

import (
	"encoding/json"
	"testing"
)

func decodeOpenAIRequest(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("result is not valid JSON: %v\n%s", err, body)
	}
	return m
}

func TestRewritePath(t *testing.T) {
	cases := map[string]struct {
		want     string
		rewrite  bool
	}{
		"/v1/messages": {"/chat/completions", true},
		"/messages":     {"/chat/completions", true},
		"/v1/other":     {"/v1/other", false},
	}
	for path, c := range cases {
		got, rewrite := RewritePath(path)
		if got != c.want || rewrite != c.rewrite {
			t.Errorf("RewritePath(%q) = (%q, %v), want (%q, %v)", path, got, rewrite, c.want, c.rewrite)
		}
	}
}

func TestIsGeminiModel(t *testing.T) {
	if !IsGeminiModel("Gemini-1.5-Pro") {
		t.Error("expected case-insensitive gemini prefix match")
	}
	if IsGeminiModel("claude-3-opus") {
		t.Error("unexpected gemini match")
	}
}

func TestConvertRequestSimpleTextMessage(t *testing.T) {
	body := []byte(`{"model":"glm-4","messages":[{"role":"user","content":"hi"}]}`)
	out, err := ConvertRequest(body)
	if err != nil {
		t.Fatalf("ConvertRequest: %v", err)
	}
	m := decodeOpenAIRequest(t, out)
	msgs := m["messages"].([]interface{})
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	first := msgs[0].(map[string]interface{})
	if first["role"] != "user" {
		t.Errorf("role = %v, want user", first["role"])
	}
	if first["content"] != "hi" {
		t.Errorf("content = %v, want hi (string passthrough)", first["content"])
	}
}

func TestConvertRequestSystemString(t *testing.T) {
	body := []byte(`{"model":"glm-4","system":"be nice","messages":[{"role":"user","content":"hi"}]}`)
	out, err := ConvertRequest(body)
	if err != nil {
		t.Fatalf("ConvertRequest: %v", err)
	}
	m := decodeOpenAIRequest(t, out)
	msgs := m["messages"].([]interface{})
	first := msgs[0].(map[string]interface{})
	if first["role"] != "system" || first["content"] != "be nice" {
		t.Errorf("expected leading system message, got %+v", first)
	}
}

func TestConvertRequestToolResultBecomesToolMessage(t *testing.T) {
	body := []byte(`{"model":"glm-4","messages":[
		{"role":"user","content":[{"type":"tool_result","tool_use_id":"tu_1","content":"42"}]}
	]}`)
	out, err := ConvertRequest(body)
	if err != nil {
		t.Fatalf("ConvertRequest: %v", err)
	}
	m := decodeOpenAIRequest(t, out)
	msgs := m["messages"].([]interface{})
	first := msgs[0].(map[string]interface{})
	if first["role"] != "tool" || first["tool_call_id"] != "tu_1" || first["content"] != "42" {
		t.Errorf("unexpected tool message: %+v", first)
	}
}

func TestConvertRequestImageBase64(t *testing.T) {
	body := []byte(`{"model":"glm-4","messages":[
		{"role":"user","content":[{"type":"image","source":{"type":"base64","media_type":"image/png","data":"AAAA"}}]}
	]}`)
	out, err := ConvertRequest(body)
	if err != nil {
		t.Fatalf("ConvertRequest: %v", err)
	}
	m := decodeOpenAIRequest(t, out)
	msgs := m["messages"].([]interface{})
	parts := msgs[0].(map[string]interface{})["content"].([]interface{})
	part := parts[0].(map[string]interface{})
	imageURL := part["image_url"].(map[string]interface{})
	if imageURL["url"] != "data:image/png;base64,AAAA" {
		t.Errorf("image_url = %v, want data URL", imageURL["url"])
	}
}

func TestConvertRequestAssistantToolUse(t *testing.T) {
	body := []byte(`{"model":"glm-4","messages":[
		{"role":"user","content":"hi"},
		{"role":"assistant","content":[{"type":"tool_use","id":"tu_1","name":"search","input":{"q":"x"}}]}
	]}`)
	out, err := ConvertRequest(body)
	if err != nil {
		t.Fatalf("ConvertRequest: %v", err)
	}
	m := decodeOpenAIRequest(t, out)
	msgs := m["messages"].([]interface{})
	assistant := msgs[1].(map[string]interface{})
	toolCalls := assistant["tool_calls"].([]interface{})
	tc := toolCalls[0].(map[string]interface{})
	if tc["id"] != "tu_1" {
		t.Errorf("tool call id not preserved: %+v", tc)
	}
	fn := tc["function"].(map[string]interface{})
	if fn["name"] != "search" {
		t.Errorf("function name = %v, want search", fn["name"])
	}
}

func TestConvertRequestThinkingGeminiUsesExtraContent(t *testing.T) {
	body := []byte(`{"model":"gemini-1.5-pro","messages":[
		{"role":"user","content":"hi"},
		{"role":"assistant","content":[
			{"type":"tool_use","id":"tu_1","name":"search","input":{}},
			{"type":"thinking","thinking":"reasoning...","signature":"sig-abc"}
		]}
	]}`)
	out, err := ConvertRequest(body)
	if err != nil {
		t.Fatalf("ConvertRequest: %v", err)
	}
	m := decodeOpenAIRequest(t, out)
	msgs := m["messages"].([]interface{})
	assistant := msgs[1].(map[string]interface{})
	if _, ok := assistant["thinking"]; ok {
		t.Error("gemini target must not emit a top-level thinking field")
	}
	toolCalls := assistant["tool_calls"].([]interface{})
	tc := toolCalls[0].(map[string]interface{})
	extra := tc["extra_content"].(map[string]interface{})
	google := extra["google"].(map[string]interface{})
	if google["thought_signature"] != "sig-abc" {
		t.Errorf("thought_signature = %v, want sig-abc", google["thought_signature"])
	}
}

func TestConvertRequestThinkingNonGeminiUsesTopLevelField(t *testing.T) {
	body := []byte(`{"model":"claude-3-opus","messages":[
		{"role":"user","content":"hi"},
		{"role":"assistant","content":[
			{"type":"thinking","thinking":"reasoning...","signature":"sig-abc"}
		]}
	]}`)
	out, err := ConvertRequest(body)
	if err != nil {
		t.Fatalf("ConvertRequest: %v", err)
	}
	m := decodeOpenAIRequest(t, out)
	msgs := m["messages"].([]interface{})
	assistant := msgs[1].(map[string]interface{})
	thinking := assistant["thinking"].(map[string]interface{})
	if thinking["signature"] != "sig-abc" {
		t.Errorf("thinking.signature = %v, want sig-abc", thinking["signature"])
	}
}

func TestConvertRequestToolChoiceMapping(t *testing.T) {
	cases := map[string]string{
		`"auto"`: `"auto"`,
		`"any"`:  `"auto"`,
		`"none"`: `"none"`,
	}
	for in, want := range cases {
		body := []byte(`{"model":"glm-4","messages":[{"role":"user","content":"hi"}],"tool_choice":` + in + `}`)
		out, err := ConvertRequest(body)
		if err != nil {
			t.Fatalf("ConvertRequest(%s): %v", in, err)
		}
		m := decodeOpenAIRequest(t, out)
		got, _ := json.Marshal(m["tool_choice"])
		if string(got) != want {
			t.Errorf("tool_choice %s = %s, want %s", in, got, want)
		}
	}
}

func TestConvertRequestToolChoiceSpecificTool(t *testing.T) {
	body := []byte(`{"model":"glm-4","messages":[{"role":"user","content":"hi"}],"tool_choice":{"type":"tool","name":"search"}}`)
	out, err := ConvertRequest(body)
	if err != nil {
		t.Fatalf("ConvertRequest: %v", err)
	}
	m := decodeOpenAIRequest(t, out)
	tc := m["tool_choice"].(map[string]interface{})
	if tc["type"] != "function" {
		t.Errorf("tool_choice.type = %v, want function", tc["type"])
	}
	fn := tc["function"].(map[string]interface{})
	if fn["name"] != "search" {
		t.Errorf("tool_choice.function.name = %v, want search", fn["name"])
	}
}

func TestConvertRequestThinkingBudgetEffortMapping(t *testing.T) {
	cases := map[int]string{
		1024: "low",
		8192: "medium",
		9000: "high",
		0:    "medium",
	}
	for budget, want := range cases {
		body := []byte(`{"model":"glm-4","messages":[{"role":"user","content":"hi"}],"thinking":{"budget_tokens":` +
			itoa(budget) + `}}`)
		out, err := ConvertRequest(body)
		if err != nil {
			t.Fatalf("ConvertRequest(budget=%d): %v", budget, err)
		}
		m := decodeOpenAIRequest(t, out)
		reasoning := m["reasoning"].(map[string]interface{})
		if reasoning["effort"] != want {
			t.Errorf("budget=%d effort = %v, want %v", budget, reasoning["effort"], want)
		}
	}
}

func TestConvertRequestStopSequencesAndTopLevelFields(t *testing.T) {
	body := []byte(`{"model":"glm-4","messages":[{"role":"user","content":"hi"}],"stop_sequences":["END"],"temperature":0.5,"max_tokens":100,"stream":true}`)
	out, err := ConvertRequest(body)
	if err != nil {
		t.Fatalf("ConvertRequest: %v", err)
	}
	m := decodeOpenAIRequest(t, out)
	stop := m["stop"].([]interface{})
	if len(stop) != 1 || stop[0] != "END" {
		t.Errorf("stop = %v, want [END]", stop)
	}
	if m["temperature"] != 0.5 {
		t.Errorf("temperature = %v, want 0.5", m["temperature"])
	}
	if m["stream"] != true {
		t.Errorf("stream = %v, want true", m["stream"])
	}
}

func TestConvertRequestMalformedJSONErrors(t *testing.T) {
	if _, err := ConvertRequest([]byte("not json")); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
