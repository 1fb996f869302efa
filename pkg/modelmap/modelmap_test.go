package modelmap

import (
	"encoding/json"
	"testing"
)

func modelOf(t *testing.T, body []byte) string {
	t.Helper()
	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("result is not valid JSON: %v", err)
	}
	m, _ := doc["model"].(string)
	return m
}

func TestApplyExactMatch(t *testing.T) {
	body := []byte(`{"model":"claude-3-sonnet","messages":[]}`)
	out := Apply(body, []Entry{{Pattern: "claude-3-sonnet", Model: "glm-4"}}, nil)
	if got := modelOf(t, out); got != "glm-4" {
		t.Errorf("model = %q, want glm-4", got)
	}
}

func TestApplyWildcardMatch(t *testing.T) {
	body := []byte(`{"model":"claude-3-haiku","messages":[]}`)
	out := Apply(body, []Entry{{Pattern: "claude-*", Model: "glm-4"}}, nil)
	if got := modelOf(t, out); got != "glm-4" {
		t.Errorf("model = %q, want glm-4", got)
	}
}

func TestApplyExactBeforeWildcard(t *testing.T) {
	body := []byte(`{"model":"claude-3-opus","messages":[]}`)
	out := Apply(body, []Entry{
		{Pattern: "claude-*", Model: "wrong"},
		{Pattern: "claude-3-opus", Model: "right"},
	}, nil)
	if got := modelOf(t, out); got != "right" {
		t.Errorf("model = %q, want right (exact match must win over wildcard)", got)
	}
}

func TestApplyNoMatchLeavesBodyUnchanged(t *testing.T) {
	body := []byte(`{"model":"gpt-4","messages":[]}`)
	out := Apply(body, []Entry{{Pattern: "claude-*", Model: "glm-4"}}, nil)
	if got := modelOf(t, out); got != "gpt-4" {
		t.Errorf("model = %q, want unchanged gpt-4", got)
	}
}

func TestApplyMalformedJSONReturnedVerbatim(t *testing.T) {
	body := []byte(`not json`)
	out := Apply(body, []Entry{{Pattern: "*", Model: "glm-4"}}, nil)
	if string(out) != string(body) {
		t.Errorf("malformed body was modified: got %q", out)
	}
}

func TestApplyPicksVLModelMapWhenImagePresent(t *testing.T) {
	body := []byte(`{"model":"claude-3","messages":[{"role":"user","content":[{"type":"image","source":{}}]}]}`)
	out := Apply(body,
		[]Entry{{Pattern: "claude-*", Model: "text-model"}},
		[]Entry{{Pattern: "claude-*", Model: "vision-model"}},
	)
	if got := modelOf(t, out); got != "vision-model" {
		t.Errorf("model = %q, want vision-model", got)
	}
}

func TestApplyImageURLVariant(t *testing.T) {
	body := []byte(`{"model":"claude-3","messages":[{"role":"user","content":[{"type":"image_url","image_url":{"url":"x"}}]}]}`)
	out := Apply(body, nil, []Entry{{Pattern: "claude-*", Model: "vision-model"}})
	if got := modelOf(t, out); got != "vision-model" {
		t.Errorf("model = %q, want vision-model", got)
	}
}

func TestApplyNoImageUsesModelMapEvenWithVLMapPresent(t *testing.T) {
	body := []byte(`{"model":"claude-3","messages":[{"role":"user","content":"hi"}]}`)
	out := Apply(body,
		[]Entry{{Pattern: "claude-*", Model: "text-model"}},
		[]Entry{{Pattern: "claude-*", Model: "vision-model"}},
	)
	if got := modelOf(t, out); got != "text-model" {
		t.Errorf("model = %q, want text-model (no image content present)", got)
	}
}

func TestApplyFallsBackToOtherMapWhenPrimaryMisses(t *testing.T) {
	body := []byte(`{"model":"gpt-4","messages":[{"role":"user","content":[{"type":"image"}]}]}`)
	out := Apply(body,
		[]Entry{{Pattern: "gpt-*", Model: "fallback-model"}},
		[]Entry{{Pattern: "claude-*", Model: "vision-model"}},
	)
	if got := modelOf(t, out); got != "fallback-model" {
		t.Errorf("model = %q, want fallback-model via modelMap fallback", got)
	}
}
