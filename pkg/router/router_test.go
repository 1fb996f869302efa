package router

import (
	"net/http"
	"testing"

	"mercator-hq/ccrelay/pkg/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{
		DefaultProvider: "official",
		Providers: map[string]config.ProviderConfig{
			"official": {
				Name: "Official", BaseURL: "https://api.anthropic.com",
				Mode: "passthrough", ProviderType: "anthropic",
				AuthHeader: "authorization", Enabled: true,
			},
			"glm": {
				Name: "GLM", BaseURL: "https://glm.example.com",
				Mode: "inject", ProviderType: "openai", APIKey: "k",
				AuthHeader: "authorization", Enabled: true,
			},
		},
		Routing: config.RoutingConfig{
			Proxy:       []string{"/v1/*"},
			Passthrough: []string{"/v1/models"},
			Block: []config.BlockRule{
				{Path: "/api/event_logging/*", Response: "", Code: 200},
			},
			OpenAIBlock: []config.BlockRule{
				{Path: "/api/openai_only/*", Response: `{"blocked":true}`, Code: 403},
			},
		},
	}
	return cfg
}

func TestShouldRoute(t *testing.T) {
	r := New(testConfig(), "glm", nil)

	if r.ShouldRoute("/v1/models") {
		t.Fatal("passthrough path should not be routed")
	}
	if !r.ShouldRoute("/v1/messages") {
		t.Fatal("proxy path should be routed")
	}
	if !r.ShouldRoute("/unlisted") {
		t.Fatal("unlisted path should default to routed")
	}
}

func TestGetTargetProvider(t *testing.T) {
	r := New(testConfig(), "glm", nil)

	p := r.GetTargetProvider("/v1/messages")
	if p.ID != "glm" {
		t.Fatalf("expected current provider glm, got %s", p.ID)
	}

	p = r.GetTargetProvider("/v1/models")
	if p.ID != "official" {
		t.Fatalf("expected official provider for passthrough path, got %s", p.ID)
	}
}

func TestShouldBlockOnlyWhenInject(t *testing.T) {
	r := New(testConfig(), "official", nil)
	if r.ShouldBlock("/api/event_logging/x").Blocked {
		t.Fatal("passthrough-mode provider must never block")
	}

	r2 := New(testConfig(), "glm", nil)
	res := r2.ShouldBlock("/api/event_logging/x")
	if !res.Blocked || res.Code != 200 {
		t.Fatalf("expected block with code 200, got %+v", res)
	}
}

func TestShouldBlockOpenAIOnly(t *testing.T) {
	r := New(testConfig(), "glm", nil)
	res := r.ShouldBlock("/api/openai_only/x")
	if !res.Blocked || res.Code != 403 {
		t.Fatalf("expected openai-only block, got %+v", res)
	}
}

func TestPrepareHeadersInjectMode(t *testing.T) {
	r := New(testConfig(), "glm", nil)
	p, _ := r.GetProvider("glm")

	in := http.Header{}
	in.Set("Host", "localhost")
	in.Set("Content-Length", "10")
	in.Set("Authorization", "Bearer client-key")
	in.Set("X-Custom", "value")

	out := r.PrepareHeaders(in, p)
	if out.Get("Host") != "" || out.Get("Content-Length") != "" {
		t.Fatal("hop-by-hop headers must not be copied")
	}
	if out.Get("Authorization") != "Bearer k" {
		t.Fatalf("expected injected provider key, got %q", out.Get("Authorization"))
	}
	if out.Get("X-Custom") != "value" {
		t.Fatal("unrelated headers should be preserved")
	}
}

func TestPrepareHeadersNonAuthorizationHeaderIsRaw(t *testing.T) {
	r := New(testConfig(), "official", nil)
	p := &Provider{ID: "x", Mode: "inject", APIKey: "raw-key", AuthHeader: "x-api-key"}

	out := r.PrepareHeaders(http.Header{}, p)
	if out.Get("X-Api-Key") != "raw-key" {
		t.Fatalf("expected raw key under x-api-key, got %q", out.Get("X-Api-Key"))
	}
}

func TestSwitchProviderFiresOnlyOnChange(t *testing.T) {
	r := New(testConfig(), "official", nil)

	calls := 0
	r.OnChange(func(id, name string) { calls++ })

	if err := r.SwitchProvider("official"); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Fatalf("switching to the same id must not fire observers, got %d calls", calls)
	}

	if err := r.SwitchProvider("glm"); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 observer call, got %d", calls)
	}

	if err := r.SwitchProvider("missing"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestGetTargetURL(t *testing.T) {
	r := New(testConfig(), "glm", nil)
	p, _ := r.GetProvider("glm")
	if got := r.GetTargetURL("/chat/completions", p); got != "https://glm.example.com/chat/completions" {
		t.Fatalf("unexpected target url: %s", got)
	}
}
