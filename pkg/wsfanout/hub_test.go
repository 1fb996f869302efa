package wsfanout

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/ccrelay/pkg/config"
	"mercator-hq/ccrelay/pkg/router"
)

func testRouter(t *testing.T) *router.Router {
	t.Helper()
	cfg := &config.Config{
		DefaultProvider: "official",
		Providers: map[string]config.ProviderConfig{
			"official": {Name: "Official", BaseURL: "https://api.anthropic.com", Mode: "passthrough", ProviderType: "anthropic", Enabled: true},
			"alt":      {Name: "Alt", BaseURL: "https://alt.example.com", Mode: "passthrough", ProviderType: "anthropic", Enabled: true},
		},
	}
	return router.New(cfg, "official", nil)
}

func TestHubBroadcastsProviderChangedToLoopbackClient(t *testing.T) {
	leaderRouter := testRouter(t)
	hub := NewHub(leaderRouter, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	followerRouter := testRouter(t)
	client := NewClient(wsURL, followerRouter, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	// Give the client a moment to connect before exercising the RPC.
	deadline := time.Now().Add(2 * time.Second)
	for client.connSnapshot() == nil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	rpcCtx, rpcCancel := context.WithTimeout(context.Background(), time.Second)
	defer rpcCancel()
	if err := client.SwitchProvider(rpcCtx, "alt"); err != nil {
		t.Fatalf("switch provider: %v", err)
	}

	deadline = time.Now().Add(time.Second)
	for followerRouter.CurrentProvider().ID != "alt" && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := followerRouter.CurrentProvider().ID; got != "alt" {
		t.Fatalf("expected follower router to observe provider switch, got %q", got)
	}
	if got := leaderRouter.CurrentProvider().ID; got != "alt" {
		t.Fatalf("expected leader router to apply the switch too, got %q", got)
	}
}
