package match

import "testing"

func TestGlobStar(t *testing.T) {
	g := CompileGlob("/v1/*")
	cases := map[string]bool{
		"/v1/messages":     true,
		"/v1/a/b":          false,
		"/v1/":              true,
		"/v2/messages":     false,
	}
	for path, want := range cases {
		if got := g.Match(path); got != want {
			t.Errorf("Match(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestGlobDoubleStar(t *testing.T) {
	g := CompileGlob("/api/**")
	cases := map[string]bool{
		"/api/x":     true,
		"/api/x/y/z": true,
		"/api":       false,
	}
	for path, want := range cases {
		if got := g.Match(path); got != want {
			t.Errorf("Match(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestGlobQuestionMark(t *testing.T) {
	g := CompileGlob("/v?/messages")
	if !g.Match("/v1/messages") {
		t.Error("expected /v1/messages to match /v?/messages")
	}
	if g.Match("/v12/messages") {
		t.Error("? must match exactly one character")
	}
	if g.Match("/v/messages") {
		t.Error("? must not match zero characters")
	}
}

func TestGlobEscapesMetacharacters(t *testing.T) {
	g := CompileGlob("/api/event_logging/*")
	if !g.Match("/api/event_logging/x") {
		t.Error("literal path segment must match itself")
	}
	if g.Match("/api_event_logging/x") {
		t.Error("underscore segment boundary must be literal, not a wildcard")
	}
	if CompileGlob("/v1.0/*").Match("/v1x0/x") {
		t.Error("'.' must match only a literal dot")
	}
}

func TestGlobListMatchAny(t *testing.T) {
	l := CompileGlobList([]string{"/health", "/v1/*"})
	if !l.MatchAny("/v1/messages") {
		t.Error("expected a match against the second pattern")
	}
	if l.MatchAny("/v2/messages") {
		t.Error("expected no match")
	}
}

func TestGlobListEmpty(t *testing.T) {
	l := CompileGlobList(nil)
	if l.MatchAny("/anything") {
		t.Error("an empty list must never match")
	}
}
