package match

import "testing"

func TestRegexMatch(t *testing.T) {
	r := CompileRegex(`^/v1/images/.*$`)
	if !r.Match("/v1/images/generate") {
		t.Error("expected match")
	}
	if r.Match("/v1/messages") {
		t.Error("expected no match")
	}
}

func TestRegexInvalidPatternNeverMatches(t *testing.T) {
	r := CompileRegex("(unclosed")
	if r.Match("") {
		t.Error("invalid pattern must never match the empty path")
	}
	if r.Match("anything at all") {
		t.Error("invalid pattern must never match")
	}
}

func TestRegexStringReturnsSource(t *testing.T) {
	r := CompileRegex(`^/v1/.*$`)
	if r.String() != `^/v1/.*$` {
		t.Errorf("String() = %q", r.String())
	}
}
