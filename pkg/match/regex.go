package match

import (
	"log/slog"
	"regexp"
)

// Regex wraps a precompiled regular-expression matcher for route queues. An
// invalid pattern does not fail compilation: it yields a Regex that never
// matches, so the owning route queue simply becomes unreachable instead of
// aborting configuration load.
type Regex struct {
	source string
	re     *regexp.Regexp
}

// CompileRegex compiles pattern. On failure it logs a warning and returns a
// Regex whose Match always reports false.
func CompileRegex(pattern string) *Regex {
	re, err := regexp.Compile(pattern)
	if err != nil {
		slog.Warn("route queue pattern is not a valid regular expression; queue is unreachable",
			"pattern", pattern, "error", err)
		return &Regex{source: pattern, re: nil}
	}
	return &Regex{source: pattern, re: re}
}

// Match reports whether path satisfies the compiled pattern.
func (r *Regex) Match(path string) bool {
	if r.re == nil {
		return false
	}
	return r.re.MatchString(path)
}

// String returns the original pattern source.
func (r *Regex) String() string {
	return r.source
}
