package match

import (
	"regexp"
	"strings"
)

// Glob is a compiled shell-style path pattern. "*" matches any run of
// characters other than "/"; "**" matches anything including "/"; "?"
// matches exactly one character other than "/". Every other regular
// expression metacharacter in the source pattern is treated literally.
type Glob struct {
	source string
	re     *regexp.Regexp
}

// CompileGlob converts pattern into an anchored, end-to-end matcher.
func CompileGlob(pattern string) *Glob {
	return &Glob{source: pattern, re: regexp.MustCompile(globToRegexp(pattern))}
}

// Match reports whether path satisfies the glob.
func (g *Glob) Match(path string) bool {
	return g.re.MatchString(path)
}

// String returns the original glob source.
func (g *Glob) String() string {
	return g.source
}

// globToRegexp translates a glob into an anchored regular expression
// source string. "**" is handled before "*" so the double form is not
// mistaken for two single wildcards.
func globToRegexp(pattern string) string {
	var sb strings.Builder
	sb.WriteByte('^')

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '*' && i+1 < len(runes) && runes[i+1] == '*':
			sb.WriteString(".*")
			i++
		case c == '*':
			sb.WriteString("[^/]*")
		case c == '?':
			sb.WriteString("[^/]")
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	sb.WriteByte('$')
	return sb.String()
}

// MatchAny reports whether path matches any glob in patterns.
func MatchAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if CompileGlob(p).Match(path) {
			return true
		}
	}
	return false
}
