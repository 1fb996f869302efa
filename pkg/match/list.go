package match

// GlobList is a precompiled set of globs evaluated in order; it is the
// compiled form of a proxy[]/passthrough[] pattern list.
type GlobList struct {
	globs []*Glob
}

// CompileGlobList compiles every pattern once.
func CompileGlobList(patterns []string) *GlobList {
	l := &GlobList{globs: make([]*Glob, len(patterns))}
	for i, p := range patterns {
		l.globs[i] = CompileGlob(p)
	}
	return l
}

// MatchAny reports whether path satisfies any compiled glob.
func (l *GlobList) MatchAny(path string) bool {
	for _, g := range l.globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// Len reports the number of compiled patterns.
func (l *GlobList) Len() int {
	return len(l.globs)
}
