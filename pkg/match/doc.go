// Package match compiles the two pattern languages used for request-path
// routing: shell-style globs (used in proxy/passthrough lists and block
// rules, anchored at both ends) and regular expressions (used by route
// queues, matched anywhere in the path unless the pattern anchors itself).
package match
