// Package router holds the single piece of dataplane state a ccrelay
// instance mutates at request time: which provider is currently selected.
// It decides, per request path, whether to block, passthrough, or route to
// the current provider, and prepares the outbound headers and target URL
// for whichever provider is chosen.
//
// Unlike a load-balancing router that picks among many healthy backends,
// this Router always has exactly one "current" provider; selection only
// ever changes in response to a provider_changed broadcast delivered over
// the WebSocket fan-out (see pkg/wsfanout), never as a side effect of
// routing a request.
package router
