// Package wsfanout implements the WebSocket fan-out from spec.md §4.J: the
// leader broadcasts provider_changed notifications to every connected
// client, including a loopback client it opens to itself, so every
// instance's router.Router mutates only in response to a received
// provider_changed message.
package wsfanout
