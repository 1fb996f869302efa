// ccrelay is a local HTTP reverse proxy for chat-completion APIs. It
// routes requests to a switchable set of providers, translates between
// the Anthropic and OpenAI wire formats, bounds upstream concurrency per
// route, and logs every request/response pair.
//
// Usage:
//
//	# Start the proxy with default configuration
//	ccrelay run
//
//	# Start with a custom configuration file
//	ccrelay run --config /path/to/config.yaml
//
//	# Validate a configuration file without starting the proxy
//	ccrelay validate --config /path/to/config.yaml
//
//	# Show version information
//	ccrelay version
package main

func main() {
	Execute()
}
