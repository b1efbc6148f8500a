// Redveil is a privacy-preserving relay for browsing Reddit.
//
// It holds the authenticated upstream identity so clients never talk to
// the upstream directly, providing:
//   - Spoofed mobile-client token handshakes with automatic renewal
//   - Classified, retried, and paced upstream API dispatch
//   - Streaming media relay with range passthrough and no buffering
//   - Versioned settings restore links
//
// Usage:
//
//	# Start the relay with default configuration
//	redveil run
//
//	# Start with a custom configuration file
//	redveil run --config /path/to/config.yaml
//
//	# Verify the credential and rate-limit plumbing
//	redveil check
//
//	# Show version information
//	redveil version
package main

func main() {
	Execute()
}
