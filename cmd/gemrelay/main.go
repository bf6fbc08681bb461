// gemrelay is a reverse proxy for the Gemini API that rotates API keys.
//
// Every request is forwarded to the upstream with one key from a configured
// list, chosen in strict round-robin order. The rotation counter lives in a
// compare-and-swap store (memory, SQLite, PostgreSQL or MySQL) so several
// proxy instances can share it.
//
// Usage:
//
//	# Start with keys from the environment
//	API_KEYS=key1,key2 gemrelay run
//
//	# Start with a configuration file
//	gemrelay run --config /etc/gemrelay/config.yaml
//
//	# Inspect the shared rotation state
//	gemrelay state show --config /etc/gemrelay/config.yaml
//
//	# Show the effective configuration with keys masked
//	gemrelay config show
package main

import "os"

func main() {
	os.Exit(Execute())
}
