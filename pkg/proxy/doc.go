// Package proxy implements the gemrelay request forwarder.
//
// # Request Flow
//
// For every inbound request except "/" the Forwarder:
//
//  1. Takes one credential from the rotation selector, retrying on
//     compare-and-swap conflicts up to Config.MaxAttempts times.
//  2. Rewrites the path: "/v1/..." becomes "/v1beta/...", and for those paths
//     a trailing "/chat/completions" becomes ":generateContent".
//  3. Sets the "key" query parameter to the credential, replacing any value
//     the client sent, and drops the Authorization header.
//  4. Relays the request to the upstream with httputil.ReverseProxy and
//     streams the response back unchanged, flushing after every write.
//
// "/" answers with a fixed page and never consumes a credential.
//
// # Errors
//
// Failures the proxy itself produces are answered with fixed text bodies and
// never leak upstream or store details:
//
//	500  no API keys configured (the selector is not called)
//	503  rotation retries exhausted, or the rotation store failed
//	502  the upstream round trip failed before a response arrived
//
// A client that disconnects before the upstream responds is recorded with
// status 499 and receives nothing.
//
// Upstream error responses (4xx and 5xx) are relayed verbatim, like any other
// response.
package proxy
