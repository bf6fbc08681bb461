// Package health provides the liveness and readiness endpoints served on the
// gemrelay admin listener.
//
// # Endpoints
//
//   - /health: Liveness probe, always 200 while the process serves
//   - /ready: Readiness probe, 503 when no credentials are configured or
//     the opened rotation store does not answer a ping
//   - /version: Build information
//
// These paths live on the admin listener only. The proxy listener forwards
// every path except "/" upstream.
//
// # Usage
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("credentials", health.CredentialsCheck(creds.Len))
//	checker.RegisterCheck("rotation_store", health.StoreCheck(store))
//	health.Register(adminMux, checker, version, commit, buildTime)
//
// A lazily opened store is not opened by the readiness probe; until the
// first proxied request opens it the check reports "skipped".
package health
