// Package http provides the shared HTTP plumbing for provider adapters:
// a rate-limited client with bounded fixed-sleep retry and credential
// injection strategies.
package http
