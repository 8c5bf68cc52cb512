// Package provider defines what catalog clients share: the failure taxonomy
// that separates retryable faults from entities that no longer exist, and the
// HTTP client every catalog is queried through.
//
// Retries and backoff are intentionally absent: a failed lookup is retried by
// the next refresh pass. Every request is bounded by the client timeout.
package provider
