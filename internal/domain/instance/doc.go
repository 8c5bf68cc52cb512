// Package instance contains the domain model of a locally installed modpack.
//
// An Instance knows which catalog it came from, how that catalog identifies
// it, whether update checks are enabled, and which runtime it overrides.
package instance
