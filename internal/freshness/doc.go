// Package freshness keeps the latest known version of tracked entities.
//
// A Cache maps an opaque key to exactly one Cell. Cells are created lazily
// and atomically on first access, are never removed, and hold a Record that
// readers can snapshot without blocking or observe through subscriptions
// while refresh passes publish new values concurrently.
package freshness
