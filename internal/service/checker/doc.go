// Package checker refreshes the freshness caches of installed instances.
//
// A Scheduler runs one pass per catalog on demand. Batch-capable catalogs
// receive a single request for every eligible instance, per-entity catalogs
// are queried with a bounded number of workers. Successful answers are
// published into the catalog cache, transient failures leave the cache
// untouched, and entities gone upstream get update checks disabled.
//
// Run wraps the scheduler into the packwatch-checker process: it performs a
// pass for every enabled catalog, prints the freshness table and optionally
// repeats on an interval.
package checker
