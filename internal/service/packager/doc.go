// Package packager prepares runtime archives for a self-hosted download server.
//
// It computes the checksum and size of a local archive and merges the
// matching entry into a runtimes.json manifest, so that packwatch-runtime
// install can provision it from that server.
package packager
