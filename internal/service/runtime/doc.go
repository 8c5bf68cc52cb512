// Package runtime provisions the runtime bundle used to launch instances.
//
// Provision fetches the runtime manifest, picks the entry of the current
// platform, downloads and verifies the archive and extracts it into
// <root>/<version>. The extracted release file is the only signal that a
// version is ready: once present, later calls skip the network entirely and
// only rebind the launcher settings.
//
// Remove deletes the whole runtime root, restores the default runtime path
// and clears every instance override that pointed into the deleted tree.
//
// A Provisioner serializes its own calls and additionally holds a file lock
// next to the root, so two processes never extract into the same folder.
package runtime
