// Package settings implements persistence for the global launcher settings
// the runtime provisioner rebinds, stored as a single YAML document.
package settings
