// Package config defines packwatch settings and provides helpers to load,
// validate and save them in YAML format.
//
// The Config type holds catalog endpoints, storage locations for instances,
// launcher settings and runtimes, and the limits applied to network work.
package config
