// Package health exposes checker status over the standard gRPC health protocol.
//
// Every catalog is reported as its own service named by ServiceName. The
// empty service name reports the process as a whole.
package health
