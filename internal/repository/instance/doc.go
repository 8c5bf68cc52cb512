// Package instance implements persistence for installed instances.
//
// The FileRepository keeps one YAML document per instance under
// <dir>/<id>/instance.yaml and exposes a Repository interface that the
// checker and the runtime provisioner depend on.
package instance
