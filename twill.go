// Package twill carries the identity the runtime reports through its
// logs and serving surfaces
package twill

const (
	// Name is the service and binary name
	Name = "twill"

	// Version is the runtime release version
	Version = "0.1.0"
)
