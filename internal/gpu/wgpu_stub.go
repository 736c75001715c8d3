//go:build nogpu

package gpu

import "fmt"

// Open reports the device as unavailable when built without GPU support.
func Open() (Device, error) {
	return nil, fmt.Errorf("%w: built without GPU support", ErrDeviceUnavailable)
}

// FromProvider reports the device as unavailable when built without GPU
// support.
func FromProvider(provider any) (Device, error) {
	return nil, fmt.Errorf("%w: built without GPU support", ErrDeviceUnavailable)
}
