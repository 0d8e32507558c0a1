// Package device realizes the interior stencil kernel on an OCCA device.
// The host kernel in the solver package is the default; this package is the
// accelerator path for backends like OpenMP, CUDA or OpenCL.
package device

import (
	"fmt"

	"github.com/notargets/gocca"
)

// NewDevice creates an OCCA device from a properties JSON string, e.g.
// `{"mode": "OpenMP"}` or `{"mode": "CUDA", "device_id": 0}`.
func NewDevice(props string) (*gocca.OCCADevice, error) {
	device, err := gocca.NewDevice(props)
	if err != nil {
		return nil, fmt.Errorf("create OCCA device %s: %w", props, err)
	}
	return device, nil
}

// Default creates a device preferring parallel backends, falling back to
// Serial.
func Default() (*gocca.OCCADevice, error) {
	backends := []string{
		`{"mode": "OpenMP"}`,
		`{"mode": "CUDA", "device_id": 0}`,
		`{"mode": "Serial"}`,
	}
	var err error
	for _, props := range backends {
		var device *gocca.OCCADevice
		device, err = gocca.NewDevice(props)
		if err == nil {
			return device, nil
		}
	}
	return nil, fmt.Errorf("no OCCA backend available: %w", err)
}
