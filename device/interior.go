package device

import (
	"fmt"
	"unsafe"

	"github.com/notargets/gocca"

	"github.com/fredrickhang/heat3d/field"
	"github.com/fredrickhang/heat3d/solver"
)

const kernelName = "interiorStencil"

// kernelTemplate is the OKL source of the interior update. The extents are
// baked in at build time so the kernel signature carries only the diffusion
// numbers and the two field buffers.
const kernelTemplate = `
#define NX %d
#define NY %d
#define NZ %d

@kernel void interiorStencil(const double Dx, const double Dy, const double Dz,
                             const double *T0, double *T) {
	for (int i = 1; i < NX - 1; ++i; @outer) {
		for (int j = 1; j < NY - 1; ++j; @inner) {
			for (int k = 1; k < NZ - 1; ++k) {
				const int c = (i * NY + j) * NZ + k;
				T[c] = T0[c]
				     + Dx * (T0[c + NY * NZ] - 2.0 * T0[c] + T0[c - NY * NZ])
				     + Dy * (T0[c + NZ] - 2.0 * T0[c] + T0[c - NZ])
				     + Dz * (T0[c + 1] - 2.0 * T0[c] + T0[c - 1]);
			}
		}
	}
}
`

// Kernel is the device realization of solver.InteriorKernel. It owns two
// device buffers of the subdomain size, allocated once and reused every
// iteration. Each rank builds its own Kernel.
type Kernel struct {
	device  *gocca.OCCADevice
	kernel  *gocca.OCCAKernel
	dT, dT0 *gocca.OCCAMemory

	count int
	bytes int64
}

// NewKernel builds the stencil kernel for a subdomain of the given local
// extents and allocates its device buffers.
func NewKernel(device *gocca.OCCADevice, nx, ny, nz int) (*Kernel, error) {
	if nx < 2 || ny < 2 || nz < 2 {
		return nil, fmt.Errorf("kernel extents must be at least 2, got (%d,%d,%d)", nx, ny, nz)
	}
	source := fmt.Sprintf(kernelTemplate, nx, ny, nz)
	kernel, err := device.BuildKernelFromString(source, kernelName, nil)
	if err != nil {
		return nil, fmt.Errorf("build kernel %s: %w", kernelName, err)
	}

	count := nx * ny * nz
	bytes := int64(count * 8)
	return &Kernel{
		device: device,
		kernel: kernel,
		dT:     device.Malloc(bytes, nil, nil),
		dT0:    device.Malloc(bytes, nil, nil),
		count:  count,
		bytes:  bytes,
	}, nil
}

// UpdateInterior implements solver.InteriorKernel: it stages both fields to
// the device, runs the stencil over the strict interior, and copies the
// updated iterate back. Boundary planes of t pass through unchanged.
func (k *Kernel) UpdateInterior(t, t0 *field.Field, c solver.Coefficients) error {
	if len(t.Data()) != k.count || len(t0.Data()) != k.count {
		return fmt.Errorf("field size %d does not match kernel size %d", len(t.Data()), k.count)
	}
	k.dT0.CopyFrom(unsafe.Pointer(&t0.Data()[0]), k.bytes)
	k.dT.CopyFrom(unsafe.Pointer(&t.Data()[0]), k.bytes)

	if err := k.kernel.RunWithArgs(c.Dx, c.Dy, c.Dz, k.dT0, k.dT); err != nil {
		return fmt.Errorf("run kernel %s: %w", kernelName, err)
	}
	k.device.Finish()

	k.dT.CopyTo(unsafe.Pointer(&t.Data()[0]), k.bytes)
	return nil
}

// Free releases the kernel and its device buffers.
func (k *Kernel) Free() {
	k.kernel.Free()
	k.dT.Free()
	k.dT0.Free()
}
