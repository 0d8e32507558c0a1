// Package solver iterates the explicit 7-point stencil update on one rank's
// subdomain and decides global termination together with its peers.
package solver

import (
	"gonum.org/v1/gonum/floats"

	"github.com/exascience/pargo/parallel"

	"github.com/fredrickhang/heat3d/field"
	"github.com/fredrickhang/heat3d/grid"
)

// Physical and stability constants of the scheme.
const (
	// Alpha is the isotropic thermal diffusivity.
	Alpha = 1.0
	// CFL bounds the explicit Euler time step; 0.4 keeps the 7-point
	// stencil stable in 3D.
	CFL = 0.4
)

// Coefficients carries the time step and the per-axis diffusion numbers
// Dx = αΔt/Δx² of the update
//
//	T[i,j,k] = T0[i,j,k] + Dx·(T0[i+1,j,k] - 2T0[i,j,k] + T0[i-1,j,k])
//	                     + Dy·(T0[i,j+1,k] - 2T0[i,j,k] + T0[i,j-1,k])
//	                     + Dz·(T0[i,j,k+1] - 2T0[i,j,k] + T0[i,j,k-1])
type Coefficients struct {
	Dt         float64
	Dx, Dy, Dz float64
}

// NewCoefficients derives the stable time step
// Δt = (CFL/(2·NumDims))·min(Δx,Δy,Δz)²/α and the diffusion numbers from the
// lattice spacing.
func NewCoefficients(spacing [grid.NumDims]float64) Coefficients {
	h := floats.Min(spacing[:])
	dt := CFL / float64(2*grid.NumDims) * h * h / Alpha
	return Coefficients{
		Dt: dt,
		Dx: dt * Alpha / (spacing[grid.X] * spacing[grid.X]),
		Dy: dt * Alpha / (spacing[grid.Y] * spacing[grid.Y]),
		Dz: dt * Alpha / (spacing[grid.Z] * spacing[grid.Z]),
	}
}

// InteriorKernel applies the stencil to the strict interior of t, indices
// 1..n-2 along every axis, reading only t0. The phase has no cross-rank
// dependency, so implementations may run while the halo transfers are in
// flight, and may parallelize internally as long as t0 is never written.
type InteriorKernel interface {
	UpdateInterior(t, t0 *field.Field, c Coefficients) error
}

// HostKernel is the CPU realization of the interior update. The outer i-range
// is split across goroutines; each sweep reads contiguous k-runs of the flat
// buffers.
type HostKernel struct{}

// UpdateInterior implements InteriorKernel.
func (HostKernel) UpdateInterior(t, t0 *field.Field, c Coefficients) error {
	nx, ny, nz := t.Nx, t.Ny, t.Nz
	dst := t.Data()
	src := t0.Data()
	parallel.Range(1, nx-1, 0, func(low, high int) {
		for i := low; i < high; i++ {
			for j := 1; j < ny-1; j++ {
				base := (i*ny + j) * nz
				for k := 1; k < nz-1; k++ {
					center := src[base+k]
					dst[base+k] = center +
						c.Dx*(src[base+k+ny*nz]-2.0*center+src[base+k-ny*nz]) +
						c.Dy*(src[base+k+nz]-2.0*center+src[base+k-nz]) +
						c.Dz*(src[base+k+1]-2.0*center+src[base+k-1])
				}
			}
		}
	})
	return nil
}
