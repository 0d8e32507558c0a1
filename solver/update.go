package solver

import (
	"github.com/fredrickhang/heat3d/field"
	"github.com/fredrickhang/heat3d/grid"
	"github.com/fredrickhang/heat3d/halo"
)

// Updater completes an iteration after the interior kernel: it applies the
// stencil on the six face planes using received halo data, extrapolates the
// twelve subdomain edges, and averages the eight corners. A face plane is
// touched only when a peer exists on that face, so physical Dirichlet
// boundaries are never overwritten.
type Updater struct {
	top        *grid.Topology
	nx, ny, nz int
	coef       Coefficients
}

// NewUpdater builds an updater for one rank's subdomain.
func NewUpdater(t *grid.Topology, s *grid.Subdomain, c Coefficients) *Updater {
	return &Updater{top: t, nx: s.Nx, ny: s.Ny, nz: s.Nz, coef: c}
}

// UpdateFaces applies the stencil on each face plane with a peer,
// substituting the received halo plane for the off-rank neighbor term.
// In-plane indices run strictly interior; face edges and corners are handled
// afterwards.
func (u *Updater) UpdateFaces(t, t0 *field.Field, ex *halo.Exchanger) {
	nx, ny, nz := u.nx, u.ny, u.nz
	c := u.coef

	if h := ex.Plane(grid.Left); h != nil {
		i := 0
		for j := 1; j < ny-1; j++ {
			for k := 1; k < nz-1; k++ {
				center := t0.At(i, j, k)
				t.Set(i, j, k, center+
					c.Dx*(t0.At(i+1, j, k)-2.0*center+h.At(j-1, k-1))+
					c.Dy*(t0.At(i, j+1, k)-2.0*center+t0.At(i, j-1, k))+
					c.Dz*(t0.At(i, j, k+1)-2.0*center+t0.At(i, j, k-1)))
			}
		}
	}

	if h := ex.Plane(grid.Right); h != nil {
		i := nx - 1
		for j := 1; j < ny-1; j++ {
			for k := 1; k < nz-1; k++ {
				center := t0.At(i, j, k)
				t.Set(i, j, k, center+
					c.Dx*(h.At(j-1, k-1)-2.0*center+t0.At(i-1, j, k))+
					c.Dy*(t0.At(i, j+1, k)-2.0*center+t0.At(i, j-1, k))+
					c.Dz*(t0.At(i, j, k+1)-2.0*center+t0.At(i, j, k-1)))
			}
		}
	}

	if h := ex.Plane(grid.Bottom); h != nil {
		j := 0
		for i := 1; i < nx-1; i++ {
			for k := 1; k < nz-1; k++ {
				center := t0.At(i, j, k)
				t.Set(i, j, k, center+
					c.Dx*(t0.At(i+1, j, k)-2.0*center+t0.At(i-1, j, k))+
					c.Dy*(t0.At(i, j+1, k)-2.0*center+h.At(i-1, k-1))+
					c.Dz*(t0.At(i, j, k+1)-2.0*center+t0.At(i, j, k-1)))
			}
		}
	}

	if h := ex.Plane(grid.Top); h != nil {
		j := ny - 1
		for i := 1; i < nx-1; i++ {
			for k := 1; k < nz-1; k++ {
				center := t0.At(i, j, k)
				t.Set(i, j, k, center+
					c.Dx*(t0.At(i+1, j, k)-2.0*center+t0.At(i-1, j, k))+
					c.Dy*(h.At(i-1, k-1)-2.0*center+t0.At(i, j-1, k))+
					c.Dz*(t0.At(i, j, k+1)-2.0*center+t0.At(i, j, k-1)))
			}
		}
	}

	if h := ex.Plane(grid.Back); h != nil {
		k := 0
		for i := 1; i < nx-1; i++ {
			for j := 1; j < ny-1; j++ {
				center := t0.At(i, j, k)
				t.Set(i, j, k, center+
					c.Dx*(t0.At(i+1, j, k)-2.0*center+t0.At(i-1, j, k))+
					c.Dy*(t0.At(i, j+1, k)-2.0*center+t0.At(i, j-1, k))+
					c.Dz*(t0.At(i, j, k+1)-2.0*center+h.At(i-1, j-1)))
			}
		}
	}

	if h := ex.Plane(grid.Front); h != nil {
		k := nz - 1
		for i := 1; i < nx-1; i++ {
			for j := 1; j < ny-1; j++ {
				center := t0.At(i, j, k)
				t.Set(i, j, k, center+
					c.Dx*(t0.At(i+1, j, k)-2.0*center+t0.At(i-1, j, k))+
					c.Dy*(t0.At(i, j+1, k)-2.0*center+t0.At(i, j-1, k))+
					c.Dz*(h.At(i-1, j-1)-2.0*center+t0.At(i, j, k-1)))
			}
		}
	}
}

// UpdateEdges fills the twelve edge lines where two perpendicular faces both
// have peers by linear extrapolation inward. Edges touching an X face are
// extrapolated along X; the four edges between Y and Z faces are extrapolated
// along Z. The axis-priority convention X before Y before Z matches the face
// update it closes over.
func (u *Updater) UpdateEdges(t *field.Field) {
	nx, ny, nz := u.nx, u.ny, u.nz
	has := u.top.HasNeighbor

	if has(grid.Left) {
		if has(grid.Bottom) {
			for k := 1; k < nz-1; k++ {
				t.Set(0, 0, k, 2.0*t.At(1, 0, k)-t.At(2, 0, k))
			}
		}
		if has(grid.Top) {
			for k := 1; k < nz-1; k++ {
				t.Set(0, ny-1, k, 2.0*t.At(1, ny-1, k)-t.At(2, ny-1, k))
			}
		}
		if has(grid.Back) {
			for j := 1; j < ny-1; j++ {
				t.Set(0, j, 0, 2.0*t.At(1, j, 0)-t.At(2, j, 0))
			}
		}
		if has(grid.Front) {
			for j := 1; j < ny-1; j++ {
				t.Set(0, j, nz-1, 2.0*t.At(1, j, nz-1)-t.At(2, j, nz-1))
			}
		}
	}

	if has(grid.Right) {
		if has(grid.Bottom) {
			for k := 1; k < nz-1; k++ {
				t.Set(nx-1, 0, k, 2.0*t.At(nx-2, 0, k)-t.At(nx-3, 0, k))
			}
		}
		if has(grid.Top) {
			for k := 1; k < nz-1; k++ {
				t.Set(nx-1, ny-1, k, 2.0*t.At(nx-2, ny-1, k)-t.At(nx-3, ny-1, k))
			}
		}
		if has(grid.Back) {
			for j := 1; j < ny-1; j++ {
				t.Set(nx-1, j, 0, 2.0*t.At(nx-2, j, 0)-t.At(nx-3, j, 0))
			}
		}
		if has(grid.Front) {
			for j := 1; j < ny-1; j++ {
				t.Set(nx-1, j, nz-1, 2.0*t.At(nx-2, j, nz-1)-t.At(nx-3, j, nz-1))
			}
		}
	}

	if has(grid.Back) {
		if has(grid.Bottom) {
			for i := 1; i < nx-1; i++ {
				t.Set(i, 0, 0, 2.0*t.At(i, 0, 1)-t.At(i, 0, 2))
			}
		}
		if has(grid.Top) {
			for i := 1; i < nx-1; i++ {
				t.Set(i, ny-1, 0, 2.0*t.At(i, ny-1, 1)-t.At(i, ny-1, 2))
			}
		}
	}

	if has(grid.Front) {
		if has(grid.Bottom) {
			for i := 1; i < nx-1; i++ {
				t.Set(i, 0, nz-1, 2.0*t.At(i, 0, nz-2)-t.At(i, 0, nz-3))
			}
		}
		if has(grid.Top) {
			for i := 1; i < nx-1; i++ {
				t.Set(i, ny-1, nz-1, 2.0*t.At(i, ny-1, nz-2)-t.At(i, ny-1, nz-3))
			}
		}
	}
}

// UpdateCorners sets each corner cell where three mutually perpendicular
// faces all have peers to the mean of its three inward neighbors. Runs after
// UpdateEdges so the averaged neighbors are final.
func (u *Updater) UpdateCorners(t *field.Field) {
	nx, ny, nz := u.nx, u.ny, u.nz
	has := u.top.HasNeighbor

	if has(grid.Left) && has(grid.Bottom) && has(grid.Back) {
		t.Set(0, 0, 0, (t.At(1, 0, 0)+t.At(0, 1, 0)+t.At(0, 0, 1))/3.0)
	}
	if has(grid.Left) && has(grid.Bottom) && has(grid.Front) {
		t.Set(0, 0, nz-1, (t.At(1, 0, nz-1)+t.At(0, 1, nz-1)+t.At(0, 0, nz-2))/3.0)
	}
	if has(grid.Left) && has(grid.Top) && has(grid.Back) {
		t.Set(0, ny-1, 0, (t.At(1, ny-1, 0)+t.At(0, ny-2, 0)+t.At(0, ny-1, 1))/3.0)
	}
	if has(grid.Left) && has(grid.Top) && has(grid.Front) {
		t.Set(0, ny-1, nz-1, (t.At(1, ny-1, nz-1)+t.At(0, ny-2, nz-1)+t.At(0, ny-1, nz-2))/3.0)
	}
	if has(grid.Right) && has(grid.Bottom) && has(grid.Back) {
		t.Set(nx-1, 0, 0, (t.At(nx-2, 0, 0)+t.At(nx-1, 1, 0)+t.At(nx-1, 0, 1))/3.0)
	}
	if has(grid.Right) && has(grid.Bottom) && has(grid.Front) {
		t.Set(nx-1, 0, nz-1, (t.At(nx-2, 0, nz-1)+t.At(nx-1, 1, nz-1)+t.At(nx-1, 0, nz-2))/3.0)
	}
	if has(grid.Right) && has(grid.Top) && has(grid.Back) {
		t.Set(nx-1, ny-1, 0, (t.At(nx-2, ny-1, 0)+t.At(nx-1, ny-2, 0)+t.At(nx-1, ny-1, 1))/3.0)
	}
	if has(grid.Right) && has(grid.Top) && has(grid.Front) {
		t.Set(nx-1, ny-1, nz-1, (t.At(nx-2, ny-1, nz-1)+t.At(nx-1, ny-2, nz-1)+t.At(nx-1, ny-1, nz-2))/3.0)
	}
}
