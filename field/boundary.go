package field

import "github.com/fredrickhang/heat3d/grid"

// ApplyDirichlet writes the physical boundary values onto every face of T
// whose neighbor entry is grid.None. The top face is held at 1.0, the bottom
// face stays at its initial 0, and the four lateral faces carry the global
// y-coordinate of each node, which is also the analytic steady-state field
// the error metric compares against. Faces with a peer are left untouched;
// their outer planes belong to the halo exchange.
//
// The update phases never write these cells again, so the conditions persist
// for the whole run.
func ApplyDirichlet(T *Field, t *grid.Topology, s *grid.Subdomain) {
	if !t.HasNeighbor(grid.Top) {
		for i := 0; i < s.Nx; i++ {
			for k := 0; k < s.Nz; k++ {
				T.Set(i, s.Ny-1, k, 1.0)
			}
		}
	}

	if !t.HasNeighbor(grid.Left) {
		for j := 0; j < s.Ny; j++ {
			for k := 0; k < s.Nz; k++ {
				T.Set(0, j, k, s.GlobalCoord(grid.Y, j))
			}
		}
	}

	if !t.HasNeighbor(grid.Right) {
		for j := 0; j < s.Ny; j++ {
			for k := 0; k < s.Nz; k++ {
				T.Set(s.Nx-1, j, k, s.GlobalCoord(grid.Y, j))
			}
		}
	}

	if !t.HasNeighbor(grid.Back) {
		for i := 0; i < s.Nx; i++ {
			for j := 0; j < s.Ny; j++ {
				T.Set(i, j, 0, s.GlobalCoord(grid.Y, j))
			}
		}
	}

	if !t.HasNeighbor(grid.Front) {
		for i := 0; i < s.Nx; i++ {
			for j := 0; j < s.Ny; j++ {
				T.Set(i, j, s.Nz-1, s.GlobalCoord(grid.Y, j))
			}
		}
	}
}
