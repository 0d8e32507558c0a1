package grid

import "fmt"

// Subdomain is the block of the global lattice owned by one rank. Adjacent
// subdomains share their boundary plane: the rightmost plane of one rank is
// the leftmost plane of the next, so local extents are (N-1)/P + 1 per axis.
type Subdomain struct {
	// Local extents including the shared boundary planes.
	Nx, Ny, Nz int

	// Global lattice sizes.
	Global [NumDims]int

	// Lattice spacing per axis, L/(N-1).
	Spacing [NumDims]float64

	// Process-grid coordinates of the owning rank.
	Coords [NumDims]int
}

// NewSubdomain derives the subdomain of the rank described by t from the
// global lattice sizes and domain lengths. It fails when (N-1) is not
// divisible by the process grid along any axis.
func NewSubdomain(t *Topology, global [NumDims]int, length [NumDims]float64) (*Subdomain, error) {
	names := [NumDims]string{"x", "y", "z"}
	var local [NumDims]int
	var spacing [NumDims]float64
	for axis := 0; axis < NumDims; axis++ {
		n := global[axis]
		if n < 2 {
			return nil, fmt.Errorf("need at least 2 points in %s, got %d", names[axis], n)
		}
		if (n-1)%t.Dims[axis] != 0 {
			return nil, fmt.Errorf("cannot partition %d points in %s across %d ranks", n, names[axis], t.Dims[axis])
		}
		local[axis] = (n-1)/t.Dims[axis] + 1
		spacing[axis] = length[axis] / float64(n-1)
	}
	return &Subdomain{
		Nx:      local[X],
		Ny:      local[Y],
		Nz:      local[Z],
		Global:  global,
		Spacing: spacing,
		Coords:  t.Coords,
	}, nil
}

// GlobalCoord returns the physical coordinate of local index i along axis.
func (s *Subdomain) GlobalCoord(axis Axis, i int) float64 {
	local := [NumDims]int{s.Nx, s.Ny, s.Nz}
	return float64(s.Coords[axis]*(local[axis]-1)+i) * s.Spacing[axis]
}

// Extent returns the local extent along axis.
func (s *Subdomain) Extent(axis Axis) int {
	switch axis {
	case X:
		return s.Nx
	case Y:
		return s.Ny
	default:
		return s.Nz
	}
}
