// Package field owns the per-rank temperature arrays. Storage is one flat
// buffer with explicit strides so the stencil sweeps read contiguous memory.
package field

import "fmt"

// Field is a dense 3D scalar array of shape (nx, ny, nz), indexed
// [0..nx-1][0..ny-1][0..nz-1]. Index k varies fastest.
type Field struct {
	Nx, Ny, Nz int
	data       []float64
}

// New allocates a zero-filled field of the given shape.
func New(nx, ny, nz int) (*Field, error) {
	if nx < 2 || ny < 2 || nz < 2 {
		return nil, fmt.Errorf("field extents must be at least 2, got (%d,%d,%d)", nx, ny, nz)
	}
	return &Field{Nx: nx, Ny: ny, Nz: nz, data: make([]float64, nx*ny*nz)}, nil
}

// Idx returns the flat offset of (i, j, k).
func (f *Field) Idx(i, j, k int) int {
	return (i*f.Ny+j)*f.Nz + k
}

// At returns the value at (i, j, k).
func (f *Field) At(i, j, k int) float64 {
	return f.data[(i*f.Ny+j)*f.Nz+k]
}

// Set stores v at (i, j, k).
func (f *Field) Set(i, j, k int, v float64) {
	f.data[(i*f.Ny+j)*f.Nz+k] = v
}

// Data exposes the backing buffer, k-fastest.
func (f *Field) Data() []float64 {
	return f.data
}

// CopyFrom copies src elementwise. The shapes must match.
func (f *Field) CopyFrom(src *Field) error {
	if f.Nx != src.Nx || f.Ny != src.Ny || f.Nz != src.Nz {
		return fmt.Errorf("shape mismatch: (%d,%d,%d) vs (%d,%d,%d)",
			f.Nx, f.Ny, f.Nz, src.Nx, src.Ny, src.Nz)
	}
	copy(f.data, src.data)
	return nil
}
