package halo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredrickhang/heat3d/comm"
	"github.com/fredrickhang/heat3d/field"
	"github.com/fredrickhang/heat3d/grid"
)

var unitCube = [grid.NumDims]float64{1, 1, 1}

// mark fills f with a value that encodes both the rank and the position, so
// any mis-routed or mis-ordered plane is visible.
func mark(f *field.Field, rank int) {
	for i := 0; i < f.Nx; i++ {
		for j := 0; j < f.Ny; j++ {
			for k := 0; k < f.Nz; k++ {
				f.Set(i, j, k, float64(rank*1000)+float64(i)*100+float64(j)*10+float64(k))
			}
		}
	}
}

func TestPackOrderContract(t *testing.T) {
	top, err := grid.NewTopology(0, 2, []int{2, 1, 1})
	require.NoError(t, err)
	sub, err := grid.NewSubdomain(top, [grid.NumDims]int{5, 5, 5}, unitCube)
	require.NoError(t, err)

	w, err := comm.NewWorld(2)
	require.NoError(t, err)
	c, err := w.Comm(0)
	require.NoError(t, err)

	f, err := field.New(sub.Nx, sub.Ny, sub.Nz)
	require.NoError(t, err)
	mark(f, 0)

	e := NewExchanger(c, top, sub)
	e.pack(f)

	// +X packs the slab i=nx-2, j outer, k inner, strictly interior.
	buf := e.SendBuffer(grid.Right)
	counter := 0
	for j := 1; j < sub.Ny-1; j++ {
		for k := 1; k < sub.Nz-1; k++ {
			assert.Equal(t, f.At(sub.Nx-2, j, k), buf[counter],
				"pack order at j=%d k=%d", j, k)
			counter++
		}
	}
}

func TestBufferSizes(t *testing.T) {
	top, err := grid.NewTopology(0, 1, []int{1, 1, 1})
	require.NoError(t, err)
	sub, err := grid.NewSubdomain(top, [grid.NumDims]int{5, 7, 9}, unitCube)
	require.NoError(t, err)

	w, err := comm.NewWorld(1)
	require.NoError(t, err)
	c, err := w.Comm(0)
	require.NoError(t, err)

	e := NewExchanger(c, top, sub)
	assert.Len(t, e.SendBuffer(grid.Left), (7-1)*(9-1))
	assert.Len(t, e.SendBuffer(grid.Top), (5-1)*(9-1))
	assert.Len(t, e.SendBuffer(grid.Front), (5-1)*(7-1))
}

func TestExchangeTwoRanksAlongX(t *testing.T) {
	// Two ranks split along X on a 5^3 lattice: after one exchange, the
	// receive buffer on rank 1's -X face equals rank 0's field at i=nx-2
	// over the in-plane interior.
	w, err := comm.NewWorld(2)
	require.NoError(t, err)
	dims := []int{2, 1, 1}

	fields := make([]*field.Field, 2)
	exchangers := make([]*Exchanger, 2)

	err = w.Launch(func(c *comm.Comm) error {
		top, err := grid.NewTopology(c.Rank(), 2, dims)
		if err != nil {
			return err
		}
		sub, err := grid.NewSubdomain(top, [grid.NumDims]int{5, 5, 5}, unitCube)
		if err != nil {
			return err
		}
		f, err := field.New(sub.Nx, sub.Ny, sub.Nz)
		if err != nil {
			return err
		}
		mark(f, c.Rank())
		e := NewExchanger(c, top, sub)
		fields[c.Rank()] = f
		exchangers[c.Rank()] = e
		return e.Exchange(f)
	})
	require.NoError(t, err)

	f0 := fields[0]
	recv := exchangers[1].RecvBuffer(grid.Left)
	counter := 0
	for j := 1; j < 4; j++ {
		for k := 1; k < 4; k++ {
			assert.Equal(t, f0.At(f0.Nx-2, j, k), recv[counter],
				"halo value at j=%d k=%d", j, k)
			counter++
		}
	}

	// And symmetrically: rank 0's +X halo is rank 1's slab at i=1.
	f1 := fields[1]
	recv = exchangers[0].RecvBuffer(grid.Right)
	counter = 0
	for j := 1; j < 4; j++ {
		for k := 1; k < 4; k++ {
			assert.Equal(t, f1.At(1, j, k), recv[counter],
				"halo value at j=%d k=%d", j, k)
			counter++
		}
	}
}

func TestPlaneViewIndexing(t *testing.T) {
	w, err := comm.NewWorld(2)
	require.NoError(t, err)
	dims := []int{2, 1, 1}

	err = w.Launch(func(c *comm.Comm) error {
		top, err := grid.NewTopology(c.Rank(), 2, dims)
		if err != nil {
			return err
		}
		sub, err := grid.NewSubdomain(top, [grid.NumDims]int{5, 5, 5}, unitCube)
		if err != nil {
			return err
		}
		f, err := field.New(sub.Nx, sub.Ny, sub.Nz)
		if err != nil {
			return err
		}
		mark(f, c.Rank())
		e := NewExchanger(c, top, sub)
		if err := e.Exchange(f); err != nil {
			return err
		}

		if c.Rank() == 1 {
			h := e.Plane(grid.Left)
			require.NotNil(t, h)
			rows, cols := h.Dims()
			assert.Equal(t, sub.Ny-2, rows)
			assert.Equal(t, sub.Nz-2, cols)
			// Plane row j-1, column k-1 maps to the peer's (nx-2, j, k):
			// here rank 0's cell (1, 2, 3), since nx = 3 on each rank.
			assert.Equal(t, 123.0, h.At(1, 2))

			// Faces without a peer expose no plane.
			assert.Nil(t, e.Plane(grid.Right))
			assert.Nil(t, e.Plane(grid.Top))
		}
		return nil
	})
	require.NoError(t, err)
}
