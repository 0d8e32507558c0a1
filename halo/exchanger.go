// Package halo implements the per-iteration boundary-plane exchange between
// neighboring subdomains.
//
// Each step, the first interior slab of the previous iterate is linearized
// into a send buffer per face and shipped to the neighbor on that face with a
// non-blocking send; the matching receives land in per-face receive buffers
// that the updater reads as 2D plane views. Tag matching keys a transfer to
// its receiver: a send carries 100 + destination rank and a receive expects
// 100 + own rank, so the receiver's expected tag always equals the tag of the
// peer's send on the opposite face.
package halo

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/fredrickhang/heat3d/comm"
	"github.com/fredrickhang/heat3d/field"
	"github.com/fredrickhang/heat3d/grid"
)

// tagBase offsets the halo tag space; the tag of a transfer is
// tagBase + receiver rank.
const tagBase = 100

// Exchanger owns the six send/receive plane buffer pairs of one rank. The
// buffers are allocated once and reused every iteration; faces without a
// peer keep their buffers but carry no traffic.
type Exchanger struct {
	comm *comm.Comm
	top  *grid.Topology

	nx, ny, nz int

	send [grid.NumDirections][]float64
	recv [grid.NumDirections][]float64

	requests []*comm.Request
}

// NewExchanger sizes the plane buffers for the given subdomain. A ±X buffer
// holds (ny-1)(nz-1) values, ±Y (nx-1)(nz-1), ±Z (nx-1)(ny-1).
func NewExchanger(c *comm.Comm, t *grid.Topology, s *grid.Subdomain) *Exchanger {
	e := &Exchanger{comm: c, top: t, nx: s.Nx, ny: s.Ny, nz: s.Nz}
	for d := grid.Direction(0); d < grid.NumDirections; d++ {
		n := e.bufferLen(d)
		e.send[d] = make([]float64, n)
		e.recv[d] = make([]float64, n)
	}
	return e
}

func (e *Exchanger) bufferLen(d grid.Direction) int {
	switch d.Axis() {
	case grid.X:
		return (e.ny - 1) * (e.nz - 1)
	case grid.Y:
		return (e.nx - 1) * (e.nz - 1)
	default:
		return (e.nx - 1) * (e.ny - 1)
	}
}

// planeDims returns the in-plane interior extents of a face in packing
// order: outer count first, inner count second.
func (e *Exchanger) planeDims(d grid.Direction) (outer, inner int) {
	switch d.Axis() {
	case grid.X:
		return e.ny - 2, e.nz - 2 // j outer, k inner
	case grid.Y:
		return e.nx - 2, e.nz - 2 // i outer, k inner
	default:
		return e.nx - 2, e.ny - 2 // i outer, j inner
	}
}

// pack linearizes the first interior slab of t0 on each face that has a
// peer. In-plane indices run strictly interior, 1..n-2 on both axes.
func (e *Exchanger) pack(t0 *field.Field) {
	nx, ny, nz := e.nx, e.ny, e.nz

	if e.top.HasNeighbor(grid.Left) {
		e.packX(t0, grid.Left, 1)
	}
	if e.top.HasNeighbor(grid.Right) {
		e.packX(t0, grid.Right, nx-2)
	}
	if e.top.HasNeighbor(grid.Bottom) {
		e.packY(t0, grid.Bottom, 1)
	}
	if e.top.HasNeighbor(grid.Top) {
		e.packY(t0, grid.Top, ny-2)
	}
	if e.top.HasNeighbor(grid.Back) {
		e.packZ(t0, grid.Back, 1)
	}
	if e.top.HasNeighbor(grid.Front) {
		e.packZ(t0, grid.Front, nz-2)
	}
}

func (e *Exchanger) packX(t0 *field.Field, d grid.Direction, i int) {
	counter := 0
	buf := e.send[d]
	for j := 1; j < e.ny-1; j++ {
		for k := 1; k < e.nz-1; k++ {
			buf[counter] = t0.At(i, j, k)
			counter++
		}
	}
}

func (e *Exchanger) packY(t0 *field.Field, d grid.Direction, j int) {
	counter := 0
	buf := e.send[d]
	for i := 1; i < e.nx-1; i++ {
		for k := 1; k < e.nz-1; k++ {
			buf[counter] = t0.At(i, j, k)
			counter++
		}
	}
}

func (e *Exchanger) packZ(t0 *field.Field, d grid.Direction, k int) {
	counter := 0
	buf := e.send[d]
	for i := 1; i < e.nx-1; i++ {
		for j := 1; j < e.ny-1; j++ {
			buf[counter] = t0.At(i, j, k)
			counter++
		}
	}
}

// Start packs the send planes from t0 and issues the six non-blocking sends.
// It returns before any receive, so interior computation can overlap the
// transfers. Sends to faces without a peer complete immediately.
func (e *Exchanger) Start(t0 *field.Field) error {
	e.pack(t0)
	e.requests = e.requests[:0]
	for d := grid.Direction(0); d < grid.NumDirections; d++ {
		dest := e.top.Neighbors[d]
		req, err := e.comm.Isend(e.send[d], dest, tagBase+dest)
		if err != nil {
			return fmt.Errorf("halo send %s: %w", d, err)
		}
		e.requests = append(e.requests, req)
	}
	return nil
}

// Finish drains the six receives and waits for all outstanding sends. After
// it returns the receive planes are valid for this iteration and the send
// buffers may be repacked.
func (e *Exchanger) Finish() error {
	for d := grid.Direction(0); d < grid.NumDirections; d++ {
		source := e.top.Neighbors[d]
		if err := e.comm.Recv(e.recv[d], source, tagBase+e.comm.Rank()); err != nil {
			return fmt.Errorf("halo receive %s: %w", d, err)
		}
	}
	comm.Waitall(e.requests)
	return nil
}

// Exchange runs one full halo exchange from t0 with no overlapped work.
func (e *Exchanger) Exchange(t0 *field.Field) error {
	if err := e.Start(t0); err != nil {
		return err
	}
	return e.Finish()
}

// Plane exposes the received halo for face d as a read-only 2D view indexed
// identically to the packing order: row = outer index - 1, column = inner
// index - 1. It returns nil when the face has no peer or no interior.
func (e *Exchanger) Plane(d grid.Direction) mat.Matrix {
	if !e.top.HasNeighbor(d) {
		return nil
	}
	outer, inner := e.planeDims(d)
	if outer <= 0 || inner <= 0 {
		return nil
	}
	return mat.NewDense(outer, inner, e.recv[d][:outer*inner])
}

// SendBuffer exposes the packed send plane for face d; tests use it to check
// the pack order contract.
func (e *Exchanger) SendBuffer(d grid.Direction) []float64 {
	return e.send[d]
}

// RecvBuffer exposes the raw receive plane for face d.
func (e *Exchanger) RecvBuffer(d grid.Direction) []float64 {
	return e.recv[d]
}
