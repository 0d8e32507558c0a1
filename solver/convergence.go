package solver

import (
	"math"

	"github.com/exascience/pargo/parallel"

	"github.com/fredrickhang/heat3d/comm"
	"github.com/fredrickhang/heat3d/field"
)

// Monitor decides termination. The residual is the max |T - T0| over the
// strict interior; the residual of the first iteration, reduced by MIN across
// ranks, becomes the normalizer every rank divides by thereafter.
//
// The break flag is reduced by MAX: the loop ends as soon as any rank
// reports res/norm < eps. See DESIGN.md for the MAX-versus-MIN discussion.
type Monitor struct {
	comm *comm.Comm
	eps  float64
	norm float64
}

// NewMonitor creates a monitor with normalizer 1.0 until the first residual
// establishes it.
func NewMonitor(c *comm.Comm, eps float64) *Monitor {
	return &Monitor{comm: c, eps: eps, norm: 1.0}
}

// Norm returns the current normalizer.
func (m *Monitor) Norm() float64 { return m.norm }

// Residual computes the local max |t - t0| over the strict interior,
// splitting the outer i-range across goroutines.
func Residual(t, t0 *field.Field) float64 {
	nx, ny, nz := t.Nx, t.Ny, t.Nz
	a := t.Data()
	b := t0.Data()
	res := parallel.RangeReduceFloat64(1, nx-1, 0,
		func(low, high int) (result float64) {
			for i := low; i < high; i++ {
				for j := 1; j < ny-1; j++ {
					base := (i*ny + j) * nz
					for k := 1; k < nz-1; k++ {
						if d := math.Abs(a[base+k] - b[base+k]); d > result {
							result = d
						}
					}
				}
			}
			return result
		},
		math.Max,
	)
	return res
}

// Converged runs the per-iteration convergence test. On iteration 0 it first
// establishes the global normalizer: the local residual if positive, else
// 1.0, MIN-reduced so every rank divides by the same value. Collective.
func (m *Monitor) Converged(t, t0 *field.Field, iter int) (bool, error) {
	res := Residual(t, t0)

	if iter == 0 {
		if res != 0.0 {
			m.norm = res
		}
		global, err := m.comm.AllreduceFloat64(m.norm, comm.Min)
		if err != nil {
			return false, err
		}
		m.norm = global
	}

	flag := 0
	if res/m.norm < m.eps {
		flag = 1
	}
	global, err := m.comm.AllreduceInt(flag, comm.Max)
	if err != nil {
		return false, err
	}
	return global != 0, nil
}
