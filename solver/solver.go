package solver

import (
	"fmt"
	"math"
	"time"

	"github.com/fredrickhang/heat3d/comm"
	"github.com/fredrickhang/heat3d/field"
	"github.com/fredrickhang/heat3d/grid"
	"github.com/fredrickhang/heat3d/halo"
)

// Config describes one run of the solver.
type Config struct {
	// Global lattice sizes (Nx, Ny, Nz).
	Global [grid.NumDims]int

	// Domain lengths per axis; zero means the unit cube.
	Length [grid.NumDims]float64

	// IterMax bounds the time loop.
	IterMax int

	// Eps is the relative convergence threshold.
	Eps float64

	// Kernel realizes the interior update; nil selects HostKernel.
	Kernel InteriorKernel
}

// Result summarizes a finished run on one rank. Converged, Iterations and
// L2Error are identical on every rank; Elapsed is rank-local.
type Result struct {
	Converged  bool
	Iterations int
	Elapsed    time.Duration

	// L2Error is the cell-averaged error against the analytic field
	// T = y, summed across ranks, as a fraction.
	L2Error float64
}

// Solver runs the distributed Jacobi iteration on one rank.
type Solver struct {
	comm    *comm.Comm
	top     *grid.Topology
	sub     *grid.Subdomain
	coef    Coefficients
	t, t0   *field.Field
	ex      *halo.Exchanger
	updater *Updater
	monitor *Monitor
	kernel  InteriorKernel
	iterMax int
}

// New wires the solver for the calling rank on the given process grid. The
// field is zero-initialized with Dirichlet data on physical boundary faces.
func New(c *comm.Comm, dims []int, cfg Config) (*Solver, error) {
	if cfg.IterMax < 0 {
		return nil, fmt.Errorf("iterMax must be non-negative, got %d", cfg.IterMax)
	}
	length := cfg.Length
	for axis := range length {
		if length[axis] == 0 {
			length[axis] = 1.0
		}
	}

	top, err := grid.NewTopology(c.Rank(), c.Size(), dims)
	if err != nil {
		return nil, err
	}
	sub, err := grid.NewSubdomain(top, cfg.Global, length)
	if err != nil {
		return nil, err
	}

	t, err := field.New(sub.Nx, sub.Ny, sub.Nz)
	if err != nil {
		return nil, err
	}
	t0, err := field.New(sub.Nx, sub.Ny, sub.Nz)
	if err != nil {
		return nil, err
	}
	field.ApplyDirichlet(t, top, sub)

	coef := NewCoefficients(sub.Spacing)
	kernel := cfg.Kernel
	if kernel == nil {
		kernel = HostKernel{}
	}

	return &Solver{
		comm:    c,
		top:     top,
		sub:     sub,
		coef:    coef,
		t:       t,
		t0:      t0,
		ex:      halo.NewExchanger(c, top, sub),
		updater: NewUpdater(top, sub, coef),
		monitor: NewMonitor(c, cfg.Eps),
		kernel:  kernel,
		iterMax: cfg.IterMax,
	}, nil
}

// T returns the current iterate.
func (s *Solver) T() *field.Field { return s.t }

// Topology returns the rank's topology entry.
func (s *Solver) Topology() *grid.Topology { return s.top }

// Subdomain returns the rank's subdomain geometry.
func (s *Solver) Subdomain() *grid.Subdomain { return s.sub }

// Coefficients returns the stencil coefficients in use.
func (s *Solver) Coefficients() Coefficients { return s.coef }

// Step advances the solution by one iteration: snapshot, halo send, interior
// update overlapped with the transfers, halo receive, face/edge/corner
// completion.
func (s *Solver) Step() error {
	if err := s.t0.CopyFrom(s.t); err != nil {
		return err
	}
	if err := s.ex.Start(s.t0); err != nil {
		return err
	}
	if err := s.kernel.UpdateInterior(s.t, s.t0, s.coef); err != nil {
		return err
	}
	if err := s.ex.Finish(); err != nil {
		return err
	}
	s.updater.UpdateFaces(s.t, s.t0, s.ex)
	s.updater.UpdateEdges(s.t)
	s.updater.UpdateCorners(s.t)
	return nil
}

// Run iterates until convergence or IterMax and then evaluates the global
// error metric. Termination is observed collectively: every rank leaves the
// loop at the same iteration.
func (s *Solver) Run() (Result, error) {
	var res Result
	start := time.Now()

	for iter := 0; iter < s.iterMax; iter++ {
		if err := s.Step(); err != nil {
			return res, err
		}
		done, err := s.monitor.Converged(s.t, s.t0, iter)
		if err != nil {
			return res, err
		}
		if done {
			res.Converged = true
			res.Iterations = iter
			break
		}
	}
	if !res.Converged {
		res.Iterations = s.iterMax
	}
	res.Elapsed = time.Since(start)

	l2, err := s.l2Error()
	if err != nil {
		return res, err
	}
	res.L2Error = l2
	return res, nil
}

// l2Error measures the converged field against the analytic reference
// T(i,j,k) = y over the strict interior, averages per cell, and sums the
// per-rank averages across the world.
func (s *Solver) l2Error() (float64, error) {
	nx, ny, nz := s.sub.Nx, s.sub.Ny, s.sub.Nz
	sum := 0.0
	for k := 1; k < nz-1; k++ {
		for j := 1; j < ny-1; j++ {
			y := s.sub.GlobalCoord(grid.Y, j)
			for i := 1; i < nx-1; i++ {
				sum += math.Abs(s.t.At(i, j, k) - y)
			}
		}
	}
	count := (nx - 2) * (ny - 2) * (nz - 2)
	local := 0.0
	if count > 0 {
		local = sum / float64(count)
	}
	return s.comm.AllreduceFloat64(local, comm.Sum)
}
