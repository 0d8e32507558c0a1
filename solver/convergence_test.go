package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredrickhang/heat3d/comm"
	"github.com/fredrickhang/heat3d/field"
)

func singleComm(t *testing.T) *comm.Comm {
	t.Helper()
	w, err := comm.NewWorld(1)
	require.NoError(t, err)
	c, err := w.Comm(0)
	require.NoError(t, err)
	return c
}

func TestResidualStrictInterior(t *testing.T) {
	a, err := field.New(4, 4, 4)
	require.NoError(t, err)
	b, err := field.New(4, 4, 4)
	require.NoError(t, err)

	// Boundary differences are invisible to the residual.
	a.Set(0, 2, 2, 9.0)
	a.Set(3, 1, 1, 9.0)
	assert.Equal(t, 0.0, Residual(a, b))

	a.Set(1, 2, 1, 0.25)
	a.Set(2, 2, 2, -0.5)
	assert.Equal(t, 0.5, Residual(a, b))
}

func TestMonitorEstablishesNorm(t *testing.T) {
	c := singleComm(t)
	m := NewMonitor(c, 0.9)

	a, err := field.New(4, 4, 4)
	require.NoError(t, err)
	b, err := field.New(4, 4, 4)
	require.NoError(t, err)
	a.Set(1, 1, 1, 0.5)

	// Iteration 0: norm becomes the first residual; res/norm = 1, which
	// is not below eps.
	done, err := m.Converged(a, b, 0)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 0.5, m.Norm())

	// A smaller residual relative to the established norm converges.
	a.Set(1, 1, 1, 0.1)
	done, err = m.Converged(a, b, 1)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestMonitorZeroResidualKeepsUnitNorm(t *testing.T) {
	c := singleComm(t)
	m := NewMonitor(c, 1e-6)

	a, err := field.New(4, 4, 4)
	require.NoError(t, err)
	b, err := field.New(4, 4, 4)
	require.NoError(t, err)

	// Identical fields on iteration 0: the normalizer stays 1.0 and
	// res/norm = 0 < eps fires immediately.
	done, err := m.Converged(a, b, 0)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 1.0, m.Norm())
}

func TestMonitorNormReducedByMin(t *testing.T) {
	w, err := comm.NewWorld(2)
	require.NoError(t, err)

	norms := make([]float64, 2)
	err = w.Launch(func(c *comm.Comm) error {
		a, err := field.New(4, 4, 4)
		if err != nil {
			return err
		}
		b, err := field.New(4, 4, 4)
		if err != nil {
			return err
		}
		// Rank 0 sees residual 0.5, rank 1 sees 0.2.
		if c.Rank() == 0 {
			a.Set(1, 1, 1, 0.5)
		} else {
			a.Set(1, 1, 1, 0.2)
		}
		m := NewMonitor(c, 1e-12)
		if _, err := m.Converged(a, b, 0); err != nil {
			return err
		}
		norms[c.Rank()] = m.Norm()
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 0.2, norms[0], "every rank must use the reduced norm")
	assert.Equal(t, 0.2, norms[1])
}

func TestMonitorBreakFlagReducedByMax(t *testing.T) {
	// Rank 1 is locally quiescent (res = 0), rank 0 is not. Under the
	// MAX reduction any converged rank ends the loop.
	w, err := comm.NewWorld(2)
	require.NoError(t, err)

	results := make([]bool, 2)
	err = w.Launch(func(c *comm.Comm) error {
		a, err := field.New(4, 4, 4)
		if err != nil {
			return err
		}
		b, err := field.New(4, 4, 4)
		if err != nil {
			return err
		}
		if c.Rank() == 0 {
			a.Set(1, 1, 1, 0.5)
		}
		m := NewMonitor(c, 1e-6)
		done, err := m.Converged(a, b, 0)
		if err != nil {
			return err
		}
		results[c.Rank()] = done
		return nil
	})
	require.NoError(t, err)

	assert.True(t, results[0])
	assert.True(t, results[1])
}
