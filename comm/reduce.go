package comm

import (
	"fmt"
	"math"
)

// Op selects the combining operation of a reduction.
type Op int

const (
	Min Op = iota
	Max
	Sum
)

func (op Op) String() string {
	switch op {
	case Min:
		return "min"
	case Max:
		return "max"
	case Sum:
		return "sum"
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

func (op Op) combine(a, b float64) float64 {
	switch op {
	case Min:
		return math.Min(a, b)
	case Max:
		return math.Max(a, b)
	default:
		return a + b
	}
}

// Reserved tags for the reduction collective. The solver's point-to-point
// tags are all non-negative, so the negative space is free.
const (
	tagReduceGather = -2
	tagReduceResult = -3
)

// AllreduceFloat64 combines v across all ranks with op and returns the result
// on every rank. The call is collective: every rank in the world must invoke
// it in the same order. Rank 0 gathers in rank order, combines, and
// broadcasts, so the result is bitwise identical on every rank.
func (c *Comm) AllreduceFloat64(v float64, op Op) (float64, error) {
	if c.world.size == 1 {
		return v, nil
	}
	scratch := []float64{v}
	if c.rank != 0 {
		if err := c.Send(scratch, 0, tagReduceGather); err != nil {
			return 0, err
		}
		if err := c.Recv(scratch, 0, tagReduceResult); err != nil {
			return 0, err
		}
		return scratch[0], nil
	}
	acc := v
	for source := 1; source < c.world.size; source++ {
		if err := c.Recv(scratch, source, tagReduceGather); err != nil {
			return 0, err
		}
		acc = op.combine(acc, scratch[0])
	}
	result := []float64{acc}
	for dest := 1; dest < c.world.size; dest++ {
		if err := c.Send(result, dest, tagReduceResult); err != nil {
			return 0, err
		}
	}
	return acc, nil
}

// AllreduceInt combines v across all ranks with op and returns the result on
// every rank. Collective, like AllreduceFloat64.
func (c *Comm) AllreduceInt(v int, op Op) (int, error) {
	if c.world.size == 1 {
		return v, nil
	}
	scratch := []int{v}
	if c.rank != 0 {
		if err := c.SendInts(scratch, 0, tagReduceGather); err != nil {
			return 0, err
		}
		if err := c.RecvInts(scratch, 0, tagReduceResult); err != nil {
			return 0, err
		}
		return scratch[0], nil
	}
	acc := v
	for source := 1; source < c.world.size; source++ {
		if err := c.RecvInts(scratch, source, tagReduceGather); err != nil {
			return 0, err
		}
		switch op {
		case Min:
			if scratch[0] < acc {
				acc = scratch[0]
			}
		case Max:
			if scratch[0] > acc {
				acc = scratch[0]
			}
		default:
			acc += scratch[0]
		}
	}
	result := []int{acc}
	for dest := 1; dest < c.world.size; dest++ {
		if err := c.SendInts(result, dest, tagReduceResult); err != nil {
			return 0, err
		}
	}
	return acc, nil
}
