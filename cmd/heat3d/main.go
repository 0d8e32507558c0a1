// Command heat3d solves the 3D transient heat equation on a uniform
// cartesian grid, partitioned across a set of ranks that exchange halo
// planes every iteration.
//
// Usage:
//
//	heat3d [-np P] [-device PROPS] NX NY NZ ITER_MAX EPS
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/fredrickhang/heat3d/comm"
	"github.com/fredrickhang/heat3d/device"
	"github.com/fredrickhang/heat3d/grid"
	"github.com/fredrickhang/heat3d/output"
	"github.com/fredrickhang/heat3d/solver"
)

const outputPath = "output/out.dat"

func usage() {
	fmt.Fprintln(os.Stderr, "Incorrect number of command line arguments specified, use the following syntax:")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "  heat3d [-np P] [-device PROPS] NX NY NZ ITER_MAX EPS")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "  NX NY NZ    number of grid points per axis")
	fmt.Fprintln(os.Stderr, "  ITER_MAX    maximum number of time loop iterations")
	fmt.Fprintln(os.Stderr, "  EPS         relative convergence threshold")
	fmt.Fprintln(os.Stderr)
	flag.PrintDefaults()
}

func main() {
	os.Exit(run())
}

func run() int {
	flag.Usage = usage
	np := flag.Int("np", 1, "number of ranks")
	deviceProps := flag.String("device", "", "OCCA device properties JSON for the interior kernel (default: host kernel)")
	flag.Parse()

	args := flag.Args()
	if len(args) != 5 {
		usage()
		return 1
	}

	var global [grid.NumDims]int
	for axis := 0; axis < grid.NumDims; axis++ {
		n, err := strconv.Atoi(args[axis])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid grid size %q: %v\n", args[axis], err)
			return 1
		}
		global[axis] = n
	}
	iterMax, err := strconv.Atoi(args[3])
	if err != nil || iterMax < 0 {
		fmt.Fprintf(os.Stderr, "invalid ITER_MAX %q\n", args[3])
		return 1
	}
	eps, err := strconv.ParseFloat(args[4], 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid EPS %q: %v\n", args[4], err)
		return 1
	}

	dims, err := grid.Dims(*np, grid.NumDims)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	fmt.Println("Running heat3d with the following arguments:")
	fmt.Printf("number of cells in x:     %d\n", global[grid.X])
	fmt.Printf("number of cells in y:     %d\n", global[grid.Y])
	fmt.Printf("number of cells in z:     %d\n", global[grid.Z])
	fmt.Printf("max number of iterations: %d\n", iterMax)
	fmt.Printf("convergence threshold:    %g\n", eps)
	fmt.Printf("ranks:                    %d as %dx%dx%d\n\n", *np, dims[0], dims[1], dims[2])

	// The subdomain shape is identical on every rank, so checking rank 0
	// validates the whole decomposition before anything is launched.
	top0, err := grid.NewTopology(0, *np, dims)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if _, err := grid.NewSubdomain(top0, global, [grid.NumDims]float64{1, 1, 1}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	world, err := comm.NewWorld(*np)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	results := make([]solver.Result, *np)
	err = world.Launch(func(c *comm.Comm) error {
		cfg := solver.Config{Global: global, IterMax: iterMax, Eps: eps}

		if *deviceProps != "" {
			dev, err := device.NewDevice(*deviceProps)
			if err != nil {
				return err
			}
			defer dev.Free()
			topR, err := grid.NewTopology(c.Rank(), *np, dims)
			if err != nil {
				return err
			}
			local, err := grid.NewSubdomain(topR, global, [grid.NumDims]float64{1, 1, 1})
			if err != nil {
				return err
			}
			kern, err := device.NewKernel(dev, local.Nx, local.Ny, local.Nz)
			if err != nil {
				return err
			}
			defer kern.Free()
			cfg.Kernel = kern
		}

		s, err := solver.New(c, dims, cfg)
		if err != nil {
			return err
		}
		res, err := s.Run()
		if err != nil {
			return err
		}
		results[c.Rank()] = res
		return output.Write(outputPath, c, s.Topology(), s.Subdomain(), s.T())
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	r := results[0]
	fmt.Printf("Computational time (parallel): %f\n\n", r.Elapsed.Seconds())
	if r.Converged {
		fmt.Printf("Simulation has converged in %d iterations with a convergence threshold of %e\n", r.Iterations, eps)
	} else {
		fmt.Printf("Simulation did not converge within %d iterations.\n", r.Iterations)
	}
	fmt.Printf("L2-norm error: %.4f %%\n", 100*r.L2Error)
	return 0
}
