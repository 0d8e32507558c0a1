// Package output writes the converged field as a Tecplot POINT file for
// post-processing. All subdomain data funnels through rank 0: every other
// rank sends its field (tag 200+rank) and its process-grid coordinates
// (tag 300+rank), and rank 0 writes one zone per rank, in rank order, its
// own zone first. This path runs once after the time loop, outside the hot
// loop.
package output

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fredrickhang/heat3d/comm"
	"github.com/fredrickhang/heat3d/field"
	"github.com/fredrickhang/heat3d/grid"
)

// Tag bases of the gather; the tag of a transfer is base + sending rank.
const (
	TagField  = 200
	TagCoords = 300
)

// Write emits the field to path. Collective: every rank must call it. With a
// single rank the file carries no rank column and no gather happens.
func Write(path string, c *comm.Comm, t *grid.Topology, s *grid.Subdomain, T *field.Field) error {
	if c.Size() == 1 {
		return writeSingle(path, s, T)
	}
	if c.Rank() > 0 {
		return sendZone(c, t, s, T)
	}
	return gatherAndWrite(path, c, t, s, T)
}

// flatten packs T in i-fastest order across (i,j,k).
func flatten(s *grid.Subdomain, T *field.Field) []float64 {
	buf := make([]float64, s.Nx*s.Ny*s.Nz)
	counter := 0
	for k := 0; k < s.Nz; k++ {
		for j := 0; j < s.Ny; j++ {
			for i := 0; i < s.Nx; i++ {
				buf[counter] = T.At(i, j, k)
				counter++
			}
		}
	}
	return buf
}

func sendZone(c *comm.Comm, t *grid.Topology, s *grid.Subdomain, T *field.Field) error {
	if err := c.Send(flatten(s, T), 0, TagField+c.Rank()); err != nil {
		return err
	}
	return c.SendInts(t.Coords[:], 0, TagCoords+c.Rank())
}

func gatherAndWrite(path string, c *comm.Comm, t *grid.Topology, s *grid.Subdomain, T *field.Field) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	fmt.Fprintln(w, `TITLE="out"`)
	fmt.Fprintln(w, `VARIABLES = "X", "Y", "Z", "T", "rank"`)

	writeZone(w, s, t.Coords, flatten(s, T), 0, true)

	values := make([]float64, s.Nx*s.Ny*s.Nz)
	coords := make([]int, grid.NumDims)
	for rank := 1; rank < c.Size(); rank++ {
		if err := c.Recv(values, rank, TagField+rank); err != nil {
			return err
		}
		if err := c.RecvInts(coords, rank, TagCoords+rank); err != nil {
			return err
		}
		var cs [grid.NumDims]int
		copy(cs[:], coords)
		writeZone(w, s, cs, values, rank, true)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	return nil
}

func writeSingle(path string, s *grid.Subdomain, T *field.Field) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	fmt.Fprintln(w, `TITLE="out"`)
	fmt.Fprintln(w, `VARIABLES = "X", "Y", "Z", "T"`)
	writeZone(w, s, s.Coords, flatten(s, T), 0, false)

	if err := w.Flush(); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	return nil
}

// writeZone emits one subdomain block: node coordinates and values in
// i-fastest order. All subdomains share the same extents, so the header uses
// the local sizes of the writing rank.
func writeZone(w *bufio.Writer, s *grid.Subdomain, coords [grid.NumDims]int, values []float64, rank int, withRank bool) {
	fmt.Fprintf(w, "ZONE T = \"%d\", I=%d, J=%d, K=%d, F=POINT\n", rank, s.Nx, s.Ny, s.Nz)
	counter := 0
	for k := 0; k < s.Nz; k++ {
		for j := 0; j < s.Ny; j++ {
			for i := 0; i < s.Nx; i++ {
				x := float64(coords[grid.X]*(s.Nx-1)+i) * s.Spacing[grid.X]
				y := float64(coords[grid.Y]*(s.Ny-1)+j) * s.Spacing[grid.Y]
				z := float64(coords[grid.Z]*(s.Nz-1)+k) * s.Spacing[grid.Z]
				fmt.Fprintf(w, "%15.5e%15.5e%15.5e%15.5e", x, y, z, values[counter])
				if withRank {
					fmt.Fprintf(w, "%5d", rank)
				}
				fmt.Fprintln(w)
				counter++
			}
		}
	}
}
