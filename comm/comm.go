// Package comm provides the message-passing layer used by the solver ranks.
//
// A World holds P rank endpoints inside one process. Ranks cooperate strictly
// through tagged point-to-point messages and collective reductions; the only
// state shared between ranks is the transport itself. The operations mirror
// the usual message-passing interface contracts: a non-blocking send completes
// once the matching receive has copied the payload out, a receive matches on
// (source, tag), and sends or receives addressed to ProcNull complete
// immediately without transferring anything.
package comm

import (
	"fmt"
	"sync"

	"github.com/exascience/pargo/parallel"
)

// ProcNull is the rank sentinel for a non-existent peer. Point-to-point
// operations addressed to it are no-ops that complete immediately.
const ProcNull = -1

// message is one in-flight point-to-point transfer. Exactly one of floats
// and ints is non-nil. done is closed by the receiver after it has copied
// the payload into its own buffer, which is when the sender may reuse its
// send buffer.
type message struct {
	source int
	tag    int
	floats []float64
	ints   []int
	done   chan struct{}
}

// mailbox is a rank's inbound queue. Posting never blocks and preserves the
// order in which senders posted, so messages between one (source, tag) pair
// cannot overtake each other.
type mailbox struct {
	mu    sync.Mutex
	cond  *sync.Cond
	queue []message
}

func newMailbox() *mailbox {
	mb := &mailbox{}
	mb.cond = sync.NewCond(&mb.mu)
	return mb
}

func (mb *mailbox) post(msg message) {
	mb.mu.Lock()
	mb.queue = append(mb.queue, msg)
	mb.mu.Unlock()
	mb.cond.Signal()
}

// take removes and returns the first queued message matching (source, tag),
// blocking until one arrives.
func (mb *mailbox) take(source, tag int) message {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for {
		for i, msg := range mb.queue {
			if msg.source == source && msg.tag == tag {
				mb.queue = append(mb.queue[:i], mb.queue[i+1:]...)
				return msg
			}
		}
		mb.cond.Wait()
	}
}

// World is a fixed-size group of rank endpoints sharing one transport.
type World struct {
	size      int
	mailboxes []*mailbox
}

// NewWorld creates a world of size ranks.
func NewWorld(size int) (*World, error) {
	if size < 1 {
		return nil, fmt.Errorf("world size must be at least 1, got %d", size)
	}
	w := &World{size: size}
	w.mailboxes = make([]*mailbox, size)
	for i := range w.mailboxes {
		w.mailboxes[i] = newMailbox()
	}
	return w, nil
}

// Size returns the number of ranks in the world.
func (w *World) Size() int { return w.size }

// Comm returns the endpoint for the given rank.
func (w *World) Comm(rank int) (*Comm, error) {
	if rank < 0 || rank >= w.size {
		return nil, fmt.Errorf("rank %d out of range [0,%d)", rank, w.size)
	}
	return &Comm{world: w, rank: rank}, nil
}

// Launch runs body once per rank, each on its own goroutine, and returns the
// left-most non-nil error once every rank has finished.
func (w *World) Launch(body func(c *Comm) error) error {
	errs := make([]error, w.size)
	thunks := make([]func(), w.size)
	for rank := 0; rank < w.size; rank++ {
		c, err := w.Comm(rank)
		if err != nil {
			return err
		}
		rank := rank
		thunks[rank] = func() { errs[rank] = body(c) }
	}
	parallel.Do(thunks...)
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Comm is one rank's endpoint into the world.
type Comm struct {
	world *World
	rank  int
}

// Rank returns this endpoint's rank.
func (c *Comm) Rank() int { return c.rank }

// Size returns the number of ranks in the world.
func (c *Comm) Size() int { return c.world.size }

// Request tracks an outstanding non-blocking send.
type Request struct {
	done chan struct{}
}

// Wait blocks until the transfer has completed and the send buffer may be
// reused.
func (r *Request) Wait() {
	if r.done != nil {
		<-r.done
	}
}

// Waitall waits on every request in order.
func Waitall(reqs []*Request) {
	for _, r := range reqs {
		r.Wait()
	}
}

// Isend starts a non-blocking send of buf to dest. The buffer must not be
// modified until the returned request has been waited on. A send to ProcNull
// completes immediately.
func (c *Comm) Isend(buf []float64, dest, tag int) (*Request, error) {
	if dest == ProcNull {
		return &Request{}, nil
	}
	if dest < 0 || dest >= c.world.size {
		return nil, fmt.Errorf("send to invalid rank %d", dest)
	}
	done := make(chan struct{})
	c.world.mailboxes[dest].post(message{source: c.rank, tag: tag, floats: buf, done: done})
	return &Request{done: done}, nil
}

// Send sends buf to dest and blocks until the receiver has taken it.
func (c *Comm) Send(buf []float64, dest, tag int) error {
	req, err := c.Isend(buf, dest, tag)
	if err != nil {
		return err
	}
	req.Wait()
	return nil
}

// Recv blocks until a message from source with the given tag arrives and
// copies its payload into buf. The message may not be longer than buf.
// A receive from ProcNull returns immediately without touching buf.
func (c *Comm) Recv(buf []float64, source, tag int) error {
	if source == ProcNull {
		return nil
	}
	if source < 0 || source >= c.world.size {
		return fmt.Errorf("receive from invalid rank %d", source)
	}
	msg := c.world.mailboxes[c.rank].take(source, tag)
	if msg.floats == nil {
		close(msg.done)
		return fmt.Errorf("rank %d: expected float payload from rank %d tag %d", c.rank, source, tag)
	}
	if len(msg.floats) > len(buf) {
		close(msg.done)
		return fmt.Errorf("rank %d: message of %d values truncates buffer of %d", c.rank, len(msg.floats), len(buf))
	}
	copy(buf, msg.floats)
	close(msg.done)
	return nil
}

// SendInts sends a slice of integers to dest, blocking until received.
func (c *Comm) SendInts(vs []int, dest, tag int) error {
	if dest == ProcNull {
		return nil
	}
	if dest < 0 || dest >= c.world.size {
		return fmt.Errorf("send to invalid rank %d", dest)
	}
	done := make(chan struct{})
	c.world.mailboxes[dest].post(message{source: c.rank, tag: tag, ints: vs, done: done})
	<-done
	return nil
}

// RecvInts receives a slice of integers from source into vs.
func (c *Comm) RecvInts(vs []int, source, tag int) error {
	if source == ProcNull {
		return nil
	}
	if source < 0 || source >= c.world.size {
		return fmt.Errorf("receive from invalid rank %d", source)
	}
	msg := c.world.mailboxes[c.rank].take(source, tag)
	if msg.ints == nil {
		close(msg.done)
		return fmt.Errorf("rank %d: expected int payload from rank %d tag %d", c.rank, source, tag)
	}
	if len(msg.ints) > len(vs) {
		close(msg.done)
		return fmt.Errorf("rank %d: message of %d values truncates buffer of %d", c.rank, len(msg.ints), len(vs))
	}
	copy(vs, msg.ints)
	close(msg.done)
	return nil
}
