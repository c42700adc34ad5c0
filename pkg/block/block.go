// Package block provides the fixed-size block pool and lock-free single
// producer/single consumer primitives that carry audio data between the
// disk thread and the real-time callback thread without allocation.
//
// The queue design generalizes the teacher ringbuffer's atomic writePos
// /readPos scheme (pkg/ringbuffer/ringbuffer.go) from a byte ring to a ring
// of *Block pointers, and adds a single-slot Mailbox for the control
// handoffs (ready, seek) that must not use Go channels: a channel's runtime
// implementation takes an internal lock, which the real-time side must
// never touch.
package block

import "sync/atomic"

// Block is one fixed-size, pre-allocated chunk of de-interleaved audio,
// blocksize frames long in each of Channels' rows. Blocks circulate forever
// between the data queue and the recycling queue; neither side ever frees
// or allocates one after pool construction.
type Block struct {
	Channels [][]float32
}

func newBlock(channels, blocksize int) *Block {
	b := &Block{Channels: make([][]float32, channels)}
	for c := range b.Channels {
		b.Channels[c] = make([]float32, blocksize)
	}
	return b
}

// Zero clears every sample in the block. Callers zero a block before
// accumulating channel-mapped source data into it.
func (b *Block) Zero() {
	for _, ch := range b.Channels {
		for i := range ch {
			ch[i] = 0
		}
	}
}

// spscQueue is a wait-free single-producer/single-consumer ring of *Block,
// sized to a power of 2 so position-to-index reduces to a mask. Mirrors the
// atomic Store/Load happens-before pattern of ringbuffer.RingBuffer.
type spscQueue struct {
	buf      []*Block
	mask     uint64
	writePos atomic.Uint64
	readPos  atomic.Uint64
}

func newSPSCQueue(capacity int) *spscQueue {
	size := nextPowerOf2(uint64(capacity))
	return &spscQueue{
		buf:  make([]*Block, size),
		mask: size - 1,
	}
}

// tryPush enqueues b. It returns false without blocking if the queue is
// full. Producer-side only.
func (q *spscQueue) tryPush(b *Block) bool {
	writePos := q.writePos.Load()
	readPos := q.readPos.Load()
	if writePos-readPos >= uint64(len(q.buf)) {
		return false
	}
	q.buf[writePos&q.mask] = b
	q.writePos.Store(writePos + 1)
	return true
}

// tryPop dequeues the oldest block. It returns (nil, false) without
// blocking if the queue is empty. Consumer-side only.
func (q *spscQueue) tryPop() (*Block, bool) {
	readPos := q.readPos.Load()
	writePos := q.writePos.Load()
	if readPos == writePos {
		return nil, false
	}
	b := q.buf[readPos&q.mask]
	q.readPos.Store(readPos + 1)
	return b, true
}

// Producer is the write-only end of a block queue.
type Producer struct{ q *spscQueue }

// TryPush attempts to enqueue b, returning false if the queue is full.
func (p Producer) TryPush(b *Block) bool { return p.q.tryPush(b) }

// Consumer is the read-only end of a block queue.
type Consumer struct{ q *spscQueue }

// TryPop attempts to dequeue a block, returning false if the queue is empty.
func (c Consumer) TryPop() (*Block, bool) { return c.q.tryPop() }

// Mailbox is a zero-allocation, wait-free single-slot rendezvous used for
// control handoffs (ready, seek) between the two threads. Unlike a Go
// channel of capacity 1, Mailbox never blocks and never touches the
// runtime scheduler: TryPush/TryPop are plain atomic operations, safe to
// call from the real-time thread.
type Mailbox[T any] struct {
	full atomic.Bool
	val  T
}

// TryPush stores v if the mailbox is empty. Returns false, leaving v
// undelivered, if a previous value has not yet been taken.
func (m *Mailbox[T]) TryPush(v T) bool {
	if m.full.Load() {
		return false
	}
	m.val = v
	m.full.Store(true)
	return true
}

// TryPop takes the stored value, if any, clearing the mailbox.
func (m *Mailbox[T]) TryPop() (T, bool) {
	var zero T
	if !m.full.Load() {
		return zero, false
	}
	v := m.val
	m.full.Store(false)
	return v, true
}

// DiskSide bundles the disk thread's ends of one consumer side's two
// queues: it produces filled blocks and consumes the empties recycled back
// by the real-time thread.
type DiskSide struct {
	Data      Producer
	Recycling Consumer
}

// ConsumerSide bundles the real-time thread's ends of one consumer side's
// two queues: it consumes filled blocks and produces empties back onto the
// recycling queue for the disk thread to refill.
type ConsumerSide struct {
	Data      Consumer
	Recycling Producer
}

// NewPool allocates capacity blocks of channels x blocksize and wires them
// into a fresh data/recycling queue pair, with every block initially
// sitting in the recycling queue (consumer-owned, empty, ready for the
// disk thread to fill). capacity is rounded up to the queue's power-of-2
// sizing but only `capacity` blocks are ever constructed or circulated.
func NewPool(capacity, channels, blocksize int) (DiskSide, ConsumerSide) {
	data := newSPSCQueue(capacity)
	recycling := newSPSCQueue(capacity)

	for i := 0; i < capacity; i++ {
		b := newBlock(channels, blocksize)
		recycling.tryPush(b)
	}

	disk := DiskSide{
		Data:      Producer{q: data},
		Recycling: Consumer{q: recycling},
	}
	consumer := ConsumerSide{
		Data:      Consumer{q: data},
		Recycling: Producer{q: recycling},
	}
	return disk, consumer
}

func nextPowerOf2(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}
