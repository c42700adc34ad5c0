// Package streamer implements the two-thread disk-to-real-time audio
// pipeline: a Streamer handle callable from the real-time thread
// (GetData, Seek) and a disk goroutine that decodes ahead into a pool of
// recycled blocks. Generalizes the teacher's producer/consumer pattern in
// pkg/audioframeringbuffer plus the Start/Stop lifecycle of
// internal/fileplayer/fileplayer.go, replacing the byte-frame ring with
// the block.NewPool wait-free block exchange.
package streamer

import (
	"sync"
	"sync/atomic"
	"time"

	"trackstreamer/pkg/block"
	"trackstreamer/pkg/diag"
	"trackstreamer/pkg/source"
)

// Options configures prebuffering and the disk thread's idle-poll
// granularity. Mirrors the teacher's Config/DefaultConfig constructor
// pattern (pkg/audioplayer/player.go).
type Options struct {
	// Capacity is the number of blocks circulating in the pool.
	Capacity int
	// MinPrebufferFrames is how far ahead the disk thread decodes before
	// it will hand the consumer side to the real-time thread.
	MinPrebufferFrames uint64
	// IdleSleep is how long the disk thread sleeps when the recycling
	// queue is momentarily empty.
	IdleSleep time.Duration
}

// DefaultOptions returns the spec's suggested defaults: a 4096-frame
// prebuffer and a 1ms idle-poll granularity.
func DefaultOptions() Options {
	return Options{
		Capacity:           32,
		MinPrebufferFrames: 4096,
		IdleSleep:          time.Millisecond,
	}
}

type readyMsg struct {
	frame uint64
	side  block.ConsumerSide
}

type seekMsg struct {
	frame uint64
	side  block.ConsumerSide
}

// Streamer is the real-time-facing handle: GetData and Seek are wait-free
// and allocation-free, safe to call from an audio callback thread.
type Streamer struct {
	outputChannels uint32
	blocksize      int

	consumer      *block.ConsumerSide // nil when not currently held by this handle
	consumerSide  block.ConsumerSide  // storage consumer points at, so adopting a side never allocates
	consumerFrame uint64              // frame the next successful GetData pop will read; advances by blocksize on every pop
	ready         *block.Mailbox[readyMsg]
	seekMB        *block.Mailbox[seekMsg]

	previouslyRolling bool
	pendingSeek       *uint64
	pendingSeekFrame  uint64 // storage pendingSeek points at, so deferring a seek never allocates

	stop *atomic.Bool
	wg   sync.WaitGroup

	mon *diag.Monitor

	closeMu sync.Mutex
	closed  bool
}

// New constructs the block pool, spawns the disk thread, and returns the
// real-time-facing handle. The disk thread starts out holding the pool's
// movable consumer side already positioned at frame 0 (per §4.7's
// "optional owned consumer_side" loop state): the RT handle begins
// holding none, matching the spec's stated initial handle state, and only
// acquires one the first time Seek observes a ready message.
func New(playlist *source.Playlist, blocksize, outputChannels int, opts Options) *Streamer {
	disk, consumerSide := block.NewPool(opts.Capacity, outputChannels, blocksize)

	s := &Streamer{
		outputChannels: uint32(outputChannels),
		blocksize:      blocksize,
		ready:          &block.Mailbox[readyMsg]{},
		seekMB:         &block.Mailbox[seekMsg]{},
		stop:           &atomic.Bool{},
		mon:            diag.NewMonitor(),
	}

	s.wg.Add(1)
	go diskLoop(diskArgs{
		disk:               disk,
		consumer:           &consumerSide,
		playlist:           playlist,
		blocksize:          blocksize,
		minPrebufferFrames: opts.MinPrebufferFrames,
		idleSleep:          opts.IdleSleep,
		ready:              s.ready,
		seekMB:             s.seekMB,
		stop:               s.stop,
		mon:                s.mon,
	}, &s.wg)

	return s
}

// Channels reports the number of output channels this streamer was built for.
func (s *Streamer) Channels() uint32 { return s.outputChannels }

// Status returns a diagnostics snapshot. Safe to call from any thread
// except the real-time callback: it does not touch s.consumer, which is
// single-threaded RT state.
func (s *Streamer) Status() diag.Status {
	return s.mon.Poll(0)
}

// Seek requests that playback reposition to frame. It never blocks:
//   - If the previous GetData call had rolling=true, the repositioning is
//     deferred to the next GetData call, which will fade out first.
//   - If no consumer side is held, it tries to adopt one freshly handed
//     off by the disk thread.
//   - If the held side (freshly adopted or already held from steady
//     playback) is already positioned at frame, Seek is a no-op and
//     returns true without sending another seek message.
//   - Otherwise the held side is handed to the disk thread with the
//     requested frame, and Seek returns false — the reposition completes
//     asynchronously.
func (s *Streamer) Seek(frame uint64) bool {
	if s.previouslyRolling {
		s.pendingSeekFrame = frame
		s.pendingSeek = &s.pendingSeekFrame
		return false
	}

	if s.consumer == nil {
		msg, ok := s.ready.TryPop()
		if !ok {
			return false
		}
		s.consumerSide = msg.side
		s.consumer = &s.consumerSide
		s.consumerFrame = msg.frame
	}

	if s.consumerFrame == frame {
		return true
	}

	s.pushSeek(frame)
	return false
}

// pushSeek hands the held consumer side to the disk thread to be
// repositioned at frame. If the seek mailbox is momentarily full, the
// side stays held and a later Seek call retries.
func (s *Streamer) pushSeek(frame uint64) {
	if s.consumer == nil {
		return
	}
	if s.seekMB.TryPush(seekMsg{frame: frame, side: *s.consumer}) {
		s.consumer = nil
	}
}

type fadeMode int

const (
	fadeNone fadeMode = iota
	fadeIn
	fadeOut
)

func fadeModeFor(rolling, previously bool) fadeMode {
	switch {
	case rolling && !previously:
		return fadeIn
	case !rolling && previously:
		return fadeOut
	default:
		return fadeNone
	}
}

// GetData is the real-time entry point: wait-free, allocation-free, with
// work bounded by O(blocksize * channels). target must have one slice per
// output channel, each exactly s.blocksize long.
func (s *Streamer) GetData(target [][]float32, rolling bool) bool {
	previously := s.previouslyRolling

	var result bool
	switch {
	case !rolling && !previously:
		zeroAll(target)
		result = true
	case s.consumer != nil:
		b, ok := s.consumer.Data.TryPop()
		if !ok {
			zeroAll(target)
			s.mon.RecordUnderrun()
			result = false
		} else {
			copyWithFade(target, b, fadeModeFor(rolling, previously), s.blocksize)
			s.consumer.Recycling.TryPush(b)
			s.consumerFrame += uint64(s.blocksize)
			result = true
		}
	default:
		zeroAll(target)
		result = false
	}

	s.previouslyRolling = rolling

	if s.pendingSeek != nil {
		f := *s.pendingSeek
		s.pendingSeek = nil
		if rolling {
			return false
		}
		s.Seek(f)
	}

	return result
}

func zeroAll(target [][]float32) {
	for _, ch := range target {
		for i := range ch {
			ch[i] = 0
		}
	}
}

func copyWithFade(target [][]float32, b *block.Block, mode fadeMode, blocksize int) {
	for ch := range target {
		src := b.Channels[ch]
		dst := target[ch]
		switch mode {
		case fadeIn:
			for i := 0; i < blocksize; i++ {
				dst[i] = src[i] * float32(i+1) / float32(blocksize)
			}
		case fadeOut:
			for i := 0; i < blocksize; i++ {
				dst[i] = src[i] * float32(blocksize-i) / float32(blocksize)
			}
		default:
			copy(dst, src[:blocksize])
		}
	}
}

// Close stops the disk thread and joins it. Idempotent and safe to call
// multiple times, matching the teacher's Stop() idiom
// (pkg/audioplayer/player.go, internal/fileplayer/fileplayer.go).
func (s *Streamer) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.stop.Store(true)
	s.wg.Wait()
	return nil
}

type diskArgs struct {
	disk               block.DiskSide
	consumer           *block.ConsumerSide
	playlist           *source.Playlist
	blocksize          int
	minPrebufferFrames uint64
	idleSleep          time.Duration
	ready              *block.Mailbox[readyMsg]
	seekMB             *block.Mailbox[seekMsg]
	stop               *atomic.Bool
	mon                *diag.Monitor
}

// diskLoop is the disk thread: decode ahead into recycled blocks, publish
// them on the data queue, and hand the consumer side off once prebuffered.
func diskLoop(a diskArgs, wg *sync.WaitGroup) {
	defer wg.Done()

	consumer := a.consumer
	var currentFrame, seekFrame uint64

	for !a.stop.Load() {
		if msg, ok := a.seekMB.TryPop(); ok {
			side := msg.side
			drainToRecycling(side)
			consumer = &side
			currentFrame = msg.frame
			seekFrame = msg.frame
		}

		b, ok := a.disk.Recycling.TryPop()
		if !ok {
			time.Sleep(a.idleSleep)
			continue
		}
		b.Zero()

		blockStart := currentFrame
		blockEnd := currentFrame + uint64(a.blocksize)

		for _, e := range a.playlist.Active(blockStart, blockEnd) {
			var offset int
			if e.Start < currentFrame {
				offset = 0
				if currentFrame == seekFrame {
					if err := e.Source.Seek(currentFrame - e.Start); err != nil {
						a.mon.RecordError(err.Error())
						return
					}
				}
			} else {
				offset = int(e.Start - currentFrame)
				if err := e.Source.Seek(0); err != nil {
					a.mon.RecordError(err.Error())
					return
				}
			}
			if err := e.Source.Fill(e.ChannelMap, a.blocksize, offset, b.Channels); err != nil {
				a.mon.RecordError(err.Error())
				return
			}
		}

		a.disk.Data.TryPush(b)
		currentFrame += uint64(a.blocksize)

		if consumer != nil && currentFrame-seekFrame >= a.minPrebufferFrames {
			if a.ready.TryPush(readyMsg{frame: seekFrame, side: *consumer}) {
				consumer = nil
			}
		}
	}
}

func drainToRecycling(side block.ConsumerSide) {
	for {
		b, ok := side.Data.TryPop()
		if !ok {
			return
		}
		side.Recycling.TryPush(b)
	}
}
