package ui

import (
	"io"
	"sync"
)

// frame is one stereo sample pair.
type frame [2]int16

// AudioRingBuffer holds stereo frames between the render goroutine and
// oto's pull-model player. Write never blocks: on overflow the oldest frames
// are discarded. Read encodes whole frames as signed 16-bit little-endian
// bytes and blocks while the buffer is empty.
type AudioRingBuffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frames []frame
	head   int // oldest frame
	count  int

	dropped int
	closed  bool
}

// NewAudioRingBuffer creates a ring buffer holding up to capacity frames.
func NewAudioRingBuffer(capacity int) *AudioRingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	rb := &AudioRingBuffer{frames: make([]frame, capacity)}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// Write appends interleaved stereo samples. A trailing odd sample is
// ignored.
func (rb *AudioRingBuffer) Write(samples []int16) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := len(samples) / 2
	if rb.closed || n == 0 {
		return
	}

	size := len(rb.frames)
	if n > size {
		rb.dropped += n - size
		samples = samples[2*(n-size):]
		n = size
	}
	if over := rb.count + n - size; over > 0 {
		rb.head = (rb.head + over) % size
		rb.count -= over
		rb.dropped += over
	}

	tail := (rb.head + rb.count) % size
	for i := 0; i < n; i++ {
		rb.frames[tail] = frame{samples[2*i], samples[2*i+1]}
		tail++
		if tail == size {
			tail = 0
		}
	}
	rb.count += n
	rb.cond.Signal()
}

// Read implements io.Reader. It fills p with as many whole frames as are
// buffered and fit, blocking until at least one is available. It returns
// io.EOF once closed and drained.
func (rb *AudioRingBuffer) Read(p []byte) (int, error) {
	if len(p) < bytesPerFrame {
		return 0, io.ErrShortBuffer
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()

	for rb.count == 0 {
		if rb.closed {
			return 0, io.EOF
		}
		rb.cond.Wait()
	}

	n := len(p) / bytesPerFrame
	if n > rb.count {
		n = rb.count
	}
	size := len(rb.frames)
	for i := 0; i < n; i++ {
		f := rb.frames[rb.head]
		b := p[i*bytesPerFrame:]
		b[0], b[1] = byte(f[0]), byte(f[0]>>8)
		b[2], b[3] = byte(f[1]), byte(f[1]>>8)
		rb.head++
		if rb.head == size {
			rb.head = 0
		}
	}
	rb.count -= n
	return n * bytesPerFrame, nil
}

// Buffered returns the number of bytes Read could return right now.
func (rb *AudioRingBuffer) Buffered() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count * bytesPerFrame
}

// Dropped returns the number of frames discarded on overflow.
func (rb *AudioRingBuffer) Dropped() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.dropped
}

// Clear discards everything buffered.
func (rb *AudioRingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.head = 0
	rb.count = 0
}

// Close wakes any blocked Read. Later writes are ignored.
func (rb *AudioRingBuffer) Close() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.closed = true
	rb.cond.Broadcast()
}
