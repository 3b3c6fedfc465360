// Package audio provides buffering for synthesized speech on its way to the
// client. TTS services deliver audio in bursts; the ring buffer smooths those
// bursts into steady frame-sized WebSocket messages.
package audio

import "sync"

// RingBuffer is a fixed-capacity byte ring. Writes beyond capacity drop the
// excess rather than blocking, since stale audio is worse than a gap.
type RingBuffer struct {
	mu     sync.Mutex
	buf    []byte
	head   int // index of the oldest byte
	length int
}

// NewRingBuffer creates a ring buffer holding up to capacity bytes
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RingBuffer{buf: make([]byte, capacity)}
}

// Write appends data, returning how many bytes fit
func (rb *RingBuffer) Write(data []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	space := len(rb.buf) - rb.length
	n := len(data)
	if n > space {
		n = space
	}

	tail := (rb.head + rb.length) % len(rb.buf)
	first := copy(rb.buf[tail:], data[:n])
	if first < n {
		copy(rb.buf, data[first:n])
	}
	rb.length += n
	return n
}

// Read fills data with the oldest buffered bytes, returning how many were
// copied.
func (rb *RingBuffer) Read(data []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := len(data)
	if n > rb.length {
		n = rb.length
	}

	first := copy(data[:n], rb.buf[rb.head:min(rb.head+n, len(rb.buf))])
	if first < n {
		copy(data[first:n], rb.buf)
	}
	rb.head = (rb.head + n) % len(rb.buf)
	rb.length -= n
	return n
}

// Available returns the number of buffered bytes
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.length
}

// Clear discards all buffered audio. Used when playback is cancelled so a new
// utterance does not play tail audio from the previous one.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.head = 0
	rb.length = 0
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
