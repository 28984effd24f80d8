package audio

import (
	"sync"
)

// RingBuffer is a thread-safe byte ring. The speaker renderer stages decoded
// PCM here between the decoder and the output device so device reads never
// block on decoding.
type RingBuffer struct {
	buf   []byte
	size  int
	read  int
	write int
	count int
	mu    sync.Mutex
}

// NewRingBuffer creates a ring buffer holding up to size bytes.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{
		buf:  make([]byte, size),
		size: size,
	}
}

// Write copies data into the buffer. Returns the number of bytes written,
// which is less than len(data) when the buffer fills.
func (rb *RingBuffer) Write(data []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := len(data)
	if free := rb.size - rb.count; n > free {
		n = free
	}
	for i := 0; i < n; {
		copied := copy(rb.buf[rb.write:], data[i:n])
		rb.write = (rb.write + copied) % rb.size
		i += copied
	}
	rb.count += n
	return n
}

// Read copies buffered bytes into data. Returns the number of bytes read.
func (rb *RingBuffer) Read(data []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := len(data)
	if n > rb.count {
		n = rb.count
	}
	for i := 0; i < n; {
		end := rb.read + (n - i)
		if end > rb.size {
			end = rb.size
		}
		copied := copy(data[i:n], rb.buf[rb.read:end])
		rb.read = (rb.read + copied) % rb.size
		i += copied
	}
	rb.count -= n
	return n
}

// Available returns the number of bytes buffered for reading.
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Space returns the number of bytes that can be written without dropping.
func (rb *RingBuffer) Space() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.size - rb.count
}

// Clear discards all buffered bytes.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.read = 0
	rb.write = 0
	rb.count = 0
}

// IsEmpty reports whether no bytes are buffered.
func (rb *RingBuffer) IsEmpty() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count == 0
}
