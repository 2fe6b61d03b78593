package httpio

// Buffer receives a response body. A fixed buffer has a set capacity and
// silently drops anything beyond it; a growable buffer takes whatever
// arrives. Download chunks use fixed buffers sized to the requested range,
// everything else uses growable ones.
type Buffer struct {
	fixed bool
	data  []byte
	pos   int
}

// NewFixed returns a buffer that accepts at most capacity bytes.
func NewFixed(capacity int) *Buffer {
	return &Buffer{fixed: true, data: make([]byte, capacity)}
}

func NewGrowable() *Buffer {
	return &Buffer{}
}

// Fixed reports whether the buffer has a set capacity.
func (b *Buffer) Fixed() bool {
	return b.fixed
}

// Cap returns the capacity of a fixed buffer, or the current allocation of a
// growable one.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Reserve returns space for up to n more bytes. A fixed buffer returns less
// (possibly none) when it is nearly full. The caller copies into the returned
// slice and confirms with Commit.
func (b *Buffer) Reserve(n int) []byte {
	if b.fixed {
		n = min(n, len(b.data)-b.pos)
		return b.data[b.pos : b.pos+n]
	}
	if need := b.pos + n; need > len(b.data) {
		grown := make([]byte, max(need, 2*len(b.data)))
		copy(grown, b.data[:b.pos])
		b.data = grown
	}
	return b.data[b.pos : b.pos+n]
}

// Commit confirms n bytes written into the last reserved space.
func (b *Buffer) Commit(n int) {
	b.pos += n
}

// Bytes returns the received bytes. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.pos]
}

func (b *Buffer) Len() int {
	return b.pos
}

// Reset discards the received bytes and keeps the allocation.
func (b *Buffer) Reset() {
	b.pos = 0
}
