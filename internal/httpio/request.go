package httpio

import (
	"context"
	"sync"
)

// Status is the lifecycle state of a chunk request.
type Status int

const (
	Ready Status = iota
	Prepared
	Inflight
	Success
	Failure
	Done
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "ready"
	case Prepared:
		return "prepared"
	case Inflight:
		return "inflight"
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Request is one reusable HTTP POST. The transport goroutine publishes its
// outcome under mu; the driver only polls.
type Request struct {
	mu         sync.Mutex
	url        string
	status     Status
	httpStatus int
	in         *Buffer
	sent       int64

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRequest returns a Ready request that will receive its response into in.
func NewRequest(in *Buffer) *Request {
	if in == nil {
		in = NewGrowable()
	}
	return &Request{in: in}
}

func (r *Request) SetURL(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.url = url
}

func (r *Request) URL() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.url
}

func (r *Request) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Request) SetStatus(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = s
}

// HTTPStatus returns the status code of the last response, 0 if none arrived.
func (r *Request) HTTPStatus() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.httpStatus
}

// Received returns the number of response body bytes buffered so far.
func (r *Request) Received() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(r.in.Len())
}

// Sent returns the number of request body bytes handed to the connection.
func (r *Request) Sent() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent
}

// Body returns the response body. Only meaningful once the request has
// reached Success or Failure; the slice aliases the receive buffer.
func (r *Request) Body() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.in.Bytes()
}

// Capacity returns the receive buffer capacity for fixed buffers, 0 otherwise.
func (r *Request) Capacity() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.in.Fixed() {
		return 0
	}
	return r.in.Cap()
}

// Complete publishes the outcome of a post.
func (r *Request) Complete(status Status, httpStatus int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
	r.httpStatus = httpStatus
}

func (r *Request) addSent(n int) {
	r.mu.Lock()
	r.sent += int64(n)
	r.mu.Unlock()
}

// Reset clears the outcome of the previous post. Transports call it before
// sending.
func (r *Request) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
}

func (r *Request) reset() {
	r.httpStatus = 0
	r.sent = 0
	r.in.Reset()
}

// Deliver appends response bytes and returns how many the buffer accepted.
func (r *Request) Deliver(p []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := copy(r.in.Reserve(len(p)), p)
	r.in.Commit(n)
	return n
}

// begin resets the per-post counters and arms cancellation.
func (r *Request) begin(cancel context.CancelFunc) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
	r.cancel = cancel
	r.done = make(chan struct{})
	return r.done
}

func (r *Request) reserve(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.in.Reserve(n)
}

func (r *Request) commit(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.in.Commit(n)
}
