// Package httpio is the HTTP collaborator of the transfer engine. Every post
// runs on its own goroutine and reports back by updating the Request it was
// given; callers poll Request.Status and may block on Client.Wake between
// polls.
package httpio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/dmitrijs2005/gophxfer/internal/logging"
)

// IO posts chunk requests.
type IO interface {
	// Post starts sending data to req's URL and returns immediately.
	Post(ctx context.Context, req *Request, data []byte)
	// Cancel aborts an in-flight post and waits for it to unwind.
	Cancel(req *Request)
}

const readChunk = 32 * 1024

// Client implements IO over net/http.
type Client struct {
	hc     *http.Client
	logger logging.Logger
	wake   chan struct{}
	wg     sync.WaitGroup
}

func NewClient(hc *http.Client, logger logging.Logger) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Client{hc: hc, logger: logger, wake: make(chan struct{}, 1)}
}

// Wake fires after any post finishes.
func (c *Client) Wake() <-chan struct{} {
	return c.wake
}

// Wait blocks until every started post has finished.
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) Post(ctx context.Context, req *Request, data []byte) {
	ctx, cancel := context.WithCancel(ctx)
	done := req.begin(cancel)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.notify()
		defer close(done)
		defer cancel()

		status, code, err := c.do(ctx, req, data)
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Debug(ctx, "post failed", "url", req.URL(), "status", code, "error", err)
		}
		req.Complete(status, code)
	}()
}

func (c *Client) Cancel(req *Request) {
	req.mu.Lock()
	cancel, done := req.cancel, req.done
	req.cancel = nil
	req.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	req.SetStatus(Ready)
}

func (c *Client) do(ctx context.Context, req *Request, data []byte) (Status, int, error) {
	var body io.Reader = http.NoBody
	if len(data) > 0 {
		body = &countingReader{r: bytes.NewReader(data), req: req}
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL(), body)
	if err != nil {
		return Failure, 0, err
	}
	hreq.ContentLength = int64(len(data))
	hreq.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.hc.Do(hreq)
	if err != nil {
		return Failure, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Failure, resp.StatusCode, fmt.Errorf("post failed: %s; body: %s", resp.Status, string(b))
	}

	for {
		p := req.reserve(readChunk)
		if len(p) == 0 {
			break
		}
		n, err := resp.Body.Read(p)
		if n > 0 {
			req.commit(n)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Failure, resp.StatusCode, err
		}
	}

	return Success, resp.StatusCode, nil
}

func (c *Client) notify() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

type countingReader struct {
	r   io.Reader
	req *Request
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.req.addSent(n)
	}
	return n, err
}
