package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophxfer/internal/chunk"
	"github.com/dmitrijs2005/gophxfer/internal/common"
	"github.com/dmitrijs2005/gophxfer/internal/cryptox"
	"github.com/dmitrijs2005/gophxfer/internal/filex"
	"github.com/dmitrijs2005/gophxfer/internal/httpio"
	"github.com/dmitrijs2005/gophxfer/internal/logging"
)

const (
	DefaultUploadConnections   = 3
	DefaultDownloadConnections = 4
	DefaultStallTimeout        = 60 * time.Second
	DefaultRateLimitBackoff    = 10 * time.Minute
)

// Observer is told about transfer progress and throttling.
type Observer interface {
	// TransferUpdate reports completed plus in-flight bytes whenever that
	// figure changes.
	TransferUpdate(t *Transfer, progress int64)
	// TransferLimit reports that the server refused a chunk with 509.
	TransferLimit(t *Transfer)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) TransferUpdate(*Transfer, int64) {}
func (NopObserver) TransferLimit(*Transfer)         {}

// Options configures a slot. Zero values fall back to the defaults.
type Options struct {
	Connections      int
	StallTimeout     time.Duration
	RateLimitBackoff time.Duration
	Observer         Observer
	Logger           logging.Logger
}

func (o Options) withDefaults(d Direction) Options {
	if o.Connections <= 0 {
		o.Connections = DefaultDownloadConnections
		if d == Upload {
			o.Connections = DefaultUploadConnections
		}
	}
	if o.StallTimeout <= 0 {
		o.StallTimeout = DefaultStallTimeout
	}
	if o.RateLimitBackoff <= 0 {
		o.RateLimitBackoff = DefaultRateLimitBackoff
	}
	if o.Observer == nil {
		o.Observer = NopObserver{}
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	return o
}

// Outcome is the result of one DoIO pass.
type Outcome struct {
	// Done is set once the transfer has completed.
	Done bool
	// Retry is how long the caller may sleep before the next pass if nothing
	// wakes it earlier.
	Retry time.Duration
}

// Slot moves the bytes of one transfer over a fixed pool of connections.
type Slot struct {
	transfer *Transfer
	tempURL  string
	io       httpio.IO
	file     filex.FileAccess
	opts     Options
	log      logging.Logger

	reqs []chunkRequest

	progressReported  int64
	progressCompleted int64
	lastData          time.Time
	throttledUntil    time.Time
	emptySent         bool
	closed            bool
}

// NewSlot attaches a new slot to t. The planner restarts from the beginning
// of the file and skips chunks that t already has confirmed.
func NewSlot(t *Transfer, tempURL string, file filex.FileAccess, io httpio.IO, opts Options, now time.Time) (*Slot, error) {
	if tempURL == "" {
		return nil, fmt.Errorf("transfer %s: empty tempurl", t.ID)
	}
	if t.slot != nil {
		return nil, fmt.Errorf("transfer %s: slot already attached", t.ID)
	}

	opts = opts.withDefaults(t.Direction)
	s := &Slot{
		transfer: t,
		tempURL:  tempURL,
		io:       io,
		file:     file,
		opts:     opts,
		log:      opts.Logger.With("transfer_id", t.ID.String(), "direction", t.Direction.String()),
		reqs:     make([]chunkRequest, opts.Connections),
		lastData: now,
	}

	t.Pos = 0
	t.State = Active
	t.Err = nil
	s.progressCompleted = t.ConfirmedBytes()
	s.progressReported = s.progressCompleted
	t.slot = s

	return s, nil
}

// Transfer returns the transfer the slot works for.
func (s *Slot) Transfer() *Transfer {
	return s.transfer
}

// DoIO runs one scheduling pass over the connections at time now. It never
// blocks. A returned error is terminal for this slot and is also stored on
// the transfer.
func (s *Slot) DoIO(ctx context.Context, now time.Time) (Outcome, error) {
	t := s.transfer
	switch t.State {
	case Completed:
		return Outcome{Done: true}, nil
	case Failed:
		return Outcome{}, t.Err
	}

	if t.Direction == Download && t.Size == 0 {
		return s.verifyDownload(ctx)
	}

	var inflight int64
	throttled := false

	for i := range s.reqs {
		if r := s.reqs[i]; r != nil {
			req := r.request()
			switch req.Status() {
			case httpio.Inflight:
				inflight += r.transferred()

			case httpio.Success:
				out, done, err := s.succeeded(ctx, i, r, now)
				if err != nil {
					return s.fail(ctx, err)
				}
				if done {
					return out, nil
				}

			case httpio.Failure:
				if req.HTTPStatus() == common.StatusRateLimited {
					throttled = true
					s.throttledUntil = now.Add(s.opts.RateLimitBackoff)
					s.log.Warn(ctx, "transfer throttled", "slot", i, "error", common.ErrRateLimited, "backoff", s.opts.RateLimitBackoff)
					s.opts.Observer.TransferLimit(t)
				} else {
					pos, npos := r.span()
					s.log.Debug(ctx, "chunk failed, resending", "slot", i, "pos", pos, "npos", npos, "status", req.HTTPStatus())
				}
				req.SetStatus(httpio.Prepared)
			}
		}

		if r := s.reqs[i]; r == nil || r.request().Status() == httpio.Ready {
			if pos, npos, ok := s.nextChunk(); ok {
				if r == nil {
					r = newChunkRequest(t.Direction)
					s.reqs[i] = r
				}
				if err := r.prepare(s.tempURL, t, s.file, pos, npos); err != nil {
					return s.fail(ctx, fmt.Errorf("prepare chunk %d-%d: %w", pos, npos, err))
				}
				r.request().SetStatus(httpio.Prepared)
				t.Pos = npos
				s.log.Debug(ctx, "chunk assigned", "slot", i, "pos", pos, "npos", npos)
			} else if r != nil {
				r.request().SetStatus(httpio.Done)
			}
		}

		// a 509 holds every connection
		if r := s.reqs[i]; r != nil && r.request().Status() == httpio.Prepared && !now.Before(s.throttledUntil) {
			req := r.request()
			req.SetStatus(httpio.Inflight)
			s.io.Post(ctx, req, r.payload())
		}
	}

	if p := s.progressCompleted + inflight; p != s.progressReported {
		s.progressReported = p
		s.lastData = now
		s.opts.Observer.TransferUpdate(t, p)
	}

	ref := s.lastData
	if s.throttledUntil.After(ref) {
		ref = s.throttledUntil
	}
	elapsed := now.Sub(ref)
	if elapsed >= s.opts.StallTimeout {
		s.log.Error(ctx, "transfer stalled", "idle", elapsed)
		return s.fail(ctx, common.ErrTemporaryUnavailable)
	}

	var retry time.Duration
	switch {
	case throttled:
		retry = s.opts.RateLimitBackoff
	case now.Before(s.throttledUntil):
		retry = s.throttledUntil.Sub(now)
	default:
		retry = s.opts.StallTimeout - elapsed
	}
	return Outcome{Retry: retry}, nil
}

// succeeded handles a connection whose post returned 200. done reports that
// the pass is over, either because the transfer completed or failed.
func (s *Slot) succeeded(ctx context.Context, i int, r chunkRequest, now time.Time) (Outcome, bool, error) {
	t := s.transfer
	pos, npos := r.span()

	switch r := r.(type) {
	case *downloadRequest:
		if !r.complete() {
			s.log.Warn(ctx, "short chunk, resending", "slot", i, "pos", pos, "npos", npos, "received", len(r.request().Body()))
			r.request().SetStatus(httpio.Prepared)
			return Outcome{}, false, nil
		}
		s.lastData = now
		if err := r.finalize(t, s.file); err != nil {
			return Outcome{}, false, fmt.Errorf("write chunk %d-%d: %w", pos, npos, err)
		}
		s.progressCompleted += npos - pos
		t.Confirm(pos, npos)

		if s.progressCompleted == t.Size {
			out, err := s.verifyDownload(ctx)
			return out, true, err
		}

	case *uploadRequest:
		s.lastData = now
		s.progressCompleted += npos - pos
		t.Confirm(pos, npos)

		// completed uploads are signalled by the upload token
		if body := r.request().Body(); len(body) > 0 {
			token, err := parseUploadResponse(body)
			if err != nil {
				return Outcome{}, true, err
			}
			t.UploadToken = token
			t.FileKey = cryptox.FileKey(t.Key, t.CtrIV, t.MACs.Aggregate(t.Key))
			t.complete()
			s.log.Info(ctx, "upload complete", "size", t.Size)
			return Outcome{Done: true}, true, nil
		}
	}

	r.request().SetStatus(httpio.Ready)
	return Outcome{}, false, nil
}

func (s *Slot) verifyDownload(ctx context.Context) (Outcome, error) {
	t := s.transfer
	if mac := t.MACs.Aggregate(t.Key); mac != t.MetaMAC {
		s.log.Error(ctx, "integrity check failed", "want", t.MetaMAC, "got", mac)
		t.confirmed = make(map[int64]int64)
		return s.fail(ctx, common.ErrIntegrityMismatch)
	}
	t.complete()
	s.log.Info(ctx, "download complete", "size", t.Size)
	return Outcome{Done: true}, nil
}

// nextChunk returns the next unconfirmed chunk at or after the cursor. A
// zero-size upload yields a single empty chunk.
func (s *Slot) nextChunk() (pos, npos int64, ok bool) {
	t := s.transfer
	if t.Size == 0 {
		if t.Direction == Upload && !s.emptySent {
			s.emptySent = true
			return 0, 0, true
		}
		return 0, 0, false
	}

	for t.Pos < t.Size && t.IsConfirmed(t.Pos) {
		t.Pos = chunk.Next(t.Pos, t.Size)
	}
	npos = chunk.Next(t.Pos, t.Size)
	if npos > t.Pos {
		return t.Pos, npos, true
	}
	return 0, 0, false
}

func (s *Slot) fail(ctx context.Context, err error) (Outcome, error) {
	s.transfer.fail(err)
	if !errors.Is(err, common.ErrTemporaryUnavailable) {
		s.log.Error(ctx, "transfer failed", "error", err)
	}
	return Outcome{}, err
}

// Close cancels every in-flight request, closes the local file and detaches
// the slot from its transfer. A discarded download loses its partial file.
func (s *Slot) Close(ctx context.Context, discard bool) error {
	if s.closed {
		return nil
	}
	s.closed = true

	for _, r := range s.reqs {
		if r != nil && r.request() != nil {
			s.io.Cancel(r.request())
		}
	}
	s.transfer.slot = nil

	var errs []error
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.transfer.Path, err))
		}
	}
	if discard && s.transfer.Direction == Download {
		if err := filex.Unlink(s.transfer.PartPath()); err != nil {
			errs = append(errs, err)
		}
		s.log.Debug(ctx, "partial download discarded", "path", s.transfer.PartPath())
	}
	return errors.Join(errs...)
}
