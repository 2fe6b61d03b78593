package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/gophxfer/internal/common"
	"github.com/dmitrijs2005/gophxfer/internal/filex"
	"github.com/dmitrijs2005/gophxfer/internal/httpio"
	"github.com/dmitrijs2005/gophxfer/internal/logging"
)

// Clock supplies the time passed to DoIO.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

type SystemClock struct{}

func (SystemClock) Now() time.Time                  { return time.Now() }
func (SystemClock) Since(t time.Time) time.Duration { return time.Since(t) }

// Waker is implemented by I/O collaborators that can interrupt the runner's
// sleep when a request finishes.
type Waker interface {
	Wake() <-chan struct{}
}

// Files opens the local side of a transfer and puts it in place once the
// transfer has completed.
type Files interface {
	Open(t *Transfer) (filex.FileAccess, error)
	Commit(t *Transfer) error
}

// LocalFiles reads uploads from Path and writes downloads to PartPath,
// renaming them to Path on completion.
type LocalFiles struct{}

func (LocalFiles) Open(t *Transfer) (filex.FileAccess, error) {
	if t.Direction == Upload {
		return filex.OpenRead(t.Path)
	}
	return filex.OpenWrite(t.PartPath())
}

func (LocalFiles) Commit(t *Transfer) error {
	if t.Direction == Upload {
		return nil
	}
	return filex.Rename(t.PartPath(), t.Path)
}

// Checkpoint persists a transfer that stopped before completing.
type Checkpoint func(ctx context.Context, t *Transfer) error

type RunnerOptions struct {
	Slot                Options
	UploadConnections   int
	DownloadConnections int
	// Pulse bounds the sleep between passes.
	Pulse time.Duration
	// MaxRestarts is how many times a stalled transfer gets a new slot.
	MaxRestarts    uint64
	RestartBackoff time.Duration
	Clock          Clock
	Checkpoint     Checkpoint
}

// Runner drives transfers to completion, one goroutine per Run call.
type Runner struct {
	io    httpio.IO
	files Files
	opts  RunnerOptions
	log   logging.Logger
}

func NewRunner(io httpio.IO, files Files, opts RunnerOptions) *Runner {
	if files == nil {
		files = LocalFiles{}
	}
	if opts.Pulse <= 0 {
		opts.Pulse = time.Second
	}
	if opts.RestartBackoff <= 0 {
		opts.RestartBackoff = time.Second
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Slot.Logger == nil {
		opts.Slot.Logger = logging.Discard()
	}
	return &Runner{io: io, files: files, opts: opts, log: opts.Slot.Logger}
}

// Run moves t using tempURL until it completes, fails for good, or ctx is
// cancelled. Stalled attempts are restarted with exponential backoff;
// chunks confirmed by earlier attempts are not sent again.
func (r *Runner) Run(ctx context.Context, t *Transfer, tempURL string) error {
	log := r.log.With("transfer_id", t.ID.String())
	start := r.opts.Clock.Now()

	b := retry.WithMaxRetries(r.opts.MaxRestarts, retry.NewExponential(r.opts.RestartBackoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		err := r.attempt(ctx, t, tempURL)
		if errors.Is(err, common.ErrTemporaryUnavailable) {
			log.Warn(ctx, "transfer stalled, restarting", "confirmed", t.ConfirmedBytes(), "size", t.Size)
			t.Restart()
			return retry.RetryableError(err)
		}
		return err
	})

	if err == nil {
		log.Info(ctx, "transfer finished", "direction", t.Direction.String(), "size", t.Size, "elapsed", r.opts.Clock.Since(start))
		return nil
	}

	if t.State != Failed {
		t.fail(err)
	}
	if r.opts.Checkpoint != nil && !errors.Is(err, common.ErrIntegrityMismatch) {
		if cerr := r.opts.Checkpoint(context.WithoutCancel(ctx), t); cerr != nil {
			log.Error(ctx, "checkpoint failed", "error", cerr)
		}
	}
	return err
}

func (r *Runner) attempt(ctx context.Context, t *Transfer, tempURL string) error {
	file, err := r.files.Open(t)
	if err != nil {
		return fmt.Errorf("open local file: %w", err)
	}

	opts := r.opts.Slot
	if t.Direction == Upload {
		opts.Connections = r.opts.UploadConnections
	} else {
		opts.Connections = r.opts.DownloadConnections
	}

	slot, err := NewSlot(t, tempURL, file, r.io, opts, r.opts.Clock.Now())
	if err != nil {
		_ = file.Close()
		return err
	}

	var wake <-chan struct{}
	if w, ok := r.io.(Waker); ok {
		wake = w.Wake()
	}

	for {
		out, err := slot.DoIO(ctx, r.opts.Clock.Now())
		if err != nil {
			_ = slot.Close(ctx, errors.Is(err, common.ErrIntegrityMismatch))
			return err
		}
		if out.Done {
			if err := slot.Close(ctx, false); err != nil {
				return err
			}
			return r.files.Commit(t)
		}

		wait := r.opts.Pulse
		if out.Retry > 0 && out.Retry < wait {
			wait = out.Retry
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			_ = slot.Close(ctx, false)
			return ctx.Err()
		case <-wake:
		case <-timer.C:
		}
		timer.Stop()
	}
}
