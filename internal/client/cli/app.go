package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophxfer/internal/client/api"
	"github.com/dmitrijs2005/gophxfer/internal/client/config"
	"github.com/dmitrijs2005/gophxfer/internal/common"
	"github.com/dmitrijs2005/gophxfer/internal/httpio"
	"github.com/dmitrijs2005/gophxfer/internal/logging"
	"github.com/dmitrijs2005/gophxfer/internal/repositories/statecache"
	"github.com/dmitrijs2005/gophxfer/internal/services"
	"github.com/dmitrijs2005/gophxfer/internal/transfer"
)

// nodeAPI is the part of the storage server API the commands use.
type nodeAPI interface {
	RequestUpload(ctx context.Context, size int64) (string, error)
	RegisterNode(ctx context.Context, name, token, key string, size int64) error
	ListNodes(ctx context.Context) ([]api.NodeInfo, error)
	RequestDownload(ctx context.Context, name string) (api.Download, error)
}

type transferRunner interface {
	Run(ctx context.Context, t *transfer.Transfer, tempURL string) error
}

type App struct {
	config *config.Config
	api    nodeAPI
	runner transferRunner
	resume services.ResumeService
	state  io.Closer
	logger logging.Logger
	out    io.Writer

	mu       sync.Mutex
	tempURLs map[uuid.UUID]string
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New("xfer", c.LogLevel, os.Stderr)

	repo, err := statecache.Open(ctx, c.StateDir, c.StateName)
	if err != nil {
		return nil, fmt.Errorf("error opening state cache: %w", err)
	}

	a := newApp(c, api.New(c.APIEndpoint, nil), services.NewResumeService(repo), logger, os.Stdout)
	a.state = repo
	a.runner = transfer.NewRunner(httpio.NewClient(nil, logger), transfer.LocalFiles{}, a.runnerOptions())

	return a, nil
}

func newApp(c *config.Config, nodes nodeAPI, resume services.ResumeService, logger logging.Logger, out io.Writer) *App {
	return &App{
		config:   c,
		api:      nodes,
		resume:   resume,
		logger:   logger,
		out:      out,
		tempURLs: make(map[uuid.UUID]string),
	}
}

func (a *App) runnerOptions() transfer.RunnerOptions {
	restarts := a.config.MaxRestarts
	if restarts < 0 {
		restarts = 0
	}

	return transfer.RunnerOptions{
		Slot: transfer.Options{
			StallTimeout:     a.config.StallTimeout,
			RateLimitBackoff: a.config.RateLimitBackoff,
			Observer:         newProgress(a.out),
			Logger:           a.logger,
		},
		UploadConnections:   a.config.UploadConnections,
		DownloadConnections: a.config.DownloadConnections,
		Pulse:               a.config.Pulse,
		MaxRestarts:         uint64(restarts),
		Checkpoint:          a.checkpoint,
	}
}

// Run unlocks the resume store and serves the REPL on stdin until exit.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	if err := a.Unlock(ctx, nil); err != nil {
		fmt.Fprintln(a.out, "Resume store locked:", err)
	}

	runREPL(ctx, a, bufio.NewScanner(os.Stdin))
}

func (a *App) Close() error {
	if a.state == nil {
		return nil
	}
	return a.state.Close()
}

// Unlock asks for the passphrase guarding resume records.
func (a *App) Unlock(ctx context.Context, _ []string) error {
	pass, err := GetPassphrase(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pass)

	if err := a.resume.Unlock(ctx, pass); err != nil {
		if errors.Is(err, common.ErrWrongPassphrase) {
			return errors.New("wrong passphrase")
		}
		return err
	}
	return nil
}

// Reset drops every resume record and the passphrase.
func (a *App) Reset(ctx context.Context, _ []string) error {
	if err := a.resume.Reset(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Resume store cleared")
	return nil
}

func (a *App) track(id uuid.UUID, tempURL string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tempURLs[id] = tempURL
}

func (a *App) untrack(ctx context.Context, id uuid.UUID) {
	a.mu.Lock()
	delete(a.tempURLs, id)
	a.mu.Unlock()

	if err := a.resume.Forget(ctx, id); err != nil && !errors.Is(err, services.ErrLocked) {
		a.logger.Warn(ctx, "forget resume record", "transfer_id", id.String(), "error", err)
	}
}

// checkpoint seals an interrupted transfer into the resume store.
func (a *App) checkpoint(ctx context.Context, t *transfer.Transfer) error {
	a.mu.Lock()
	tempURL := a.tempURLs[t.ID]
	a.mu.Unlock()

	return a.resume.Save(ctx, t.Snapshot(tempURL))
}

// run drives t and, for uploads, registers the result under t.Remote.
func (a *App) run(ctx context.Context, t *transfer.Transfer, tempURL string) error {
	a.track(t.ID, tempURL)

	if err := a.runner.Run(ctx, t, tempURL); err != nil {
		if errors.Is(err, common.ErrIntegrityMismatch) {
			a.untrack(ctx, t.ID)
		}
		return fmt.Errorf("%s %s: %w", t.Direction, t.Remote, err)
	}

	if t.Direction == transfer.Upload {
		err := a.api.RegisterNode(ctx, t.Remote, transfer.EncodeUploadToken(t.UploadToken), encodeFileKey(t.FileKey[:]), t.Size)
		if err != nil {
			return fmt.Errorf("register %s: %w", t.Remote, err)
		}
	}

	a.untrack(ctx, t.ID)
	fmt.Fprintf(a.out, "%s %s: done\n", t.Direction, t.Remote)
	return nil
}
