// Package server initializes and runs the development storage server.
// It selects the storage backend, handles graceful shutdown and starts the
// HTTP endpoint serving chunk transfers and the node API.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophxfer/internal/logging"
	"github.com/dmitrijs2005/gophxfer/internal/server/config"
	"github.com/dmitrijs2005/gophxfer/internal/server/httpapi"
	"github.com/dmitrijs2005/gophxfer/internal/server/nodes"
	"github.com/dmitrijs2005/gophxfer/internal/server/storage"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	nodeService *nodes.Service
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.New("xferserv", c.LogLevel, os.Stdout)

	store, err := newStorage(context.Background(), c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	ns := nodes.NewService(nodes.NewMemoryRepository(), store, c)

	return &App{config: c, logger: logger, nodeService: ns}, nil
}

func newStorage(ctx context.Context, c *config.Config) (storage.Storage, error) {
	switch c.Storage {
	case config.StorageMemory:
		return storage.NewMemoryStorage(), nil
	case config.StorageS3:
		return storage.NewS3Storage(ctx, storage.S3Config{
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Bucket:       c.S3Bucket,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.Storage)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config.ListenAddr, app.logger, app.nodeService, app.config.RateLimit, app.config.RateBurst)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.Storage)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
}
