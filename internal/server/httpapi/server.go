// Package httpapi serves the storage server over HTTP: the chunk endpoints
// behind tempurls and a small JSON API for opening transfers.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/gophxfer/internal/logging"
	"github.com/dmitrijs2005/gophxfer/internal/server/nodes"
)

// Service is the node registry the handlers delegate to.
type Service interface {
	BeginUpload(ctx context.Context, size int64) (string, error)
	PutChunk(ctx context.Context, urlToken string, pos int64, data []byte) (string, error)
	Register(ctx context.Context, name, uploadToken, key string, size int64) (nodes.Node, error)
	List(ctx context.Context) ([]nodes.Node, error)
	BeginDownload(ctx context.Context, name string) (nodes.Download, error)
	GetChunk(ctx context.Context, urlToken string, start, end int64) ([]byte, error)
}

type HTTPServer struct {
	address  string
	svc      Service
	limiter  *rate.Limiter
	validate *validator.Validate
	logger   logging.Logger
}

// NewHTTPServer builds a server on address. A zero rateLimit disables chunk
// throttling; otherwise requests beyond the limiter are answered with 509.
func NewHTTPServer(address string, l logging.Logger, svc Service, rateLimit float64, burst int) *HTTPServer {
	limit := rate.Inf
	if rateLimit > 0 {
		limit = rate.Limit(rateLimit)
	}

	return &HTTPServer{
		address:  address,
		svc:      svc,
		limiter:  rate.NewLimiter(limit, burst),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   l.With("module", "http_server"),
	}
}

func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /ul/{token}/{pos}", s.throttled(s.uploadChunk))
	mux.HandleFunc("POST /dl/{token}/{range}", s.throttled(s.downloadChunk))

	mux.HandleFunc("POST /api/upload", s.beginUpload)
	mux.HandleFunc("POST /api/nodes", s.registerNode)
	mux.HandleFunc("GET /api/nodes", s.listNodes)
	mux.HandleFunc("POST /api/download", s.beginDownload)

	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
