package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophxfer/internal/common"
	"github.com/dmitrijs2005/gophxfer/internal/server/nodes"
)

// maxChunkBody bounds a single chunk upload.
const maxChunkBody = 1 << 20

func (s *HTTPServer) throttled(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.logger.Warn(r.Context(), "chunk request throttled", "path", r.URL.Path)
			w.WriteHeader(common.StatusRateLimited)
			return
		}
		next(w, r)
	}
}

func writeCode(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, strconv.Itoa(code))
}

func (s *HTTPServer) uploadChunk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pos, err := strconv.ParseInt(r.PathValue("pos"), 10, 64)
	if err != nil {
		writeCode(w, common.CodeArgs)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxChunkBody))
	if err != nil {
		writeCode(w, common.CodeArgs)
		return
	}

	token, err := s.svc.PutChunk(ctx, r.PathValue("token"), pos, data)
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, token)
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		writeCode(w, common.CodeAccess)
	case errors.Is(err, nodes.ErrOutOfRange):
		writeCode(w, common.CodeArgs)
	case errors.Is(err, common.ErrorNotFound):
		writeCode(w, common.CodeNotFound)
	default:
		s.logger.Error(ctx, "upload chunk", "error", err)
		writeCode(w, common.CodeInternal)
	}
}

// parseRange reads "first-last" (inclusive) into a half-open [start, end).
func parseRange(v string) (int64, int64, bool) {
	first, last, ok := strings.Cut(v, "-")
	if !ok {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	end, err := strconv.ParseInt(last, 10, 64)
	if err != nil || end < start {
		return 0, 0, false
	}
	return start, end + 1, true
}

func (s *HTTPServer) downloadChunk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	start, end, ok := parseRange(r.PathValue("range"))
	if !ok {
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	data, err := s.svc.GetChunk(ctx, r.PathValue("token"), start, end)
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		_, _ = w.Write(data)
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		w.WriteHeader(http.StatusForbidden)
	case errors.Is(err, nodes.ErrOutOfRange):
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
	case errors.Is(err, common.ErrorNotFound):
		w.WriteHeader(http.StatusNotFound)
	default:
		s.logger.Error(ctx, "download chunk", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}
