package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/dmitrijs2005/gophxfer/internal/common"
	"github.com/dmitrijs2005/gophxfer/internal/server/nodes"
)

type UploadRequest struct {
	Size int64 `json:"size" validate:"gte=0"`
}

type UploadResponse struct {
	TempURL string `json:"tempurl"`
}

type RegisterRequest struct {
	Name  string `json:"name"  validate:"required,max=255"`
	Token string `json:"token" validate:"required,len=36"`
	Key   string `json:"key"   validate:"required,len=43"`
	Size  int64  `json:"size"  validate:"gte=0"`
}

type NodeInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	Created time.Time `json:"created"`
}

type DownloadRequest struct {
	Name string `json:"name" validate:"required"`
}

type DownloadResponse struct {
	TempURL string `json:"tempurl"`
	Size    int64  `json:"size"`
	Key     string `json:"key"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decode reads and validates a JSON request body into v.
func (s *HTTPServer) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *HTTPServer) beginUpload(w http.ResponseWriter, r *http.Request) {
	var req UploadRequest
	if !s.decode(w, r, &req) {
		return
	}

	url, err := s.svc.BeginUpload(r.Context(), req.Size)
	if err != nil {
		s.logger.Error(r.Context(), "begin upload", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info(r.Context(), "Upload opened", "size", req.Size)
	writeJSON(w, http.StatusOK, UploadResponse{TempURL: url})
}

func (s *HTTPServer) registerNode(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !s.decode(w, r, &req) {
		return
	}

	n, err := s.svc.Register(r.Context(), req.Name, req.Token, req.Key, req.Size)
	switch {
	case err == nil:
		s.logger.Info(r.Context(), "Registered", "name", n.Name, "size", n.Size)
		writeJSON(w, http.StatusCreated, NodeInfo{Name: n.Name, Size: n.Size, Created: n.Created})
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "unknown upload token")
	case errors.Is(err, nodes.ErrNameTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, nodes.ErrSizeMismatch):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error(r.Context(), "register node", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *HTTPServer) listNodes(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.List(r.Context())
	if err != nil {
		s.logger.Error(r.Context(), "list nodes", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, lo.Map(list, func(n nodes.Node, _ int) NodeInfo {
		return NodeInfo{Name: n.Name, Size: n.Size, Created: n.Created}
	}))
}

func (s *HTTPServer) beginDownload(w http.ResponseWriter, r *http.Request) {
	var req DownloadRequest
	if !s.decode(w, r, &req) {
		return
	}

	d, err := s.svc.BeginDownload(r.Context(), req.Name)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, DownloadResponse{TempURL: d.TempURL, Size: d.Size, Key: d.Key})
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "no such node")
	default:
		s.logger.Error(r.Context(), "begin download", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
