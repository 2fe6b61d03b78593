// Package api talks to the storage server's JSON API: it opens uploads and
// downloads, and registers finished uploads under a name.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophxfer/internal/common"
)

var (
	ErrUnavailable = errors.New("server unavailable")
	ErrNameTaken   = errors.New("name already registered")
)

type NodeInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	Created time.Time `json:"created"`
}

// Download is where to fetch a node from and the encoded key to decrypt it.
type Download struct {
	TempURL string `json:"tempurl"`
	Size    int64  `json:"size"`
	Key     string `json:"key"`
}

type Client struct {
	base string
	hc   *http.Client
}

// New returns a client for the API at base. A nil hc uses http.DefaultClient.
func New(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{base: strings.TrimRight(base, "/"), hc: hc}
}

type apiError struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var e apiError
		_ = json.NewDecoder(resp.Body).Decode(&e)
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", common.ErrorNotFound, e.Error)
		case http.StatusConflict:
			return ErrNameTaken
		default:
			return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, e.Error)
		}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// RequestUpload opens an upload of size bytes and returns its tempurl.
func (c *Client) RequestUpload(ctx context.Context, size int64) (string, error) {
	var resp struct {
		TempURL string `json:"tempurl"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/upload", map[string]int64{"size": size}, &resp); err != nil {
		return "", err
	}
	return resp.TempURL, nil
}

// RegisterNode attaches a completed upload to name. token and key are the
// encoded upload token and file key.
func (c *Client) RegisterNode(ctx context.Context, name, token, key string, size int64) error {
	req := struct {
		Name  string `json:"name"`
		Token string `json:"token"`
		Key   string `json:"key"`
		Size  int64  `json:"size"`
	}{name, token, key, size}

	return c.do(ctx, http.MethodPost, "/api/nodes", req, nil)
}

func (c *Client) ListNodes(ctx context.Context) ([]NodeInfo, error) {
	var out []NodeInfo
	if err := c.do(ctx, http.MethodGet, "/api/nodes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RequestDownload(ctx context.Context, name string) (Download, error) {
	var out Download
	if err := c.do(ctx, http.MethodPost, "/api/download", map[string]string{"name": name}, &out); err != nil {
		return Download{}, err
	}
	return out, nil
}
