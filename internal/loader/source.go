package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Source is a readable table location: a file on disk or an http(s) URL.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// Ext is the lower-cased file extension of the location, used to pick a decoder.
	Ext() string
	String() string
}

// NewSource picks the source implementation for location.
func NewSource(location string, client *http.Client) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		if client == nil {
			client = &http.Client{Timeout: 30 * time.Second}
		}
		return &httpSource{url: location, client: client}
	}
	return fileSource(location)
}

type fileSource string

func (f fileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(string(f))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func (f fileSource) Ext() string {
	return strings.ToLower(filepath.Ext(string(f)))
}

func (f fileSource) String() string {
	return string(f)
}

type httpSource struct {
	url    string
	client *http.Client
}

func (h *httpSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned status %d", h.url, resp.StatusCode)
	}
	return resp.Body, nil
}

func (h *httpSource) Ext() string {
	u := h.url
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return strings.ToLower(path.Ext(u))
}

func (h *httpSource) String() string {
	return h.url
}
