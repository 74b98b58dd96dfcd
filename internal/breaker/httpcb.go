package breaker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPClient wraps a standard http.Client with breaker behavior. The
// probe issues a cheap GET against probeURL and accepts anything below
// a server error.
type HTTPClient struct {
	Client *http.Client
	brk    *Breaker
}

// NewHTTP builds a breaker-guarded HTTP client. A nil httpClient gets
// a default with a 15s timeout.
func NewHTTP(name string, cfg Config, logger *slog.Logger, probeURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	probe := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
		if err != nil {
			return err
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.CopyN(io.Discard, resp.Body, 64)
		if resp.StatusCode >= 200 && resp.StatusCode < 500 {
			return nil
		}
		return fmt.Errorf("probe bad status: %d", resp.StatusCode)
	}
	brk := New(name, cfg, logger, probe)
	return &HTTPClient{Client: httpClient, brk: brk}
}

// Do executes the request through the breaker.
func (h *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	err := h.brk.Execute(req.Context(), func(ctx context.Context) error {
		r, err := h.Client.Do(req.WithContext(ctx))
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	return resp, err
}

// State exposes the underlying breaker position.
func (h *HTTPClient) State() State {
	return h.brk.State()
}
