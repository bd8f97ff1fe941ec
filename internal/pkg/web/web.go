/*
web.go Webhook archive. Each run document is POSTed as JSON to <URL>/runs/<pid>.
*/

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ohowland/cgc_powerflow/internal/pkg/archive"
)

// Config locates the webhook receiver.
type Config struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Handler posts archived runs to a webhook.
type Handler struct {
	config Config
	client *http.Client
}

// New returns a Handler for cfg. A zero Timeout leaves the request bound only by the
// caller's context.
func New(cfg Config) (Handler, error) {
	if cfg.URL == "" {
		return Handler{}, errors.New("web: webhook url is required")
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return Handler{config: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

// Target is the URL a run with the given pid is posted to.
func (h Handler) Target(pid string) string {
	return h.config.URL + "/runs/" + pid
}

// PostRun sends jsonData for one run. Any non-2xx reply is an error.
func (h Handler) PostRun(ctx context.Context, pid string, jsonData []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Target(pid), bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("web: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("web: post run %s: %w", pid, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("web: post run %s: %s", pid, resp.Status)
	}
	return nil
}

// Archive implements archive.Archiver.
func (h Handler) Archive(ctx context.Context, rec archive.Record) error {
	doc := rec.Document()
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("web: encode run %s: %w", doc.PID, err)
	}
	return h.PostRun(ctx, doc.PID, b)
}
