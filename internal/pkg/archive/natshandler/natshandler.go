package natshandler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/ohowland/cgc_powerflow/internal/pkg/archive"

	nats "github.com/nats-io/nats.go"
)

// Config selects the server and subject prefix.
type Config struct {
	Server string `mapstructure:"server"`
	Prefix string `mapstructure:"prefix"`
}

// Conn is the part of *nats.Conn used for publishing.
type Conn interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// Handler publishes each run as JSON on <prefix>.<pid>.
type Handler struct {
	conn   Conn
	prefix string
	close  func()
}

// Connect dials the server. Server defaults to nats.DefaultURL and Prefix to "cgcflow.runs".
func Connect(cfg Config) (*Handler, error) {
	if cfg.Server == "" {
		cfg.Server = nats.DefaultURL
	}
	nc, err := nats.Connect(cfg.Server, nats.Name("cgcflow"))
	if err != nil {
		return nil, fmt.Errorf("natshandler: connect %s: %w", cfg.Server, err)
	}
	log.Println("[NATS client] connected to", nc.ConnectedUrl())
	h := New(nc, cfg.Prefix)
	h.close = nc.Close
	return h, nil
}

// New wraps an existing connection.
func New(conn Conn, prefix string) *Handler {
	if prefix == "" {
		prefix = "cgcflow.runs"
	}
	return &Handler{conn: conn, prefix: prefix, close: func() {}}
}

// Close closes a connection opened by Connect.
func (h *Handler) Close() {
	h.close()
}

// Subject returns the subject a run is published on.
func (h *Handler) Subject(rec archive.Record) string {
	return h.prefix + "." + rec.PID.String()
}

// Archive implements archive.Archiver.
func (h *Handler) Archive(ctx context.Context, rec archive.Record) error {
	data, err := json.Marshal(rec.Document())
	if err != nil {
		return fmt.Errorf("natshandler: encode run: %w", err)
	}
	if err := h.conn.Publish(h.Subject(rec), data); err != nil {
		return fmt.Errorf("natshandler: publish: %w", err)
	}
	if err := h.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("natshandler: flush: %w", err)
	}
	return nil
}
