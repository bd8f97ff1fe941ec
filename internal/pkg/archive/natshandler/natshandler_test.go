package natshandler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ohowland/cgc_powerflow/internal/pkg/archive"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow/mocksolver"
	"github.com/ohowland/cgc_powerflow/internal/pkg/scenario"
	"gotest.tools/v3/assert"
)

type fakeConn struct {
	subj     string
	data     []byte
	err      error
	flushErr error
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	f.subj, f.data = subj, data
	return f.err
}

func (f *fakeConn) FlushWithContext(ctx context.Context) error { return f.flushErr }

func record(t *testing.T) archive.Record {
	t.Helper()
	net, err := scenario.Build(context.Background(), scenario.Microgrid(), nil)
	assert.NilError(t, err)
	res, err := powerflow.Run(context.Background(), &mocksolver.Solver{}, net)
	assert.NilError(t, err)
	return archive.NewRecord(net, res)
}

func TestArchivePublishesDocument(t *testing.T) {
	conn := &fakeConn{}
	h := New(conn, "")
	rec := record(t)

	assert.NilError(t, h.Archive(context.Background(), rec))
	assert.Equal(t, conn.subj, "cgcflow.runs."+rec.PID.String())

	var doc archive.Document
	assert.NilError(t, json.Unmarshal(conn.data, &doc))
	assert.Equal(t, doc.PID, rec.PID.String())
	assert.Equal(t, len(doc.Buses), 5)
	assert.Equal(t, doc.SolarGenMW, 3.0)
}

func TestArchivePublishError(t *testing.T) {
	boom := errors.New("no responders")
	h := New(&fakeConn{err: boom}, "site.a")
	err := h.Archive(context.Background(), record(t))
	assert.Assert(t, errors.Is(err, boom))

	h = New(&fakeConn{flushErr: boom}, "site.a")
	assert.ErrorContains(t, h.Archive(context.Background(), record(t)), "natshandler: flush")
}
