package sqldb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ohowland/cgc_powerflow/internal/pkg/archive"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow/mocksolver"
	"github.com/ohowland/cgc_powerflow/internal/pkg/scenario"
	"gotest.tools/v3/assert"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{Dialect: SQLite, Database: filepath.Join(t.TempDir(), "runs.db")})
	assert.NilError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func record(t *testing.T) archive.Record {
	t.Helper()
	net, err := scenario.Build(context.Background(), scenario.Microgrid(), nil)
	assert.NilError(t, err)
	res, err := powerflow.Run(context.Background(), &mocksolver.Solver{}, net)
	assert.NilError(t, err)
	return archive.NewRecord(net, res)
}

func TestArchiveAndList(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	first, second := record(t), record(t)
	assert.NilError(t, s.Archive(ctx, first))
	assert.NilError(t, s.Archive(ctx, second))

	runs, err := s.Runs(ctx)
	assert.NilError(t, err)
	assert.Equal(t, len(runs), 2)
	for _, r := range runs {
		assert.Equal(t, r.Name, "Microgrid")
		assert.Equal(t, r.SolarGenMW, 3.0)
	}
	assert.Assert(t, runs[0].CreatedAt.Equal(first.CreatedAt) || runs[0].CreatedAt.Equal(second.CreatedAt))

	vm, err := s.BusVoltages(ctx, first.PID.String())
	assert.NilError(t, err)
	assert.Equal(t, len(vm), 5)
	assert.Equal(t, vm[4], first.Results.Bus[4].VmPU)
}

func TestArchiveDuplicateRunRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	rec := record(t)
	assert.NilError(t, s.Archive(ctx, rec))
	assert.ErrorContains(t, s.Archive(ctx, rec), "sqldb: insert run")

	runs, err := s.Runs(ctx)
	assert.NilError(t, err)
	assert.Equal(t, len(runs), 1)
}

func TestReopenKeepsRuns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := Open(ctx, Config{Dialect: SQLite, Database: path})
	assert.NilError(t, err)
	assert.NilError(t, s.Archive(ctx, record(t)))
	assert.NilError(t, s.Close())

	s, err = Open(ctx, Config{Dialect: SQLite, Database: path})
	assert.NilError(t, err)
	defer s.Close()
	runs, err := s.Runs(ctx)
	assert.NilError(t, err)
	assert.Equal(t, len(runs), 1)
}

func TestDSN(t *testing.T) {
	dsn, err := Config{Dialect: MySQL, Server: "localhost", Port: 3306, Username: "cgc", Password: "pw", Database: "flow"}.dsn()
	assert.NilError(t, err)
	assert.Equal(t, dsn, "cgc:pw@tcp(localhost:3306)/flow?parseTime=true")

	dsn, err = Config{Dialect: Postgres, Server: "db", Port: 5432, Username: "u", Password: "p", Database: "flow"}.dsn()
	assert.NilError(t, err)
	assert.Equal(t, dsn, "host=db port=5432 user=u password=p dbname=flow sslmode=disable")

	_, err = Config{Dialect: "oracle"}.dsn()
	assert.ErrorContains(t, err, "unsupported dialect")

	_, err = Config{Dialect: SQLite}.dsn()
	assert.ErrorContains(t, err, "requires a database path")
}

func TestBind(t *testing.T) {
	pg := &Store{dialect: Postgres}
	assert.Equal(t, pg.bind("INSERT INTO t VALUES (?, ?)"), "INSERT INTO t VALUES ($1, $2)")

	lite := &Store{dialect: SQLite}
	assert.Equal(t, lite.bind("SELECT ? "), "SELECT ? ")
}
