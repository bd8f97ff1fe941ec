/*
sqldb.go Relational run archive. The same schema is used on sqlite, mysql and postgres;
only placeholders and connection strings differ.
*/

package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ohowland/cgc_powerflow/internal/pkg/archive"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported dialects.
const (
	SQLite   = "sqlite"
	MySQL    = "mysql"
	Postgres = "postgres"
)

// Config selects the database. For sqlite, Database is the file path. DSN, when set,
// is passed to the driver unchanged.
type Config struct {
	Dialect  string `mapstructure:"dialect"`
	DSN      string `mapstructure:"dsn"`
	Server   string `mapstructure:"server"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// dsn builds the driver connection string.
func (c Config) dsn() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	switch c.Dialect {
	case SQLite:
		if c.Database == "" {
			return "", fmt.Errorf("sqldb: sqlite requires a database path")
		}
		return c.Database, nil
	case MySQL:
		return fmt.Sprintf("%v:%v@tcp(%v:%v)/%v?parseTime=true", c.Username, c.Password, c.Server, c.Port, c.Database), nil
	case Postgres:
		return fmt.Sprintf("host=%v port=%v user=%v password=%v dbname=%v sslmode=disable",
			c.Server, c.Port, c.Username, c.Password, c.Database), nil
	default:
		return "", fmt.Errorf("sqldb: unsupported dialect %q", c.Dialect)
	}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
    pid            VARCHAR(36) PRIMARY KEY,
    name           VARCHAR(255) NOT NULL,
    created_at     VARCHAR(40) NOT NULL,
    solar_gen_mw   DOUBLE PRECISION NOT NULL,
    grid_import_mw DOUBLE PRECISION NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS bus_results (
    run_pid   VARCHAR(36) NOT NULL,
    bus_id    INTEGER NOT NULL,
    name      VARCHAR(255) NOT NULL,
    vm_pu     DOUBLE PRECISION NOT NULL,
    va_degree DOUBLE PRECISION NOT NULL,
    p_mw      DOUBLE PRECISION NOT NULL,
    q_mvar    DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (run_pid, bus_id)
)`,
	`CREATE TABLE IF NOT EXISTS line_results (
    run_pid         VARCHAR(36) NOT NULL,
    line_id         INTEGER NOT NULL,
    name            VARCHAR(255) NOT NULL,
    from_bus        INTEGER NOT NULL,
    to_bus          INTEGER NOT NULL,
    pl_mw           DOUBLE PRECISION NOT NULL,
    i_ka            DOUBLE PRECISION NOT NULL,
    loading_percent DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (run_pid, line_id)
)`,
}

// Run is one row of the runs table.
type Run struct {
	PID          string
	Name         string
	CreatedAt    time.Time
	SolarGenMW   float64
	GridImportMW float64
}

// Store is an Archiver backed by database/sql.
type Store struct {
	db      *sql.DB
	dialect string
}

// Open connects and creates the schema if it does not exist.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dsn, err := cfg.dsn()
	if err != nil {
		return nil, err
	}
	if cfg.Dialect == SQLite && cfg.DSN == "" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("sqldb: %w", err)
		}
	}
	db, err := sql.Open(cfg.Dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqldb: open database: %w", err)
	}
	if cfg.Dialect == SQLite {
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqldb: set busy timeout: %w", err)
		}
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqldb: create schema: %w", err)
		}
	}
	return &Store{db: db, dialect: cfg.Dialect}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Archive implements archive.Archiver. The run and its rows are written in one transaction.
func (s *Store) Archive(ctx context.Context, rec archive.Record) error {
	doc := rec.Document()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqldb: begin tx for run %s: %w", doc.PID, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, s.bind(`INSERT INTO runs (pid, name, created_at, solar_gen_mw, grid_import_mw)
		VALUES (?, ?, ?, ?, ?)`),
		doc.PID, doc.Name, doc.CreatedAt.UTC().Format(time.RFC3339), doc.SolarGenMW, doc.GridImportMW); err != nil {
		return fmt.Errorf("sqldb: insert run %s: %w", doc.PID, err)
	}

	busStmt, err := tx.PrepareContext(ctx, s.bind(`INSERT INTO bus_results
		(run_pid, bus_id, name, vm_pu, va_degree, p_mw, q_mvar) VALUES (?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("sqldb: prepare bus insert: %w", err)
	}
	defer busStmt.Close()
	for _, b := range doc.Buses {
		if _, err := busStmt.ExecContext(ctx, doc.PID, b.ID, b.Name, b.VmPU, b.VaDegree, b.PMW, b.QMvar); err != nil {
			return fmt.Errorf("sqldb: insert bus %d: %w", b.ID, err)
		}
	}

	lineStmt, err := tx.PrepareContext(ctx, s.bind(`INSERT INTO line_results
		(run_pid, line_id, name, from_bus, to_bus, pl_mw, i_ka, loading_percent) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("sqldb: prepare line insert: %w", err)
	}
	defer lineStmt.Close()
	for _, l := range doc.Lines {
		if _, err := lineStmt.ExecContext(ctx, doc.PID, l.ID, l.Name, l.FromBus, l.ToBus, l.PlMW, l.IKA, l.LoadingPercent); err != nil {
			return fmt.Errorf("sqldb: insert line %d: %w", l.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqldb: commit run %s: %w", doc.PID, err)
	}
	return nil
}

// Runs lists archived runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT pid, name, created_at, solar_gen_mw, grid_import_mw
		FROM runs ORDER BY created_at, pid`)
	if err != nil {
		return nil, fmt.Errorf("sqldb: query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var ts string
		if err := rows.Scan(&r.PID, &r.Name, &ts, &r.SolarGenMW, &r.GridImportMW); err != nil {
			return nil, fmt.Errorf("sqldb: scan run: %w", err)
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, fmt.Errorf("sqldb: parse run timestamp: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqldb: iterate runs: %w", err)
	}
	return out, nil
}

// BusVoltages returns the archived voltage magnitudes of one run keyed by bus id.
func (s *Store) BusVoltages(ctx context.Context, pid string) (map[int]float64, error) {
	rows, err := s.db.QueryContext(ctx, s.bind(`SELECT bus_id, vm_pu FROM bus_results WHERE run_pid = ?`), pid)
	if err != nil {
		return nil, fmt.Errorf("sqldb: query bus results: %w", err)
	}
	defer rows.Close()

	out := make(map[int]float64)
	for rows.Next() {
		var id int
		var vm float64
		if err := rows.Scan(&id, &vm); err != nil {
			return nil, fmt.Errorf("sqldb: scan bus result: %w", err)
		}
		out[id] = vm
	}
	return out, rows.Err()
}

// bind rewrites ? placeholders to $n for postgres.
func (s *Store) bind(q string) string {
	if s.dialect != Postgres {
		return q
	}
	var sb strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
