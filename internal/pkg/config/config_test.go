package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gotest.tools/v3/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	assert.NilError(t, err)

	assert.Equal(t, cfg.Scenario, "")
	assert.Equal(t, cfg.OutDir, ".")
	assert.Equal(t, cfg.Listen, ":8080")
	assert.Equal(t, cfg.Solver.Command, "python3")
	assert.DeepEqual(t, cfg.Solver.Args, []string{"scripts/pandapower_bridge.py"})
	assert.Equal(t, cfg.Solver.Timeout, 30*time.Second)
	assert.Equal(t, cfg.Render.Interactive, true)
	assert.Equal(t, cfg.Layout.Updates, 50)
	assert.Equal(t, cfg.Layout.Seed, uint64(1))
	assert.Equal(t, cfg.Archive.Timeout, 5*time.Second)
	assert.Equal(t, cfg.Archive.SQL.Dialect, "")
	assert.Equal(t, cfg.Archive.NATS.Prefix, "cgcflow.runs")
	assert.Equal(t, cfg.Archive.Webhook.URL, "")
	assert.Equal(t, cfg.Archive.Webhook.Timeout, 5*time.Second)
}

func TestReadFile(t *testing.T) {
	v := viper.New()
	assert.NilError(t, ReadFile(v, filepath.Join("testdata", "cgcflow.json")))
	cfg, err := Load(v)
	assert.NilError(t, err)

	assert.Equal(t, cfg.Scenario, "config/scenario/microgrid.json")
	assert.Equal(t, cfg.OutDir, "out")
	assert.Equal(t, cfg.Render.Interactive, false)
	assert.Equal(t, cfg.Archive.SQL.Dialect, "sqlite")
	assert.Equal(t, cfg.Archive.SQL.Database, "out/runs.db")
	assert.Equal(t, cfg.Solver.Timeout, 10*time.Second)
	assert.Equal(t, cfg.Listen, ":8080")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CGC_OUT_DIR", "/tmp/flow")
	t.Setenv("CGC_RENDER_INTERACTIVE", "false")
	t.Setenv("CGC_ARCHIVE_SQL_DIALECT", "postgres")
	t.Setenv("CGC_ARCHIVE_WEBHOOK_URL", "http://hooks.local")

	v := viper.New()
	assert.NilError(t, ReadFile(v, ""))
	cfg, err := Load(v)
	assert.NilError(t, err)
	assert.Equal(t, cfg.OutDir, "/tmp/flow")
	assert.Equal(t, cfg.Render.Interactive, false)
	assert.Equal(t, cfg.Archive.SQL.Dialect, "postgres")
	assert.Equal(t, cfg.Archive.Webhook.URL, "http://hooks.local")
}

func TestReadFileMissing(t *testing.T) {
	err := ReadFile(viper.New(), filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorContains(t, err, "config: read")
}

func TestLoadRejectsBadLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	assert.NilError(t, os.WriteFile(path, []byte(`{"layout": {"updates": 0}}`), 0o644))

	v := viper.New()
	assert.NilError(t, ReadFile(v, path))
	_, err := Load(v)
	assert.ErrorContains(t, err, "layout.updates must be positive")
}
