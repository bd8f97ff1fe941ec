package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ohowland/cgc_powerflow/internal/pkg/archive/mongodb"
	"github.com/ohowland/cgc_powerflow/internal/pkg/archive/natshandler"
	"github.com/ohowland/cgc_powerflow/internal/pkg/archive/sqldb"
	"github.com/ohowland/cgc_powerflow/internal/pkg/powerflow/execsolver"
	"github.com/ohowland/cgc_powerflow/internal/pkg/render"
	"github.com/ohowland/cgc_powerflow/internal/pkg/topology"
	"github.com/ohowland/cgc_powerflow/internal/pkg/web"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. CGC_OUT_DIR.
const EnvPrefix = "CGC"

// TelemetryConfig enables live state of charge reads for storages with a SoCSource.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ArchiveConfig lists the archive backends. A backend is used when its locating field
// (Dialect, URI, Server or URL) is set.
type ArchiveConfig struct {
	SQL     sqldb.Config       `mapstructure:"sql"`
	Mongo   mongodb.Config     `mapstructure:"mongo"`
	NATS    natshandler.Config `mapstructure:"nats"`
	Webhook web.Config         `mapstructure:"webhook"`
	Timeout time.Duration      `mapstructure:"timeout"`
}

// Config holds all runtime configuration. Values come from the config file, CGC_* env
// vars and CLI flags, over built-in defaults.
type Config struct {
	Scenario  string            `mapstructure:"scenario"`
	OutDir    string            `mapstructure:"out_dir"`
	Listen    string            `mapstructure:"listen"`
	Solver    execsolver.Config `mapstructure:"solver"`
	Render    render.Config     `mapstructure:"render"`
	Layout    topology.Options  `mapstructure:"layout"`
	Telemetry TelemetryConfig   `mapstructure:"telemetry"`
	Archive   ArchiveConfig     `mapstructure:"archive"`
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	layout := topology.DefaultOptions()
	rc := render.DefaultConfig()

	v.SetDefault("scenario", "")
	v.SetDefault("out_dir", ".")
	v.SetDefault("listen", ":8080")
	v.SetDefault("solver.command", "python3")
	v.SetDefault("solver.args", []string{"scripts/pandapower_bridge.py"})
	v.SetDefault("solver.timeout", "30s")
	v.SetDefault("render.interactive", rc.Interactive)
	v.SetDefault("render.assets_host", "")
	v.SetDefault("render.width_in", rc.WidthIn)
	v.SetDefault("render.height_in", rc.HeightIn)
	v.SetDefault("layout.title", layout.Title)
	v.SetDefault("layout.seed", layout.Seed)
	v.SetDefault("layout.updates", layout.Updates)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("archive.timeout", "5s")
	v.SetDefault("archive.sql.dialect", "")
	v.SetDefault("archive.sql.dsn", "")
	v.SetDefault("archive.sql.database", "")
	v.SetDefault("archive.mongo.uri", "")
	v.SetDefault("archive.mongo.database", "")
	v.SetDefault("archive.nats.server", "")
	v.SetDefault("archive.nats.prefix", "cgcflow.runs")
	v.SetDefault("archive.webhook.url", "")
	v.SetDefault("archive.webhook.timeout", "5s")
}

// Load applies defaults and decodes v into a Config.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if cfg.Layout.Updates <= 0 {
		return Config{}, fmt.Errorf("config: layout.updates must be positive, got %d", cfg.Layout.Updates)
	}
	return cfg, nil
}

// ReadFile enables CGC_* env overrides and reads path. An empty path leaves the defaults.
func ReadFile(v *viper.Viper, path string) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return nil
}
