package engine_config

import (
	"time"

	"github.com/NordCoder/Vigil/internal/config"
	pginfra "github.com/NordCoder/Vigil/internal/repository/postgres"
	redisinfra "github.com/NordCoder/Vigil/internal/repository/redis"
	sqliteinfra "github.com/NordCoder/Vigil/internal/repository/sqlite"
	"github.com/NordCoder/Vigil/internal/services/aggregator"
	"github.com/NordCoder/Vigil/internal/services/prober"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type DBCfg struct {
	Driver   string             `mapstructure:"driver"`
	Migrate  bool               `mapstructure:"migrate"`
	Postgres pginfra.Config     `mapstructure:"postgres"`
	SQLite   sqliteinfra.Config `mapstructure:"sqlite"`
}

type SchedCfg struct {
	Tick    time.Duration `mapstructure:"tick"`
	Workers int           `mapstructure:"workers"`
	Once    bool          `mapstructure:"once"`
}

type HTTPCfg struct {
	Addr        string        `mapstructure:"addr"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
	Heartbeat   time.Duration `mapstructure:"heartbeat"`
	Buffer      int           `mapstructure:"buffer"`
}

type Config struct {
	DB    DBCfg             `mapstructure:"db"`
	Kafka config.KafkaCfg   `mapstructure:"kafka"`
	Redis redisinfra.Config `mapstructure:"redis"`
	Sched SchedCfg          `mapstructure:"sched"`
	Probe prober.Config     `mapstructure:"probe"`
	Stats aggregator.Config `mapstructure:"stats"`
	HTTP  HTTPCfg           `mapstructure:"http"`
	Log   config.LogCfg     `mapstructure:"log"`
	OTEL  config.OTELCfg    `mapstructure:"otel"`
}
