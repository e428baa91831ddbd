package stream_config

import (
	"time"

	"github.com/NordCoder/Vigil/internal/config"
)

type HTTPCfg struct {
	Addr        string        `mapstructure:"addr"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
	Heartbeat   time.Duration `mapstructure:"heartbeat"`
	Buffer      int           `mapstructure:"buffer"`
}

type Config struct {
	Kafka config.KafkaCfg `mapstructure:"kafka"`
	HTTP  HTTPCfg         `mapstructure:"http"`
	Log   config.LogCfg   `mapstructure:"log"`
	OTEL  config.OTELCfg  `mapstructure:"otel"`
}
