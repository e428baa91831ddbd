package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/NordCoder/Vigil/internal/obs"
)

var ErrConfig = errors.New("invalid config")

type LogCfg struct {
	Level   string `mapstructure:"level"`
	Pretty  bool   `mapstructure:"pretty"`
	App     string `mapstructure:"app"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

func (c LogCfg) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{Level: c.Level, Pretty: c.Pretty, App: c.App, Env: c.Env, Ver: c.Version}
}

type OTELCfg struct {
	Enable      bool    `mapstructure:"enable"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

func (c OTELCfg) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      c.Enable,
		Endpoint:    c.Endpoint,
		ServiceName: c.ServiceName,
		SampleRatio: c.SampleRatio,
	}
}

type KafkaCfg struct {
	Enable            bool     `mapstructure:"enable"`
	Brokers           []string `mapstructure:"brokers"`
	Topic             string   `mapstructure:"topic"`
	Partitions        int      `mapstructure:"partitions"`
	ReplicationFactor int      `mapstructure:"replication_factor"`

	// PublishTimeout bounds one event write from the pipeline.
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// NewViper loads .env (if present) into the environment and a YAML file (if given)
// into a viper instance that also reads FOO_BAR for key foo.bar.
func NewViper(path string) *viper.Viper {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		_ = v.ReadInConfig()
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func SetCommonDefaults(v *viper.Viper, service string) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.app", service)
	v.SetDefault("log.env", "dev")
	v.SetDefault("log.version", "dev")

	v.SetDefault("otel.enable", false)
	v.SetDefault("otel.endpoint", "localhost:4317")
	v.SetDefault("otel.service_name", service)
	v.SetDefault("otel.sample_ratio", 1.0)

	v.SetDefault("kafka.brokers", []string{"localhost:9094"})
	v.SetDefault("kafka.topic", "vigil.events")
	v.SetDefault("kafka.partitions", 3)
	v.SetDefault("kafka.replication_factor", 1)
	v.SetDefault("kafka.publish_timeout", "2s")
}
