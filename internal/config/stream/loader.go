package stream_config

import (
	"fmt"

	"github.com/NordCoder/Vigil/internal/config"
)

func Load(path string) (*Config, error) {
	v := config.NewViper(path)

	v.SetDefault("http.addr", ":8090")
	v.SetDefault("http.metrics_addr", ":8092")
	v.SetDefault("http.heartbeat", "15s")
	v.SetDefault("http.buffer", 64)

	config.SetCommonDefaults(v, "vigil-stream")
	v.SetDefault("kafka.enable", true)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Topic == "" {
		return nil, fmt.Errorf("%w: kafka needs brokers and topic", config.ErrConfig)
	}
	return &cfg, nil
}
