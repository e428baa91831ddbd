package main

import (
	"context"
	"log"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Vigil/internal/config"
	"github.com/NordCoder/Vigil/internal/repository/kafka"
)

func main() {
	v := config.NewViper("")
	config.SetCommonDefaults(v, "vigil-kafka-init")

	var kc config.KafkaCfg
	if err := v.UnmarshalKey("kafka", &kc); err != nil {
		log.Fatalf("config: %v", err)
	}

	l, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	for _, t := range strings.Split(kc.Topic, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		err := kafka.BootstrapTopic(ctx, kc.Brokers, kafka.TopicSpec{
			Name:              t,
			NumPartitions:     kc.Partitions,
			ReplicationFactor: kc.ReplicationFactor,
			MaxWait:           30 * time.Second,
		}, l)
		if err != nil {
			log.Fatalf("ensure topic %q: %v", t, err)
		}
		log.Printf("topic %q ready", t)
	}
	log.Println("kafka-init ok")
}
