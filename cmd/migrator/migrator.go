package main

import (
	"context"
	"log"
	"time"

	"github.com/NordCoder/Vigil/internal/config"
	pg "github.com/NordCoder/Vigil/internal/repository/postgres"
)

func main() {
	v := config.NewViper("")
	v.SetDefault("db.postgres.url", "")
	v.SetDefault("db.postgres.query_timeout", "5s")

	var cfg pg.Config
	if err := v.UnmarshalKey("db.postgres", &cfg); err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.URL == "" {
		log.Fatal("DB_POSTGRES_URL is empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db, err := pg.New(ctx, cfg)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := pg.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate up: %v", err)
	}
	log.Println("migrations: up OK")
}
