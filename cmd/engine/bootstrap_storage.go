package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	config "github.com/NordCoder/Vigil/internal/config/engine"
	"github.com/NordCoder/Vigil/internal/domain/check"
	"github.com/NordCoder/Vigil/internal/domain/endpoint"
	"github.com/NordCoder/Vigil/internal/domain/incident"
	"github.com/NordCoder/Vigil/internal/domain/statuspage"
	"github.com/NordCoder/Vigil/internal/domain/tx"
	"github.com/NordCoder/Vigil/internal/obs/retry"
	"github.com/NordCoder/Vigil/internal/repository/memory"
	pg "github.com/NordCoder/Vigil/internal/repository/postgres"
	"github.com/NordCoder/Vigil/internal/repository/sqlite"
)

type storage struct {
	endpoints endpoint.Repo
	checks    check.Repo
	pages     statuspage.Repo
	incidents incident.Repo
	tx        tx.Transactor
	ping      func(context.Context) error
	close     func()
}

func initStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	switch cfg.DB.Driver {
	case config.DriverPostgres:
		return initPostgres(ctx, cfg, logger)
	case config.DriverSQLite:
		db, err := sqlite.New(ctx, cfg.DB.SQLite)
		if err != nil {
			return nil, err
		}
		return &storage{
			endpoints: sqlite.NewEndpointRepo(db),
			checks:    sqlite.NewCheckRepo(db),
			pages:     sqlite.NewStatusPageRepo(db),
			incidents: sqlite.NewIncidentRepo(db),
			tx:        sqlite.NewTransactor(db, logger),
			ping:      db.Ping,
			close:     func() { _ = db.Close() },
		}, nil
	case config.DriverMemory:
		logger.Warn("memory storage: state is lost on exit")
		st := memory.New()
		return &storage{
			endpoints: st.Endpoints(),
			checks:    st.Checks(),
			pages:     st.StatusPages(),
			incidents: st.Incidents(),
			tx:        st,
			ping:      st.Ping,
			close:     func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown db driver %q", cfg.DB.Driver)
}

func initPostgres(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	var db *pg.DB
	err := retry.Do(ctx, func() error {
		var err error
		db, err = pg.New(ctx, cfg.DB.Postgres)
		return err
	}, retry.StartupPolicy("postgres", logger))
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if err := db.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		logger.Warn("pool metrics disabled", zap.Error(err))
	}

	if cfg.DB.Migrate {
		if err := pg.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("migrations applied")
	}

	return &storage{
		endpoints: pg.NewEndpointRepo(db),
		checks:    pg.NewCheckRepo(db),
		pages:     pg.NewStatusPageRepo(db),
		incidents: pg.NewIncidentRepo(db),
		tx:        pg.NewTransactor(db, logger),
		ping:      db.Ping,
		close:     db.Close,
	}, nil
}
