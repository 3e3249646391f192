package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	diagnosisservice "exposure/internal/diagnosis/service"
	diagnosisstore "exposure/internal/diagnosis/store"
	"exposure/internal/platform/config"
	"exposure/internal/platform/database"
	platformredis "exposure/internal/platform/redis"
	roamingservice "exposure/internal/roaming/service"
	roamingstore "exposure/internal/roaming/store"
)

// diagnosisStore is the store the service runs on, plus the readiness probe
// and shutdown hook main needs.
type diagnosisStore interface {
	diagnosisservice.Store
	Ping(ctx context.Context) error
}

func openDiagnosisStore(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (diagnosisStore, func() error, error) {
	var (
		db      *sql.DB
		dialect diagnosisstore.Dialect
		err     error
	)
	switch cfg.Driver {
	case config.StorageMemory:
		log.Warn("diagnoses kept in memory only; they are lost on restart")
		return diagnosisstore.NewInMemoryStore(), func() error { return nil }, nil
	case config.StorageSQLite:
		db, err = database.OpenSQLite(ctx, cfg.SQLitePath)
		dialect = diagnosisstore.DialectSQLite
	case config.StoragePostgres:
		db, err = database.OpenPostgres(ctx, cfg.PostgresDSN)
		dialect = diagnosisstore.DialectPostgres
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, nil, err
	}

	st, err := diagnosisstore.NewSQL(db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	log.Info("diagnosis store ready", "driver", cfg.Driver)
	return st, db.Close, nil
}

// countryCodeStore uses memory alone without Redis. With Redis, sightings are
// mirrored in memory so an outage degrades reads instead of failing them.
func countryCodeStore(client *platformredis.Client, log *slog.Logger) roamingservice.Store {
	if client == nil {
		return roamingstore.NewInMemoryStore()
	}
	return roamingstore.NewFallbackStore(
		roamingstore.NewRedisStore(client.Client),
		roamingstore.NewInMemoryStore(),
		roamingstore.WithFallbackLogger(log),
	)
}
