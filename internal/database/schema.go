package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"quill/internal/config"
	"quill/internal/middleware"

	"gorm.io/gorm"
)

// DB_SCHEMA_MODE values.
const (
	SchemaModeHybrid = "hybrid" // SQL migrations, plus AutoMigrate outside production
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus describes what ApplySchema would do against a database.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

type schemaPlan struct {
	mode    string
	sql     bool
	automig bool
}

// planSchema maps driver, environment and DB_SCHEMA_MODE to the steps
// ApplySchema runs. The SQL files are PostgreSQL dialect, so SQLite is
// always AutoMigrated whatever the mode says.
func planSchema(cfg *config.Config) (schemaPlan, error) {
	p := schemaPlan{mode: strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))}
	if p.mode == "" {
		p.mode = SchemaModeHybrid
	}
	if cfg.DBDriver == "sqlite" {
		p.automig = true
		return p, nil
	}

	prod := cfg.IsProduction()
	switch p.mode {
	case SchemaModeHybrid:
		p.sql, p.automig = true, !prod
	case SchemaModeSQL:
		p.sql = true
	case SchemaModeAuto:
		if prod {
			return p, fmt.Errorf("DB_SCHEMA_MODE=auto is not allowed in %s", cfg.Env)
		}
		p.automig = true
	default:
		return p, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", cfg.DBSchemaMode)
	}
	return p, nil
}

// AutoMigrate creates or updates every persistent table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema brings the database schema up to date. It runs at server
// start and from `admin migrate up`.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	p, err := planSchema(cfg)
	if err != nil {
		return err
	}
	if p.sql {
		if err := RunMigrations(ctx, db); err != nil {
			return err
		}
	}
	if p.automig {
		middleware.Logger.InfoContext(ctx, "auto-migrating models",
			slog.String("mode", p.mode), slog.String("driver", cfg.DBDriver))
		if err := AutoMigrate(db.WithContext(ctx)); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

// GetSchemaStatus reports the plan and, when SQL migrations are in play,
// which of them are applied and pending. Only the ledger table may be
// created.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	p, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{
		Mode:               p.mode,
		Environment:        cfg.Env,
		WillRunSQL:         p.sql,
		WillRunAutoMigrate: p.automig,
	}
	if !p.sql {
		return status, nil
	}

	if err := ensureLedger(ctx, db); err != nil {
		return nil, err
	}
	if status.AppliedVersions, err = AppliedVersions(ctx, db); err != nil {
		return nil, err
	}
	status.PendingMigrations = pendingMigrations(status.AppliedVersions, GetMigrations())
	return status, nil
}
