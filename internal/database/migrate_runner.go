package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"quill/internal/middleware"

	"gorm.io/gorm"
)

// MigrationLog is one row of the applied-migrations ledger.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the database table name for MigrationLog.
func (MigrationLog) TableName() string {
	return "migration_logs"
}

// ErrNothingToRollback is returned by RollbackLast on a fresh database.
var ErrNothingToRollback = errors.New("no applied migrations")

const createLedgerSQL = `
CREATE TABLE IF NOT EXISTS migration_logs (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

func ensureLedger(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec(createLedgerSQL).Error; err != nil {
		return fmt.Errorf("create migration_logs: %w", err)
	}
	return nil
}

// AppliedVersions lists the versions recorded in migration_logs, ascending.
func AppliedVersions(ctx context.Context, db *gorm.DB) ([]int, error) {
	var versions []int
	err := db.WithContext(ctx).Model(&MigrationLog{}).Order("version ASC").Pluck("version", &versions).Error
	if err != nil {
		return nil, fmt.Errorf("read migration_logs: %w", err)
	}
	return versions, nil
}

// pendingMigrations returns the registered migrations missing from applied.
func pendingMigrations(applied []int, registered []Migration) []Migration {
	var pending []Migration
	for _, m := range registered {
		if !slices.Contains(applied, m.Version) {
			pending = append(pending, m)
		}
	}
	return pending
}

// RunMigrations applies every pending embedded migration in version order.
// Each migration and its ledger row commit together.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	registered, err := embeddedMigrations()
	if err != nil {
		return err
	}
	if err := ensureLedger(ctx, db); err != nil {
		return err
	}
	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return err
	}
	if err := validateAppliedVersions(applied, registered); err != nil {
		return err
	}

	for _, m := range pendingMigrations(applied, registered) {
		middleware.Logger.InfoContext(ctx, "applying migration", slog.String("migration", m.String()))
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.UpScript).Error; err != nil {
				return err
			}
			return tx.Create(&MigrationLog{Version: m.Version, Name: m.Name}).Error
		})
		if err != nil {
			return fmt.Errorf("migration %s: %w", m.String(), err)
		}
	}
	return nil
}

// RollbackLast reverts the newest applied migration with its down script
// and returns it.
func RollbackLast(ctx context.Context, db *gorm.DB) (*Migration, error) {
	registered, err := embeddedMigrations()
	if err != nil {
		return nil, err
	}
	if err := ensureLedger(ctx, db); err != nil {
		return nil, err
	}
	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}
	if len(applied) == 0 {
		return nil, ErrNothingToRollback
	}
	if err := validateAppliedVersions(applied, registered); err != nil {
		return nil, err
	}

	last := applied[len(applied)-1]
	idx := slices.IndexFunc(registered, func(m Migration) bool { return m.Version == last })
	m := registered[idx]

	middleware.Logger.InfoContext(ctx, "reverting migration", slog.String("migration", m.String()))
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return err
		}
		return tx.Delete(&MigrationLog{}, "version = ?", m.Version).Error
	})
	if err != nil {
		return nil, fmt.Errorf("revert %s: %w", m.String(), err)
	}
	return &m, nil
}

// validateAppliedVersions refuses to touch a database migrated by a newer
// build, whose ledger names versions this binary does not ship.
func validateAppliedVersions(applied []int, registered []Migration) error {
	var unknown []string
	for _, v := range applied {
		known := slices.ContainsFunc(registered, func(m Migration) bool { return m.Version == v })
		if !known {
			unknown = append(unknown, fmt.Sprintf("%06d", v))
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return fmt.Errorf("database has unknown applied migrations: %s", strings.Join(unknown, ", "))
	}
	return nil
}
