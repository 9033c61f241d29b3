package storage

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/solana-mint-scanner/pkg/utils"
)

// Migration represents a database migration
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// Timestamps are stored as unix milliseconds in both dialects so filters
// compare integers.

// GetSQLiteMigrations returns SQLite migration scripts
func GetSQLiteMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create detections table",
			SQL: `
				CREATE TABLE IF NOT EXISTS detections (
					seq INTEGER PRIMARY KEY AUTOINCREMENT,
					id TEXT NOT NULL,
					mint_address TEXT NOT NULL UNIQUE,
					timestamp INTEGER NOT NULL,
					age_minutes REAL NOT NULL,
					source TEXT NOT NULL,
					signature TEXT NOT NULL DEFAULT '',
					slot INTEGER NOT NULL DEFAULT 0,
					detected_at INTEGER NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_detections_source ON detections(source);
				CREATE INDEX IF NOT EXISTS idx_detections_detected_at ON detections(detected_at);
			`,
		},
	}
}

// GetPostgreSQLMigrations returns PostgreSQL migration scripts
func GetPostgreSQLMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create detections table",
			SQL: `
				CREATE TABLE IF NOT EXISTS detections (
					seq BIGSERIAL PRIMARY KEY,
					id TEXT NOT NULL,
					mint_address TEXT NOT NULL UNIQUE,
					timestamp BIGINT NOT NULL,
					age_minutes DOUBLE PRECISION NOT NULL,
					source TEXT NOT NULL,
					signature TEXT NOT NULL DEFAULT '',
					slot BIGINT NOT NULL DEFAULT 0,
					detected_at BIGINT NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_detections_source ON detections(source);
				CREATE INDEX IF NOT EXISTS idx_detections_detected_at ON detections(detected_at);
			`,
		},
	}
}

func applyMigrations(db *sql.DB, migrations []*Migration, logger *logrus.Entry) error {
	if db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	logger.Info("Starting database migrations")

	for _, migration := range migrations {
		logger.WithFields(logrus.Fields{
			"version":     migration.Version,
			"description": migration.Description,
		}).Debug("Applying migration")

		if _, err := db.Exec(migration.SQL); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase,
				fmt.Sprintf("Migration %s failed", migration.Version),
				err.Error())
		}
	}

	logger.Info("Database migrations completed")
	return nil
}
