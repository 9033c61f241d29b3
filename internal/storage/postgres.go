// File: internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/solana-mint-scanner/pkg/utils"
)

// PostgreSQLStorage implements Storage using PostgreSQL
type PostgreSQLStorage struct {
	sqlJournal
	config     *StorageConfig
	logger     *logrus.Entry
	migrations []*Migration
}

// NewPostgreSQLStorage creates a new PostgreSQL storage instance
func NewPostgreSQLStorage(config *StorageConfig) *PostgreSQLStorage {
	return &PostgreSQLStorage{
		sqlJournal: sqlJournal{dialect: dialect{
			insert: `INSERT INTO detections (` + detectionColumns + `)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (mint_address) DO NOTHING`,
			placeholder: dollarPlaceholder,
			sources: func(values []string, bind func(interface{}) string) string {
				return "source = ANY(" + bind(pq.Array(values)) + ")"
			},
		}},
		config:     config,
		logger:     utils.ComponentLogger("postgres"),
		migrations: GetPostgreSQLMigrations(),
	}
}

// Connect establishes database connection
func (p *PostgreSQLStorage) Connect() error {
	db, err := sql.Open("postgres", p.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to open PostgreSQL database", err.Error())
	}

	// Configure connection pool
	if p.config.MaxConnections > 0 {
		db.SetMaxOpenConns(p.config.MaxConnections)
		db.SetMaxIdleConns(p.config.MaxConnections / 2)
	}
	db.SetConnMaxIdleTime(p.config.MaxIdleTime)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to ping PostgreSQL database", err.Error())
	}

	p.db = db
	p.logger.Info("PostgreSQL database connected")

	return nil
}

// Close closes the database connection
func (p *PostgreSQLStorage) Close() error {
	if p.db != nil {
		err := p.db.Close()
		p.db = nil
		p.logger.Info("PostgreSQL database connection closed")
		return err
	}
	return nil
}

// Ping checks database connectivity
func (p *PostgreSQLStorage) Ping() error {
	db, err := p.conn()
	if err != nil {
		return err
	}
	return db.Ping()
}

// Migrate runs database migrations
func (p *PostgreSQLStorage) Migrate() error {
	return applyMigrations(p.db, p.migrations, p.logger)
}

// GetStorageStats returns journal statistics
func (p *PostgreSQLStorage) GetStorageStats() (*StorageStats, error) {
	ctx := context.Background()
	stats := &StorageStats{Type: "postgres"}
	if err := p.stats(ctx, stats); err != nil {
		return nil, err
	}

	if err := p.db.QueryRowContext(ctx, "SELECT pg_database_size(current_database())").Scan(&stats.DatabaseSize); err != nil {
		p.logger.WithError(err).Debug("Failed to read database size")
	}
	return stats, nil
}

// IsHealthy reports whether the database answers a ping
func (p *PostgreSQLStorage) IsHealthy() bool {
	return p.Ping() == nil
}
