// File: internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/smartdevs17/solana-mint-scanner/pkg/utils"
)

// SQLiteStorage implements Storage using SQLite
type SQLiteStorage struct {
	sqlJournal
	config     *StorageConfig
	logger     *logrus.Entry
	migrations []*Migration
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(config *StorageConfig) *SQLiteStorage {
	return &SQLiteStorage{
		sqlJournal: sqlJournal{dialect: dialect{
			insert: `INSERT OR IGNORE INTO detections (` + detectionColumns + `)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			placeholder: questionMark,
			sources: func(values []string, bind func(interface{}) string) string {
				marks := make([]string, len(values))
				for i, v := range values {
					marks[i] = bind(v)
				}
				return "source IN (" + strings.Join(marks, ", ") + ")"
			},
		}},
		config:     config,
		logger:     utils.ComponentLogger("sqlite"),
		migrations: GetSQLiteMigrations(),
	}
}

// Connect establishes database connection
func (s *SQLiteStorage) Connect() error {
	// Ensure directory exists
	dir := filepath.Dir(s.config.ConnectionString)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase, "Failed to create database directory", err.Error())
		}
	}

	db, err := sql.Open("sqlite", s.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to open SQLite database", err.Error())
	}

	// Configure connection pool
	if s.config.MaxConnections > 0 {
		db.SetMaxOpenConns(s.config.MaxConnections)
		db.SetMaxIdleConns(s.config.MaxConnections / 2)
	}
	db.SetConnMaxIdleTime(s.config.MaxIdleTime)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to enable WAL mode", err.Error())
	}

	s.db = db
	s.logger.WithField("path", s.config.ConnectionString).Info("SQLite database connected")

	return nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		s.logger.Info("SQLite database connection closed")
		return err
	}
	return nil
}

// Ping checks database connectivity
func (s *SQLiteStorage) Ping() error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	return db.Ping()
}

// Migrate runs database migrations
func (s *SQLiteStorage) Migrate() error {
	return applyMigrations(s.db, s.migrations, s.logger)
}

// GetStorageStats returns journal statistics
func (s *SQLiteStorage) GetStorageStats() (*StorageStats, error) {
	stats := &StorageStats{Type: "sqlite"}
	if err := s.stats(context.Background(), stats); err != nil {
		return nil, err
	}

	for _, path := range []string{s.config.ConnectionString, s.config.ConnectionString + "-wal"} {
		if info, err := os.Stat(path); err == nil {
			stats.DatabaseSize += info.Size()
		}
	}
	return stats, nil
}

// IsHealthy reports whether the database answers a ping
func (s *SQLiteStorage) IsHealthy() bool {
	return s.Ping() == nil
}
