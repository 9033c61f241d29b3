package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smartdevs17/solana-mint-scanner/internal/models"
	"github.com/smartdevs17/solana-mint-scanner/pkg/utils"
)

const detectionColumns = `id, mint_address, timestamp, age_minutes, source, signature, slot, detected_at`

// dialect captures the SQL differences between backends
type dialect struct {
	// insert ignores a duplicate mint_address
	insert string
	// placeholder returns the bind marker for the n-th argument, 1-based
	placeholder func(n int) string
	// sources renders a membership predicate, appending its args via bind
	sources func(values []string, bind func(interface{}) string) string
}

// sqlJournal implements the detection operations shared by SQL backends
type sqlJournal struct {
	db      *sql.DB
	dialect dialect
}

func (j *sqlJournal) conn() (*sql.DB, error) {
	if j.db == nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	return j.db, nil
}

func (j *sqlJournal) SaveDetection(ctx context.Context, event *models.DetectionEvent) error {
	db, err := j.conn()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, j.dialect.insert,
		event.ID, event.MintAddress, toMillis(event.Timestamp), event.AgeMinutes,
		event.Source, event.Signature, int64(event.Slot), toMillis(event.DetectedAt))
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save detection", err.Error())
	}
	return nil
}

func (j *sqlJournal) GetDetection(ctx context.Context, mint string) (*models.DetectionEvent, error) {
	db, err := j.conn()
	if err != nil {
		return nil, err
	}

	query := "SELECT " + detectionColumns + " FROM detections WHERE mint_address = " + j.dialect.placeholder(1)
	event, err := scanDetection(db.QueryRowContext(ctx, query, mint))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Detection not found", mint)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to get detection", err.Error())
	}
	return event, nil
}

func (j *sqlJournal) GetDetections(ctx context.Context, filter models.DetectionFilter) ([]*models.DetectionEvent, error) {
	db, err := j.conn()
	if err != nil {
		return nil, err
	}

	where, args := j.where(filter)
	query := "SELECT " + detectionColumns + " FROM detections" + where + " ORDER BY detected_at DESC, seq DESC"

	bind := func(v interface{}) string {
		args = append(args, v)
		return j.dialect.placeholder(len(args))
	}
	if filter.Limit > 0 {
		query += " LIMIT " + bind(filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			// SQLite requires LIMIT before OFFSET; -1 and ALL both mean unbounded
			query += " LIMIT " + j.unbounded()
		}
		query += " OFFSET " + bind(filter.Offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query detections", err.Error())
	}
	defer rows.Close()

	events := []*models.DetectionEvent{}
	for rows.Next() {
		event, err := scanDetection(rows)
		if err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan detection", err.Error())
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to read detections", err.Error())
	}

	return events, nil
}

func (j *sqlJournal) GetDetectionCount(ctx context.Context, filter models.DetectionFilter) (int64, error) {
	db, err := j.conn()
	if err != nil {
		return 0, err
	}

	where, args := j.where(filter)
	var count int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM detections"+where, args...).Scan(&count); err != nil {
		return 0, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count detections", err.Error())
	}
	return count, nil
}

// stats fills the row-derived fields of StorageStats
func (j *sqlJournal) stats(ctx context.Context, stats *StorageStats) error {
	db, err := j.conn()
	if err != nil {
		return err
	}

	var oldest, latest sql.NullInt64
	err = db.QueryRowContext(ctx,
		"SELECT COUNT(*), MIN(detected_at), MAX(detected_at) FROM detections").
		Scan(&stats.TotalDetections, &oldest, &latest)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to get storage stats", err.Error())
	}
	if oldest.Valid {
		t := fromMillis(oldest.Int64)
		stats.OldestDetection = &t
	}
	if latest.Valid {
		t := fromMillis(latest.Int64)
		stats.LatestDetection = &t
	}

	rows, err := db.QueryContext(ctx, "SELECT source, COUNT(*) FROM detections GROUP BY source")
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to get source stats", err.Error())
	}
	defer rows.Close()

	stats.DetectionsBySource = make(map[string]int64)
	for rows.Next() {
		var source string
		var count int64
		if err := rows.Scan(&source, &count); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan source stats", err.Error())
		}
		stats.DetectionsBySource[source] = count
	}
	return rows.Err()
}

func (j *sqlJournal) where(filter models.DetectionFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	bind := func(v interface{}) string {
		args = append(args, v)
		return j.dialect.placeholder(len(args))
	}

	if len(filter.Sources) > 0 {
		clauses = append(clauses, j.dialect.sources(filter.Sources, bind))
	}
	if filter.Since != nil {
		clauses = append(clauses, "detected_at >= "+bind(toMillis(*filter.Since)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (j *sqlJournal) unbounded() string {
	if j.dialect.placeholder(1) == "?" {
		return "-1"
	}
	return "ALL"
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDetection(row rowScanner) (*models.DetectionEvent, error) {
	var event models.DetectionEvent
	var ts, detectedAt, slot int64

	err := row.Scan(&event.ID, &event.MintAddress, &ts, &event.AgeMinutes,
		&event.Source, &event.Signature, &slot, &detectedAt)
	if err != nil {
		return nil, err
	}

	event.Timestamp = fromMillis(ts)
	event.DetectedAt = fromMillis(detectedAt)
	event.Slot = uint64(slot)
	return &event, nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func questionMark(int) string {
	return "?"
}

func dollarPlaceholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
