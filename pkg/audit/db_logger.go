package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Dialect selects the SQL flavor for schema creation. Queries use $n
// placeholders, which both drivers accept.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) serialPK() string {
	if d == DialectPostgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// DBLogger writes the security trail to the database. It doubles as the
// query side: Search and DeleteOlderThan serve the admin trail endpoints
// and the retention job.
type DBLogger struct {
	db      *sql.DB
	dialect Dialect
}

// NewDBLogger creates the sink and ensures the security_events table
// exists.
func NewDBLogger(db *sql.DB, dialect Dialect) (*DBLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if dialect == "" {
		dialect = DialectSQLite
	}

	logger := &DBLogger{db: db, dialect: dialect}
	if err := logger.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure security_events table: %w", err)
	}
	return logger, nil
}

func (l *DBLogger) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS security_events (
		id ` + l.dialect.serialPK() + `,
		timestamp TIMESTAMP NOT NULL,
		event_type TEXT NOT NULL,
		user_id TEXT,
		email TEXT,
		role TEXT,
		resource TEXT,
		action TEXT,
		reason TEXT,
		ip_address TEXT,
		user_agent TEXT,
		request_id TEXT,
		method TEXT,
		path TEXT,
		metadata TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_security_events_timestamp ON security_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_security_events_event_type ON security_events(event_type);
	CREATE INDEX IF NOT EXISTS idx_security_events_user_id ON security_events(user_id);
	`
	_, err := l.db.Exec(query)
	return err
}

// LogSecurityEvent inserts one event
func (l *DBLogger) LogSecurityEvent(ctx context.Context, event *SecurityEvent) error {
	var metadataJSON []byte
	var err error
	if len(event.Metadata) > 0 {
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	query := `
		INSERT INTO security_events (
			timestamp, event_type,
			user_id, email, role,
			resource, action, reason,
			ip_address, user_agent, request_id,
			method, path, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`

	err = l.db.QueryRowContext(ctx, query,
		event.Timestamp, string(event.EventType),
		event.UserID, event.Email, event.Role,
		event.Resource, event.Action, event.Reason,
		event.IPAddress, event.UserAgent, event.RequestID,
		event.Method, event.Path, string(metadataJSON),
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to insert security event: %w", err)
	}
	return nil
}

// Search returns trail entries matching the filter, newest first
func (l *DBLogger) Search(ctx context.Context, filter SearchFilter) ([]*SecurityEvent, error) {
	query := `
		SELECT id, timestamp, event_type,
			user_id, email, role,
			resource, action, reason,
			ip_address, user_agent, request_id,
			method, path, metadata
		FROM security_events
		WHERE 1=1
	`

	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.StartTime != nil {
		query += " AND timestamp >= " + arg(*filter.StartTime)
	}
	if filter.EndTime != nil {
		query += " AND timestamp <= " + arg(*filter.EndTime)
	}
	if filter.UserID != "" {
		query += " AND user_id = " + arg(filter.UserID)
	}
	if len(filter.EventTypes) > 0 {
		placeholders := make([]string, len(filter.EventTypes))
		for i, et := range filter.EventTypes {
			placeholders[i] = arg(string(et))
		}
		query += " AND event_type IN (" + strings.Join(placeholders, ", ") + ")"
	}
	if filter.IPAddress != "" {
		query += " AND ip_address = " + arg(filter.IPAddress)
	}
	if filter.Path != "" {
		query += " AND path LIKE " + arg("%"+filter.Path+"%")
	}

	query += " ORDER BY timestamp DESC, id DESC"

	// SQLite rejects OFFSET without LIMIT, so an unbounded paged query
	// still gets a LIMIT clause.
	limit := filter.Limit
	if limit <= 0 && filter.Offset > 0 {
		limit = math.MaxInt32
	}
	if limit > 0 {
		query += " LIMIT " + arg(limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search security events: %w", err)
	}
	defer rows.Close()

	events := make([]*SecurityEvent, 0)
	for rows.Next() {
		event := &SecurityEvent{}
		var eventType, metadataJSON string

		if err := rows.Scan(
			&event.ID, &event.Timestamp, &eventType,
			&event.UserID, &event.Email, &event.Role,
			&event.Resource, &event.Action, &event.Reason,
			&event.IPAddress, &event.UserAgent, &event.RequestID,
			&event.Method, &event.Path, &metadataJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan security event: %w", err)
		}

		event.EventType = EventType(eventType)
		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &event.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// CountByType returns event counts per type within the time range
func (l *DBLogger) CountByType(ctx context.Context, start, end time.Time) (map[EventType]int64, error) {
	query := `
		SELECT event_type, COUNT(*)
		FROM security_events
		WHERE timestamp >= $1 AND timestamp <= $2
		GROUP BY event_type
	`
	rows, err := l.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to count security events: %w", err)
	}
	defer rows.Close()

	counts := make(map[EventType]int64)
	for rows.Next() {
		var eventType string
		var count int64
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, err
		}
		counts[EventType(eventType)] = count
	}
	return counts, rows.Err()
}

// DeleteOlderThan prunes trail entries before the cutoff, returning the
// number removed. The retention job calls this on schedule.
func (l *DBLogger) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM security_events WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune security events: %w", err)
	}
	return res.RowsAffected()
}

// Close is a no-op; the database handle is shared and owned by the caller
func (l *DBLogger) Close() error {
	return nil
}
