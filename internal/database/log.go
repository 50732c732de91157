package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"git.sr.ht/~jakintosh/yourauth/internal/service"
)

func (s *SQLiteStore) LogStore() service.LogStore {
	return s
}

func (s *SQLiteStore) InsertLog(
	ctx context.Context,
	entry *service.LogEntry,
) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	var userID sql.NullString
	if entry.UserID != "" {
		userID = sql.NullString{String: entry.UserID, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO logs (id, developer_id, user_id, event, ip_address, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?);`,
		entry.ID,
		entry.DeveloperID,
		userID,
		entry.Event,
		entry.IPAddress,
		string(metadata),
		toMillis(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("couldn't insert into logs: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CountEvents(
	ctx context.Context,
	developerID string,
	event string,
) (
	int,
	error,
) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM logs
		WHERE developer_id=? AND event=?;`,
		developerID,
		event,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("couldn't count events: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) CountActiveUsers(
	ctx context.Context,
	developerID string,
	since time.Time,
) (
	int,
	error,
) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT user_id)
		FROM logs
		WHERE developer_id=? AND event=? AND user_id IS NOT NULL AND created_at >= ?;`,
		developerID,
		service.EventLogin,
		toMillis(since),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("couldn't count active users: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) RecentLogs(
	ctx context.Context,
	developerID string,
	limit int,
) (
	[]service.LogEntry,
	error,
) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.developer_id, COALESCE(l.user_id, ''), COALESCE(u.email, ''),
			l.event, l.ip_address, l.metadata, l.created_at
		FROM logs l
		LEFT JOIN users u ON u.id = l.user_id
		WHERE l.developer_id=?
		ORDER BY l.created_at DESC, l.rowid DESC
		LIMIT ?;`,
		developerID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't list logs: %w", err)
	}
	defer rows.Close()

	entries := []service.LogEntry{}
	for rows.Next() {
		var entry service.LogEntry
		var metadata string
		var createdAt int64
		err := rows.Scan(
			&entry.ID,
			&entry.DeveloperID,
			&entry.UserID,
			&entry.UserEmail,
			&entry.Event,
			&entry.IPAddress,
			&metadata,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("couldn't scan log: %w", err)
		}
		if err := json.Unmarshal([]byte(metadata), &entry.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
		entry.CreatedAt = fromMillis(createdAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("couldn't iterate logs: %w", err)
	}
	return entries, nil
}
