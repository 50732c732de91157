package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"git.sr.ht/~jakintosh/yourauth/internal/service"
)

const userColumns = `id, developer_id, email, name, password_hash, status, created_at, last_login`

func (s *SQLiteStore) UserStore() service.UserStore {
	return s
}

func (s *SQLiteStore) CreateUserWithinQuota(
	ctx context.Context,
	user *service.User,
	limit int,
) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	result, err := tx.ExecContext(ctx, `
		UPDATE developers
		SET usage_count = usage_count + 1
		WHERE id=? AND usage_count < ?;`,
		user.DeveloperID,
		limit,
	)
	if err != nil {
		return fmt.Errorf("couldn't increment usage: %w", err)
	}
	if resultsEmpty(result) {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM developers WHERE id=?;`, user.DeveloperID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return service.ErrAccountNotFound
		}
		if err != nil {
			return fmt.Errorf("couldn't look up developer: %w", err)
		}
		return service.ErrQuotaExceeded
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL);`,
		user.ID,
		user.DeveloperID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Status,
		toMillis(user.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return service.ErrAccountExists
		}
		return fmt.Errorf("couldn't insert into users: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetUserByEmail(
	ctx context.Context,
	developerID string,
	email string,
) (
	*service.User,
	error,
) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE developer_id=? AND email=?;`,
		developerID,
		email,
	)
	return scanUser(row)
}

func (s *SQLiteStore) GetUserByID(
	ctx context.Context,
	developerID string,
	id string,
) (
	*service.User,
	error,
) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE developer_id=? AND id=?;`,
		developerID,
		id,
	)
	return scanUser(row)
}

func (s *SQLiteStore) TouchLastLogin(
	ctx context.Context,
	userID string,
	at time.Time,
) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET last_login=?
		WHERE id=?;`,
		toMillis(at),
		userID,
	)
	if err != nil {
		return fmt.Errorf("couldn't update last login: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SetUserStatus(
	ctx context.Context,
	developerID string,
	userID string,
	status string,
) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET status=?
		WHERE developer_id=? AND id=?;`,
		status,
		developerID,
		userID,
	)
	if err != nil {
		return fmt.Errorf("couldn't update user status: %w", err)
	}
	if resultsEmpty(result) {
		return service.ErrAccountNotFound
	}
	return nil
}

func (s *SQLiteStore) CountUsers(
	ctx context.Context,
	developerID string,
) (
	int,
	error,
) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM users
		WHERE developer_id=?;`,
		developerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("couldn't count users: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) RecentUsers(
	ctx context.Context,
	developerID string,
	limit int,
) (
	[]service.User,
	error,
) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE developer_id=?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?;`,
		developerID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't list users: %w", err)
	}
	defer rows.Close()

	users := []service.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("couldn't iterate users: %w", err)
	}
	return users, nil
}

func scanUser(row scanner) (*service.User, error) {
	user := &service.User{}
	var createdAt int64
	var lastLogin sql.NullInt64
	err := row.Scan(
		&user.ID,
		&user.DeveloperID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Status,
		&createdAt,
		&lastLogin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, service.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't scan user: %w", err)
	}
	user.CreatedAt = fromMillis(createdAt)
	if lastLogin.Valid {
		t := fromMillis(lastLogin.Int64)
		user.LastLogin = &t
	}
	return user, nil
}
