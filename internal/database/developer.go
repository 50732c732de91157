package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"git.sr.ht/~jakintosh/yourauth/internal/service"
)

const developerColumns = `id, email, name, password_hash, api_key, api_secret, plan, usage_count, created_at`

func (s *SQLiteStore) DeveloperStore() service.DeveloperStore {
	return s
}

func (s *SQLiteStore) InsertDeveloper(
	ctx context.Context,
	dev *service.Developer,
) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO developers (`+developerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		dev.ID,
		dev.Email,
		dev.Name,
		dev.PasswordHash,
		dev.APIKey,
		dev.APISecret,
		dev.Plan,
		dev.UsageCount,
		toMillis(dev.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return service.ErrAccountExists
		}
		return fmt.Errorf("couldn't insert into developers: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetDeveloperByID(
	ctx context.Context,
	id string,
) (
	*service.Developer,
	error,
) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+developerColumns+`
		FROM developers
		WHERE id=?;`,
		id,
	)
	return scanDeveloper(row)
}

func (s *SQLiteStore) GetDeveloperByEmail(
	ctx context.Context,
	email string,
) (
	*service.Developer,
	error,
) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+developerColumns+`
		FROM developers
		WHERE email=?;`,
		email,
	)
	return scanDeveloper(row)
}

func (s *SQLiteStore) GetDeveloperByAPIKey(
	ctx context.Context,
	apiKey string,
) (
	*service.Developer,
	error,
) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+developerColumns+`
		FROM developers
		WHERE api_key=?;`,
		apiKey,
	)
	return scanDeveloper(row)
}

func (s *SQLiteStore) UpdateAPIKey(
	ctx context.Context,
	id string,
	apiKey string,
) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE developers
		SET api_key=?
		WHERE id=?;`,
		apiKey,
		id,
	)
	if err != nil {
		return fmt.Errorf("couldn't update api key: %w", err)
	}
	if resultsEmpty(result) {
		return service.ErrAccountNotFound
	}
	return nil
}

func (s *SQLiteStore) SetPlan(
	ctx context.Context,
	id string,
	plan string,
) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE developers
		SET plan=?
		WHERE id=?;`,
		plan,
		id,
	)
	if err != nil {
		return fmt.Errorf("couldn't update plan: %w", err)
	}
	if resultsEmpty(result) {
		return service.ErrAccountNotFound
	}
	return nil
}

func scanDeveloper(row scanner) (*service.Developer, error) {
	dev := &service.Developer{}
	var createdAt int64
	err := row.Scan(
		&dev.ID,
		&dev.Email,
		&dev.Name,
		&dev.PasswordHash,
		&dev.APIKey,
		&dev.APISecret,
		&dev.Plan,
		&dev.UsageCount,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, service.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't scan developer: %w", err)
	}
	dev.CreatedAt = fromMillis(createdAt)
	return dev, nil
}
