package service

import (
	"context"
	"time"
)

// DeveloperStore handles persistence of developer (tenant) accounts.
// Lookups return ErrAccountNotFound when nothing matches.
type DeveloperStore interface {
	InsertDeveloper(ctx context.Context, dev *Developer) error
	GetDeveloperByID(ctx context.Context, id string) (*Developer, error)
	GetDeveloperByEmail(ctx context.Context, email string) (*Developer, error)
	GetDeveloperByAPIKey(ctx context.Context, apiKey string) (*Developer, error)
	UpdateAPIKey(ctx context.Context, id string, apiKey string) error
	SetPlan(ctx context.Context, id string, plan string) error
}

// UserStore handles persistence of end users within developer pools.
type UserStore interface {
	// CreateUserWithinQuota inserts user and increments the owning
	// developer's usage counter in one transaction. It returns
	// ErrQuotaExceeded when the counter has reached limit and
	// ErrAccountExists when the email is taken in that pool.
	CreateUserWithinQuota(ctx context.Context, user *User, limit int) error
	GetUserByEmail(ctx context.Context, developerID string, email string) (*User, error)
	GetUserByID(ctx context.Context, developerID string, id string) (*User, error)
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error
	SetUserStatus(ctx context.Context, developerID string, userID string, status string) error
	CountUsers(ctx context.Context, developerID string) (int, error)
	RecentUsers(ctx context.Context, developerID string, limit int) ([]User, error)
}

// LogStore handles persistence of the per-developer audit log.
type LogStore interface {
	InsertLog(ctx context.Context, entry *LogEntry) error
	CountEvents(ctx context.Context, developerID string, event string) (int, error)
	CountActiveUsers(ctx context.Context, developerID string, since time.Time) (int, error)
	RecentLogs(ctx context.Context, developerID string, limit int) ([]LogEntry, error)
}
