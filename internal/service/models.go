package service

import "time"

const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
)

// Log event types.
const (
	EventSignup      = "signup"
	EventLogin       = "login"
	EventFailedLogin = "failed_login"
	EventReset       = "reset"
	EventLogout      = "logout"
)

// Developer is a tenant: a customer of the service owning an isolated pool
// of end users and one API key.
type Developer struct {
	ID           string
	Email        string
	Name         string
	PasswordHash []byte
	APIKey       string
	APISecret    string
	Plan         string
	UsageCount   int
	CreatedAt    time.Time
}

// User is an end user inside one developer's pool. Emails are unique per
// developer, not globally.
type User struct {
	ID           string
	DeveloperID  string
	Email        string
	Name         string
	PasswordHash []byte
	Status       string
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// LogEntry is one auth event in a developer's audit log. UserID is empty
// when the event could not be tied to a user.
type LogEntry struct {
	ID          string
	DeveloperID string
	UserID      string
	UserEmail   string
	Event       string
	IPAddress   string
	Metadata    map[string]string
	CreatedAt   time.Time
}

type DashboardStats struct {
	TotalUsers   int
	ActiveUsers  int
	TotalLogins  int
	FailedLogins int
	UsageCount   int
	QuotaLimit   int
	Plan         string
}

type Dashboard struct {
	Developer   *Developer
	Stats       DashboardStats
	RecentUsers []User
	RecentLogs  []LogEntry
}

// TokenPair is what every successful signup, login and refresh returns.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RequestMeta describes the caller for audit logging.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}
