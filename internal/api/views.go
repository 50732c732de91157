package api

import (
	"time"

	"git.sr.ht/~jakintosh/yourauth/internal/service"
)

type TokensView struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type DeveloperView struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name,omitempty"`
	Plan       string    `json:"plan"`
	APIKey     string    `json:"apiKey,omitempty"`
	UsageCount int       `json:"usageCount"`
	CreatedAt  time.Time `json:"created_at"`
}

type CredentialsView struct {
	APIKey    string `json:"apiKey"`
	APISecret string `json:"apiSecret"`
}

type UserView struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name,omitempty"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

type LogView struct {
	ID        string    `json:"id"`
	EventType string    `json:"event_type"`
	UserEmail string    `json:"user_email"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
}

type StatsView struct {
	TotalUsers   int    `json:"totalUsers"`
	ActiveUsers  int    `json:"activeUsers"`
	TotalLogins  int    `json:"totalLogins"`
	FailedLogins int    `json:"failedLogins"`
	UsageCount   int    `json:"usageCount"`
	QuotaLimit   int    `json:"quotaLimit"`
	Plan         string `json:"plan"`
}

type DashboardView struct {
	Stats       StatsView     `json:"stats"`
	RecentUsers []UserView    `json:"recentUsers"`
	RecentLogs  []LogView     `json:"recentLogs"`
	Developer   DeveloperView `json:"developer"`
}

func tokensView(pair service.TokenPair) TokensView {
	return TokensView{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
}

// developerView omits the API key unless withKey is set.
func developerView(dev *service.Developer, withKey bool) DeveloperView {
	view := DeveloperView{
		ID:         dev.ID,
		Email:      dev.Email,
		Name:       dev.Name,
		Plan:       dev.Plan,
		UsageCount: dev.UsageCount,
		CreatedAt:  dev.CreatedAt,
	}
	if withKey {
		view.APIKey = dev.APIKey
	}
	return view
}

func userView(user *service.User) UserView {
	return UserView{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Status:    user.Status,
		CreatedAt: user.CreatedAt,
		LastLogin: user.LastLogin,
	}
}

func dashboardView(d *service.Dashboard) DashboardView {
	users := make([]UserView, 0, len(d.RecentUsers))
	for i := range d.RecentUsers {
		users = append(users, userView(&d.RecentUsers[i]))
	}

	logs := make([]LogView, 0, len(d.RecentLogs))
	for _, entry := range d.RecentLogs {
		email := entry.UserEmail
		if email == "" {
			email = "Unknown"
		}
		logs = append(logs, LogView{
			ID:        entry.ID,
			EventType: entry.Event,
			UserEmail: email,
			IPAddress: entry.IPAddress,
			CreatedAt: entry.CreatedAt,
		})
	}

	return DashboardView{
		Stats: StatsView{
			TotalUsers:   d.Stats.TotalUsers,
			ActiveUsers:  d.Stats.ActiveUsers,
			TotalLogins:  d.Stats.TotalLogins,
			FailedLogins: d.Stats.FailedLogins,
			UsageCount:   d.Stats.UsageCount,
			QuotaLimit:   d.Stats.QuotaLimit,
			Plan:         d.Stats.Plan,
		},
		RecentUsers: users,
		RecentLogs:  logs,
		Developer:   developerView(d.Developer, true),
	}
}
