package domain

import (
	"strings"
	"time"
)

// Account is a Mastodon account as returned by the REST and streaming APIs.
type Account struct {
	Id             string    `json:"id"`
	Username       string    `json:"username"`
	Acct           string    `json:"acct"`
	DisplayName    string    `json:"display_name"`
	Note           string    `json:"note"`
	URL            string    `json:"url"`
	Avatar         string    `json:"avatar"`
	Locked         bool      `json:"locked"`
	Bot            bool      `json:"bot"`
	FollowersCount int       `json:"followers_count"`
	FollowingCount int       `json:"following_count"`
	StatusesCount  int       `json:"statuses_count"`
	CreatedAt      time.Time `json:"created_at"`
	// LastStatusAt is a plain date (2006-01-02), not a timestamp.
	LastStatusAt *string `json:"last_status_at"`
}

// Name is what the client shows for an account: the display name when set,
// the username otherwise.
func (acc *Account) Name() string {
	if acc == nil {
		return "Unknown"
	}
	if acc.DisplayName != "" {
		return acc.DisplayName
	}
	if acc.Username != "" {
		return acc.Username
	}
	return "Unknown"
}

// Handle returns the fully qualified user@instance form. Local accounts carry
// a bare acct, so the instance host is appended.
func (acc *Account) Handle(instanceHost string) string {
	if strings.Contains(acc.Acct, "@") || instanceHost == "" {
		return acc.Acct
	}
	return acc.Acct + "@" + instanceHost
}

func (acc *Account) LastStatusDate() (time.Time, bool) {
	if acc.LastStatusAt == nil || *acc.LastStatusAt == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", *acc.LastStatusAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Credentials is the persisted session for one instance.
type Credentials struct {
	Instance     string
	Username     string
	ClientId     string
	ClientSecret string
	AccessToken  string
	CreatedAt    time.Time
}
