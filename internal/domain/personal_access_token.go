package domain

import "time"

type PersonalAccessToken struct {
	ID        int64
	TokenHash string
	UserID    int64
	Abilities string
	ExpiresAt *time.Time
}

// Session is the authenticated agent for the lifetime of one request.
type Session struct {
	UserID    int64
	TokenID   int64
	Abilities string
	ExpiresAt *time.Time
}

func (s Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}
