package domain

import "time"

// RefreshToken persists one link of a user's session-continuation chain.
// Rotation revokes the current link and inserts a descendant; Revoked is
// write-once and RevokedAt is set exactly when it flips.
type RefreshToken struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	Revoked   bool
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Active reports whether the token may still be exchanged.
func (t RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
