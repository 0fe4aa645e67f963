package domain

import "time"

// User represents an end user able to authenticate against the platform.
// Credential verification is delegated to the hasher capability; the entity
// only carries the resulting hash.
type User struct {
	ID           int64
	UserName     string
	Email        string
	PasswordHash string
	Phone        string
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole reports membership in the user's role set.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
