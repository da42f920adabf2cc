package models

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	// RoleGuest is assigned to requests without a session; never persisted.
	RoleGuest Role = "guest"
)

// ParseRole accepts the roles a stored account may carry. Empty means user.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case "":
		return RoleUser, nil
	case RoleAdmin, RoleUser:
		return Role(raw), nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Public returns a copy without the password hash.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}
