package models

import "time"

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserPatch carries optional user changes; nil fields are left as they are.
type UserPatch struct {
	Name     *string
	Email    *string
	Password *string
}
