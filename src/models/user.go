package models

import (
	"github.com/google/uuid"
)

const RoleAdmin = "admin"

/*
A User is a row of the profile table, which is owned by the auth backend.
We only ever read it. The zero Role is a regular member.
*/
type User struct {
	ID          uuid.UUID `db:"id"`
	Email       string    `db:"email"`
	DisplayName *string   `db:"display_name"`
	Role        string    `db:"role"`
}

// IsAdmin is the administrator capability passed into every mutating
// chat operation.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

func (u *User) BestName() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Email
}
