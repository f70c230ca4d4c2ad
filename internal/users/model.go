package users

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an operator account. PasswordHash never leaves the service layer.
type User struct {
	ID           string
	Username     string
	LastName     string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func validRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}
