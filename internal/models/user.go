package models

import "fmt"

type User struct {
	ID           int     `json:"id"`
	Name         string  `json:"nombre"`
	Email        string  `json:"email"`
	PasswordHash string  `json:"-"`
	Role         Role    `json:"rol"`
	Phone        *string `json:"telefono,omitempty"`
}

// Role is the closed set of roles a user can hold.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSeller Role = "vendedor"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSeller:
		return true
	}
	return false
}

func ParseRole(raw string) (Role, error) {
	if raw == "" {
		return RoleSeller, nil
	}
	r := Role(raw)
	if !r.Valid() {
		return "", fmt.Errorf("rol inválido: %s", raw)
	}
	return r, nil
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

type RegisterRequest struct {
	Name     string  `json:"nombre" validate:"required,max=100"`
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=6"`
	Role     string  `json:"rol" validate:"omitempty,oneof=admin vendedor"`
	Phone    *string `json:"telefono,omitempty" validate:"omitempty,max=32"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        *User  `json:"usuario"`
}
