package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents the JWT claims carried by Phis-Shield access tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"user_id"`
	Roles  []string  `json:"roles"`
}

// HasRole checks if the claims include the specified role.
func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Role constants
const (
	// RoleAdmin can do everything, including policy administration.
	RoleAdmin = "admin"
	// RoleAnalyst reviews assessments and files feedback corrections.
	RoleAnalyst = "analyst"
	// RoleAPIClient is an integration caller such as the browser extension
	// backend. It can submit targets and read results.
	RoleAPIClient = "api_client"
)
