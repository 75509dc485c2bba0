package models

import "github.com/golang-jwt/jwt/v5"

// UserRole distinguishes administrative from regular callers.
type UserRole string

const (
	RoleAdmin  UserRole = "ADMIN"
	RoleIssuer UserRole = "ISSUER"
)

// JWTClaims carries the authenticated caller identity.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
