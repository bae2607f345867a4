package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload for access tokens minted by the identity service.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Actor identifies the caller of a service operation. IP and UserAgent feed the audit trail.
type Actor struct {
	UserID    string
	Role      UserRole
	IP        string
	UserAgent string
}

// IsAdmin reports whether the actor has administrative privileges.
func (a Actor) IsAdmin() bool {
	return a.Role.IsAdmin()
}

// ActorFromClaims converts token claims into an Actor.
func ActorFromClaims(claims *JWTClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, Role: claims.Role}
}
