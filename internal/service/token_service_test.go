package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unitutor-api/internal/models"
	appErrors "github.com/noah-isme/unitutor-api/pkg/errors"
)

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims *models.JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func claimsFor(userID string, role models.UserRole, ttl time.Duration) *models.JWTClaims {
	return &models.JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "unitutor-identity",
			Audience:  jwt.ClaimStrings{"unitutor-api"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestValidateTokenAcceptsValidToken(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "s3cret", Issuer: "unitutor-identity", Audience: []string{"unitutor-api"}})
	token := signToken(t, "s3cret", jwt.SigningMethodHS256, claimsFor("f-1", models.RoleFaculty, time.Hour))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "f-1", claims.UserID)
	assert.Equal(t, models.RoleFaculty, claims.Role)
}

func TestValidateTokenRejections(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "s3cret", Issuer: "unitutor-identity", Audience: []string{"unitutor-api"}})

	cases := map[string]string{
		"expired":      signToken(t, "s3cret", jwt.SigningMethodHS256, claimsFor("u", models.RoleStudent, -time.Minute)),
		"wrong secret": signToken(t, "other", jwt.SigningMethodHS256, claimsFor("u", models.RoleStudent, time.Hour)),
		"wrong alg":    signToken(t, "s3cret", jwt.SigningMethodHS512, claimsFor("u", models.RoleStudent, time.Hour)),
		"unknown role": signToken(t, "s3cret", jwt.SigningMethodHS256, claimsFor("u", models.UserRole("GUEST"), time.Hour)),
		"no subject":   signToken(t, "s3cret", jwt.SigningMethodHS256, claimsFor("", models.RoleStudent, time.Hour)),
		"garbage":      "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.Error(t, err)
			assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
		})
	}
}

func TestValidateTokenChecksIssuer(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "s3cret", Issuer: "someone-else"})
	token := signToken(t, "s3cret", jwt.SigningMethodHS256, claimsFor("u", models.RoleAdmin, time.Hour))

	_, err := svc.ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
