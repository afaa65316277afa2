package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what the console can read from a bearer token without the signing key.
type TokenInfo struct {
	Subject   string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// InspectToken decodes JWT claims without verifying the signature.
// The result is for display and logging only and must never gate access.
func InspectToken(raw string) (TokenInfo, error) {
	if raw == "" {
		return TokenInfo{}, errors.New("empty token")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return TokenInfo{}, err
	}
	var info TokenInfo
	info.Subject, _ = claims.GetSubject()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		info.IssuedAt = iat.Time
	}
	if role, ok := claims["role"].(string); ok {
		info.Role = role
	}
	return info, nil
}

