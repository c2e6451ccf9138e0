package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DecodeClaims reads the claims of a JWT without verifying its signature.
// The backend owns the signing key; the client only inspects expiry.
func DecodeClaims(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// TokenExpiry returns the exp claim of token, if it has one
func TokenExpiry(token string) (time.Time, bool) {
	claims, err := DecodeClaims(token)
	if err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// IsTokenExpired reports whether token is past its exp claim. Tokens that
// cannot be decoded count as expired; tokens without exp never expire.
func IsTokenExpired(token string) bool {
	return ExpiresWithin(token, 0)
}

// ExpiresWithin reports whether token expires within d from now
func ExpiresWithin(token string, d time.Duration) bool {
	claims, err := DecodeClaims(token)
	if err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return true
	}
	if exp == nil {
		return false
	}
	return !time.Now().Add(d).Before(exp.Time)
}
