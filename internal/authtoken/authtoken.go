// Package authtoken inspects bearer tokens locally, without contacting the
// network or verifying signatures. Expiry decisions belong to the backend;
// the client only avoids dispatching requests it already knows will fail.
package authtoken

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpirySkew is the safety margin applied to expiry checks so a request is
// never dispatched with a token that expires mid-flight.
const ExpirySkew = 10 * time.Second

// IsExpired reports whether token must be treated as expired. A token that
// fails to decode is expired; a token with no expiry claim never expires;
// otherwise expired iff now+ExpirySkew >= exp.
func IsExpired(token string) bool {
	return isExpiredAt(token, time.Now())
}

func isExpiredAt(token string, now time.Time) bool {
	claims, err := Payload(token)
	if err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Add(ExpirySkew).Before(claims.ExpiresAt.Time)
}

// Payload decodes the token's registered claims without signature
// verification.
func Payload(token string) (*jwt.RegisteredClaims, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}
