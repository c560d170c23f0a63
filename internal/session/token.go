package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessExpiry reads the exp claim of an access token without verifying the
// signature. The lending API is the only party that can verify it; the
// front-end uses exp just to decide when to refresh.
func AccessExpiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// NeedsRefresh reports whether token expires within skew of now. Tokens
// without a readable exp are left alone and the API decides.
func NeedsRefresh(token string, now time.Time, skew time.Duration) bool {
	exp, ok := AccessExpiry(token)
	if !ok {
		return false
	}
	return !now.Add(skew).Before(exp)
}
