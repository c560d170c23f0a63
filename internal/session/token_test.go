package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNeedsRefresh(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{name: "fresh", token: signedToken(t, now.Add(10*time.Minute)), want: false},
		{name: "inside skew", token: signedToken(t, now.Add(10*time.Second)), want: true},
		{name: "expired", token: signedToken(t, now.Add(-time.Minute)), want: true},
		{name: "opaque token", token: "not-a-jwt", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsRefresh(tt.token, now, refreshSkew))
		})
	}
}

func TestAccessExpiry_ExpiredTokenStillReadable(t *testing.T) {
	exp := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	got, ok := AccessExpiry(signedToken(t, exp))
	assert.True(t, ok)
	assert.True(t, got.Equal(exp))
}
