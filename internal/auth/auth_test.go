package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, scopes []string, admin bool) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Scopes: scopes,
		Admin:  admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "operator-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestDecide_MissingHeader(t *testing.T) {
	d := NewJWTDecider(testSecret)
	dec := d.Decide("", []string{"jobs:read"}, false)
	require.False(t, dec.Allowed)
	require.Equal(t, http.StatusUnauthorized, dec.StatusCode)
}

func TestDecide_BadSignature(t *testing.T) {
	d := NewJWTDecider("other-secret")
	dec := d.Decide("Bearer "+signToken(t, []string{"*"}, false), nil, false)
	require.False(t, dec.Allowed)
	require.Equal(t, http.StatusUnauthorized, dec.StatusCode)
}

func TestDecide_ScopeWildcards(t *testing.T) {
	d := NewJWTDecider(testSecret)

	dec := d.Decide("Bearer "+signToken(t, []string{"jobs:*"}, false), []string{"jobs:write"}, false)
	require.True(t, dec.Allowed)
	require.Equal(t, "operator-1", dec.Principal.Subject)

	dec = d.Decide("Bearer "+signToken(t, []string{"jobs:*"}, false), []string{"signals:read"}, false)
	require.False(t, dec.Allowed)
	require.Equal(t, http.StatusForbidden, dec.StatusCode)

	dec = d.Decide("Bearer "+signToken(t, []string{"*"}, false), []string{"anything:at:all"}, false)
	require.True(t, dec.Allowed)
}

func TestDecide_AdminRequired(t *testing.T) {
	d := NewJWTDecider(testSecret)
	dec := d.Decide("Bearer "+signToken(t, []string{"*"}, false), nil, true)
	require.False(t, dec.Allowed)
	require.Equal(t, http.StatusForbidden, dec.StatusCode)

	dec = d.Decide("Bearer "+signToken(t, []string{"*"}, true), nil, true)
	require.True(t, dec.Allowed)
}

func TestScopeGranted(t *testing.T) {
	require.True(t, ScopeGranted([]string{"jobs:read"}, "jobs:read"))
	require.True(t, ScopeGranted([]string{"jobs:*"}, "jobs:read"))
	require.True(t, ScopeGranted([]string{"*"}, "dispatch:run"))
	require.False(t, ScopeGranted([]string{"jobs:read"}, "jobs:write"))
	require.False(t, ScopeGranted(nil, "jobs:read"))
}
