package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is the authenticated caller extracted from a bearer token.
type Principal struct {
	Subject string
	Scopes  []string
	Admin   bool
}

// Decision is the outcome of the bearer-token contract: whether the
// request may proceed, and the HTTP status to answer with when not.
type Decision struct {
	Allowed    bool
	StatusCode int
	Principal  *Principal
}

// Decider evaluates an Authorization header against the required
// scopes. Token issuance is someone else's problem; this side only
// verifies and decides.
type Decider interface {
	Decide(authorizationHeader string, requiredScopes []string, requireAdmin bool) Decision
}

type claims struct {
	Scopes []string `json:"scopes"`
	Admin  bool     `json:"admin"`
	jwt.RegisteredClaims
}

type jwtDecider struct {
	secret []byte
}

func NewJWTDecider(secret string) Decider {
	return &jwtDecider{secret: []byte(secret)}
}

func (d *jwtDecider) Decide(authorizationHeader string, requiredScopes []string, requireAdmin bool) Decision {
	raw := extractBearer(authorizationHeader)
	if raw == "" {
		return Decision{Allowed: false, StatusCode: http.StatusUnauthorized}
	}

	var c claims
	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return d.secret, nil
	})
	if err != nil || !token.Valid {
		return Decision{Allowed: false, StatusCode: http.StatusUnauthorized}
	}

	p := &Principal{Subject: c.Subject, Scopes: c.Scopes, Admin: c.Admin}
	if requireAdmin && !p.Admin {
		return Decision{Allowed: false, StatusCode: http.StatusForbidden, Principal: p}
	}
	for _, required := range requiredScopes {
		if !ScopeGranted(p.Scopes, required) {
			return Decision{Allowed: false, StatusCode: http.StatusForbidden, Principal: p}
		}
	}
	return Decision{Allowed: true, StatusCode: http.StatusOK, Principal: p}
}

// ScopeGranted reports whether any granted scope covers required.
// Grants support "*" and trailing-wildcard prefixes ("jobs:*").
func ScopeGranted(granted []string, required string) bool {
	for _, g := range granted {
		if g == "*" || g == required {
			return true
		}
		if strings.HasSuffix(g, ":*") && strings.HasPrefix(required, strings.TrimSuffix(g, "*")) {
			return true
		}
	}
	return false
}

func extractBearer(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
