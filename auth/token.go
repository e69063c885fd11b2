// Package auth issues and validates the bearer tokens handed to session
// parties. A session token scopes a visitor connection to one session of one
// tenant; it carries no user identity.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "chat-core"

// SessionClaims is the data stored inside a session JWT.
type SessionClaims struct {
	SessionID string `json:"session_id"`
	TenantID  string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// TokenService signs session tokens with an HMAC secret. The secret comes
// from configuration, never from source.
type TokenService struct {
	secret   []byte
	duration time.Duration
}

func NewTokenService(secret []byte, duration time.Duration) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("session token secret must not be empty")
	}
	return &TokenService{secret: secret, duration: duration}, nil
}

// IssueSessionToken creates a signed JWT tying one connection to one session.
func (t *TokenService) IssueSessionToken(sessionID, tenantID uuid.UUID) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		SessionID: sessionID.String(),
		TenantID:  tenantID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	// HS256 (HMAC with SHA256).
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// ValidateSessionToken parses and validates the signature and expiration of
// a session token, then returns the session and tenant it is scoped to.
func (t *TokenService) ValidateSessionToken(tokenString string) (sessionID, tenantID uuid.UUID, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return uuid.Nil, uuid.Nil, jwt.ErrSignatureInvalid
	}

	sessionID, err = uuid.Parse(claims.SessionID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("malformed session id claim: %w", err)
	}
	tenantID, err = uuid.Parse(claims.TenantID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("malformed tenant id claim: %w", err)
	}
	return sessionID, tenantID, nil
}
