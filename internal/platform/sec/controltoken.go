// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ControlClaims is the payload carried by a control-plane token. It
// has no role hierarchy — every holder of a valid token may trigger any
// control-API operation, since the control API is reached only by
// operators, not end users.
type ControlClaims struct {
	jwt.RegisteredClaims
}

// ControlTokenService issues and verifies HS256 tokens for the pipeline's
// control API, a symmetric scheme: there is one shared operator
// population and no per-user identity to assert, so a single signing
// secret is used instead of a keypair.
type ControlTokenService struct {
	secret []byte
	issuer string
}

// NewControlTokenService constructs a ControlTokenService from a shared secret.
func NewControlTokenService(secret, issuer string) *ControlTokenService {
	return &ControlTokenService{secret: []byte(secret), issuer: issuer}
}

// IssueToken creates a control-plane token valid for ttl, for offline
// distribution to operators (e.g. via a deployment secret).
func (s *ControlTokenService) IssueToken(ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ControlClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sec: sign control token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks the signature and expiry of a control-plane token.
func (s *ControlTokenService) VerifyToken(tokenString string) (*ControlClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ControlClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("sec: invalid control token: %w", err)
	}
	claims, ok := token.Claims.(*ControlClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("sec: invalid control token claims")
	}
	return claims, nil
}
