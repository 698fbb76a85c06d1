// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package controlapi

import (
	"net/http"
	"strings"

	"github.com/taibuivan/yomira/internal/platform/apperr"
	"github.com/taibuivan/yomira/internal/platform/respond"
	"github.com/taibuivan/yomira/internal/platform/sec"
)

// tokenVerifier is the narrow slice of [*sec.ControlTokenService] this
// middleware depends on.
type tokenVerifier interface {
	VerifyToken(tokenString string) (*sec.ControlClaims, error)
}

// requireControlToken gates a handler behind a valid control-plane
// bearer token. A missing or invalid token is always rejected — the
// control API has no anonymous-access tier.
func requireControlToken(verifier tokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				respond.Error(w, r, apperr.Unauthorized("missing bearer token"))
				return
			}
			if _, err := verifier.VerifyToken(parts[1]); err != nil {
				respond.Error(w, r, apperr.Unauthorized("invalid or expired token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
