package server

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

type ctxKey string

const ctxUserID ctxKey = "uid"

// JWTConfig holds the backend's token verification settings.
type JWTConfig struct {
	HS256Secret string
}

// authMiddleware validates the bearer token and stores its subject in the
// request context. Requests without a valid token are rejected.
func authMiddleware(cfg JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := ""
			if h := r.Header.Get("Authorization"); len(h) > 7 && h[:7] == "Bearer " {
				tok = h[7:]
			}
			if tok == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims := jwt.MapClaims{}
			t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(cfg.HS256Secret), nil
			})
			if err != nil || !t.Valid {
				log.Warn().Err(err).Msg("jwt validation failed")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			sub, _ := claims["sub"].(string)
			if sub == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserID, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authedUser extracts the authenticated user id from request context.
func authedUser(ctx context.Context) string {
	if s, ok := ctx.Value(ctxUserID).(string); ok {
		return s
	}
	return ""
}

// IssueToken mints an HS256 token for userID, valid for ttl. Used by the
// serve command's --issue-token flag and by tests.
func IssueToken(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
