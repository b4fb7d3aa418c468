package middleware

import (
	"context"
	"net/http"
	"strings"

	"linkbio-service/config"
	"linkbio-service/utils"
)

type contextKey string

const userClaimsKey contextKey = "userClaims"

func AuthMiddleware(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r, cfg.Auth.AccessCookieName)
			if token == "" {
				WriteError(w, http.StatusUnauthorized, "No token provided")
				return
			}

			claims, err := utils.ParseAccessToken(token, cfg.Auth.JWTSecret, cfg.Auth.Issuer)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuth attaches claims when a valid token is present and otherwise
// lets the request through anonymously.
func OptionalAuth(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := tokenFromRequest(r, cfg.Auth.AccessCookieName); token != "" {
				if claims, err := utils.ParseAccessToken(token, cfg.Auth.JWTSecret, cfg.Auth.Issuer); err == nil {
					r = r.WithContext(ContextWithClaims(r.Context(), claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*utils.Claims, bool) {
	claims, ok := ctx.Value(userClaimsKey).(*utils.Claims)
	return claims, ok
}

func ContextWithClaims(ctx context.Context, claims *utils.Claims) context.Context {
	return context.WithValue(ctx, userClaimsKey, claims)
}

func tokenFromRequest(r *http.Request, cookieName string) string {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		// browsers cannot set headers on websocket upgrades
		return r.URL.Query().Get("access_token")
	}

	return strings.TrimPrefix(authHeader, "Bearer ")
}
