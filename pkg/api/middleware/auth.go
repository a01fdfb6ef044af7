// Package middleware provides HTTP middleware for the bridge API.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rgb-tools/rgb-multisig-bridge/internal/logger"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/bridge/auth"
)

// watchOnlyAllowedRoutes are the read-only endpoints watch-only tokens can
// reach. Everything else requires a cosigner token.
var watchOnlyAllowedRoutes = map[string]struct{}{
	"/info":                     {},
	"/getoperationbyidx":        {},
	"/getcurrentaddressindices": {},
	"/getfile":                  {},
}

// Cosigner identifies an authenticated cosigner.
type Cosigner struct {
	Xpub string
	Idx  int32
}

// User is the authenticated caller. Cosigner is nil for watch-only tokens.
type User struct {
	Cosigner *Cosigner
}

type contextKey string

const userContextKey contextKey = "user"

// UserFromContext returns the authenticated user, nil if authentication did
// not run on this request.
func UserFromContext(ctx context.Context) *User {
	user, ok := ctx.Value(userContextKey).(*User)
	if !ok {
		return nil
	}
	return user
}

// CosignerFromContext returns the authenticated cosigner, nil for watch-only
// or unauthenticated requests.
func CosignerFromContext(ctx context.Context) *Cosigner {
	user := UserFromContext(ctx)
	if user == nil {
		return nil
	}
	return user.Cosigner
}

// CosignerLookup resolves a cosigner xpub to its database idx.
type CosignerLookup interface {
	CosignerByXpub(xpub string) (int32, bool)
}

// extractBearerToken extracts the token from a Bearer Authorization header.
func extractBearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	return parts[1], true
}

// Auth validates the bearer token on every request and stores the resolved
// user in the request context.
//
// Cosigner tokens must carry an xpub belonging to the configured cosigner
// set; watch-only tokens must carry no xpub and are restricted to the
// read-only allow-list.
func Auth(tokens *auth.TokenService, cosigners CosignerLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractBearerToken(r)
			if !ok {
				writeUnauthorized(w)
				return
			}

			claims, err := tokens.Verify(tokenString)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			var user *User
			switch {
			case claims.Role == auth.RoleCosigner && claims.Xpub != "":
				idx, known := cosigners.CosignerByXpub(claims.Xpub)
				if !known {
					writeUnauthorized(w)
					return
				}
				user = &User{Cosigner: &Cosigner{Xpub: claims.Xpub, Idx: idx}}
				logger.Info("authenticated cosigner",
					"idx", idx, "xpub", claims.Xpub, "path", r.URL.Path)
			case claims.Role == auth.RoleWatchOnly && claims.Xpub == "":
				user = &User{}
				logger.Info("authenticated watch-only user", "path", r.URL.Path)
			default:
				writeUnauthorized(w)
				return
			}

			if user.Cosigner == nil {
				if _, allowed := watchOnlyAllowedRoutes[r.URL.Path]; !allowed {
					logger.Warn("watch-only user attempted to access forbidden path",
						"path", r.URL.Path)
					writeForbidden(w)
					return
				}
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type authErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
	Name  string `json:"name"`
}

func writeAuthError(w http.ResponseWriter, code int, msg, name string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(authErrorResponse{Error: msg, Code: code, Name: name})
}

func writeUnauthorized(w http.ResponseWriter) {
	writeAuthError(w, http.StatusUnauthorized,
		"Missing or invalid credentials", "Unauthorized")
}

func writeForbidden(w http.ResponseWriter) {
	writeAuthError(w, http.StatusForbidden,
		"You don't have access to this resource", "Forbidden")
}
