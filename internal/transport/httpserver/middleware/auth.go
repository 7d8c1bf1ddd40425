package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"quest-scheduler-go/internal/config"
	"quest-scheduler-go/pkg/logger"
)

// JWTAuth verifies HS256 bearer tokens. The user id is the "sub" claim.
type JWTAuth struct {
	secret   []byte
	issuer   string
	skipAuth bool
	mockUser User
	log      logger.Logger
}

type contextKey int

const (
	userIDKey contextKey = iota
	userKey
)

type User struct {
	ID string
}

var errMissingSubject = errors.New("token has no subject")

func NewJWTAuth(cfg config.AuthConfig, log logger.Logger) *JWTAuth {
	return &JWTAuth{
		secret:   []byte(cfg.JWTSecret),
		issuer:   strings.TrimSpace(cfg.Issuer),
		skipAuth: cfg.SkipAuth,
		mockUser: User{ID: strings.TrimSpace(cfg.MockUserID)},
		log:      log,
	}
}

// Middleware rejects requests without a valid token.
func (a *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.skipAuth {
			if a.mockUser.ID == "" {
				writeError(w, http.StatusInternalServerError, "auth_not_configured", "auth mock user id not configured")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), a.mockUser)))
			return
		}

		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			unauthorized(w)
			return
		}
		user, err := a.verify(token)
		if err != nil {
			a.log.BusinessError("auth: token rejected", err, "path", r.URL.Path)
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// Optional attaches the user when a valid token is present and lets
// anonymous requests through. A malformed or expired token is still rejected.
func (a *JWTAuth) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.skipAuth {
			if a.mockUser.ID != "" {
				r = r.WithContext(WithUser(r.Context(), a.mockUser))
			}
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := bearerToken(header)
		if !ok {
			unauthorized(w)
			return
		}
		user, err := a.verify(token)
		if err != nil {
			a.log.BusinessError("auth: optional token rejected", err, "path", r.URL.Path)
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func (a *JWTAuth) verify(raw string) (User, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims jwt.RegisteredClaims
	if _, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...); err != nil {
		return User{}, err
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return User{}, errMissingSubject
	}
	return User{ID: subject}, nil
}

func bearerToken(value string) (string, bool) {
	parts := strings.Fields(value)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
}

func WithUser(ctx context.Context, user User) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, userIDKey, user.ID)
}

func UserFromContext(ctx context.Context) (User, bool) {
	value := ctx.Value(userKey)
	user, ok := value.(User)
	if !ok || user.ID == "" {
		return User{}, false
	}
	return user, true
}

// UserIDFromContext returns "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
