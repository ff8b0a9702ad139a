package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const UserContextKey ContextKey = "user"

// User is the authenticated identity attached to a request.
type User struct {
	Subject string `json:"subject"`
	Name    string `json:"name"`
}

type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Authenticator issues and validates HS256 bearer tokens. When
// disabled, all requests pass through unauthenticated.
type Authenticator struct {
	secret  []byte
	ttl     time.Duration
	enabled bool
}

// New builds an authenticator. secret may be empty only when enabled
// is false.
func New(secret string, ttl time.Duration, enabled bool) (*Authenticator, error) {
	if enabled && secret == "" {
		return nil, errors.New("auth: enabled but secret is empty")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{secret: []byte(secret), ttl: ttl, enabled: enabled}, nil
}

// Enabled reports whether authentication is enforced.
func (a *Authenticator) Enabled() bool { return a.enabled }

// GenerateToken creates a signed token for the user.
func (a *Authenticator) GenerateToken(user User) (string, error) {
	claims := Claims{
		Name: user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   user.Subject,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ValidateToken validates and parses a token.
func (a *Authenticator) ValidateToken(tokenString string) (*User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return &User{Subject: claims.Subject, Name: claims.Name}, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// OptionalAuthMiddleware validates the bearer token when auth is
// enabled; when disabled it allows all requests through.
func (a *Authenticator) OptionalAuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.enabled {
			next.ServeHTTP(w, r)
			return
		}

		var tokenString string
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		} else if cookie, err := r.Cookie("auth_token"); err == nil {
			tokenString = cookie.Value
		}

		if tokenString == "" {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		user, err := a.ValidateToken(tokenString)
		if err != nil {
			http.Error(w, "Invalid authentication token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetUserFromContext extracts user from request context
func GetUserFromContext(r *http.Request) *User {
	if user, ok := r.Context().Value(UserContextKey).(*User); ok {
		return user
	}
	return nil
}
