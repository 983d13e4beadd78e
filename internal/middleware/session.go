package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"bus_portal/internal/config"
)

// Session roles.
const (
	RoleDriver  = "driver"
	RoleStudent = "student"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

var ErrInvalidSession = errors.New("invalid or expired session")

// Claims carried by a session token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Sessions issues and checks "<role>-session-<jwt>" bearer tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessions(cfg config.SessionConfig) *Sessions {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{secret: []byte(cfg.Secret), ttl: ttl, now: time.Now}
}

func prefix(role string) string { return role + "-session-" }

// Generate returns a token for subject and its expiry.
func (s *Sessions) Generate(subject, role string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return prefix(role) + signed, exp, nil
}

// Validate parses a token produced by Generate.
func (s *Sessions) Validate(token string) (*Claims, error) {
	i := strings.Index(token, "-session-")
	if i <= 0 {
		return nil, ErrInvalidSession
	}
	role, raw := token[:i], token[i+len("-session-"):]

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}
	if claims.Role != role || claims.Subject == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// RequireSession ensures a valid bearer session for role is present.
func (s *Sessions) RequireSession(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		claims, err := s.Validate(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		if claims.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}

		c.Set(ctxUserID, claims.Subject)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

// UserID returns the authenticated subject set by RequireSession.
func UserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
