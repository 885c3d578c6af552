package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
)

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

type Config struct {
	Secret string        `yaml:"secret" envconfig:"JWT_SECRET" default:"catalog-dev-secret"`
	TTL    time.Duration `yaml:"ttl" envconfig:"JWT_TTL" default:"24h"`
}

// Claims is the token payload: a user profile plus registered claims.
type Claims struct {
	Profile struct {
		UserID   int    `json:"userId"`
		Username string `json:"username"`
		Role     string `json:"role"`
	} `json:"profile"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller as seen by handlers and services.
type Identity struct {
	UserID   int
	Username string
	Role     string
	Email    string
}

func (id Identity) IsTeacher() bool {
	return id.Role == RoleTeacher
}

type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(cfg Config) *Manager {
	return &Manager{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
	}
}

// IssueToken signs an HS256 token for the given user profile.
func (m *Manager) IssueToken(userID int, username, role, email string) (string, time.Time, error) {
	expiresAt := time.Now().Add(m.ttl)
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	claims.Profile.UserID = userID
	claims.Profile.Username = username
	claims.Profile.Role = role

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates the signature and expiry of a token string.
func (m *Manager) ParseToken(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Time) {
		return nil, errors.New("token expired")
	}
	return claims, nil
}

type contextKey int

const identityKey contextKey = iota + 1

func SetAuthContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller set by the JWT middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
