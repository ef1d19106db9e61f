package admin

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type Claims struct {
	// EditorID is recorded in the audit trail of every change made with this token.
	EditorID int64 `json:"editor_id"`
	jwt.RegisteredClaims
}

// Auth guards the panel with a single shared password. Only its bcrypt hash is kept in memory.
type Auth struct {
	secret       []byte
	passwordHash []byte
	ttl          time.Duration
}

func NewAuth(password, secret string, ttl time.Duration) (*Auth, error) {
	if password == "" {
		return nil, errors.New("ADMIN_PASSWORD not set")
	}
	if secret == "" {
		return nil, errors.New("JWT_SECRET not set")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Auth{secret: []byte(secret), passwordHash: hash, ttl: ttl}, nil
}

func (a *Auth) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil
}

func (a *Auth) GenerateToken(editorID int64) (string, error) {
	now := time.Now()
	claims := Claims{
		EditorID: editorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *Auth) ParseToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func TokenFromRequest(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}
	return parts[1], true
}

type contextKey string

const editorIDKey contextKey = "editorID"

func WithEditorID(ctx context.Context, editorID int64) context.Context {
	return context.WithValue(ctx, editorIDKey, editorID)
}

func EditorIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(editorIDKey).(int64)
	return id
}
