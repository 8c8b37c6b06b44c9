package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
)

// Validator превращает bearer-токен в стабильный идентификатор пользователя.
type Validator interface {
	Validate(ctx context.Context, token string) (userID string, err error)
}

type ValidatorFunc func(ctx context.Context, token string) (string, error)

func (f ValidatorFunc) Validate(ctx context.Context, token string) (string, error) {
	return f(ctx, token)
}

// Claims: sub, а если его нет, то id (так выпускает токены основной API).
type Claims struct {
	jwt.StandardClaims
	UserID any `json:"id,omitempty"`
}

// Valid отключает встроенную проверку времени: exp/nbf проверяем сами с учётом clockSkew.
func (c *Claims) Valid() error { return nil }

type JWTConfig struct {
	Alg       string // HS256 | RS256
	Secret    []byte
	PublicKey *rsa.PublicKey
	Issuer    string // пусто = не проверяем
	Audience  string // пусто = не проверяем
	ClockSkew time.Duration
}

type JWTValidator struct {
	method    jwt.SigningMethod
	key       any
	issuer    string
	audience  string
	clockSkew time.Duration
	now       func() time.Time
}

func NewJWTValidator(cfg JWTConfig, now func() time.Time) (*JWTValidator, error) {
	if now == nil {
		now = time.Now
	}
	v := &JWTValidator{
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		clockSkew: cfg.ClockSkew,
		now:       now,
	}

	switch strings.ToUpper(cfg.Alg) {
	case "", "HS256":
		if len(cfg.Secret) == 0 {
			return nil, errors.New("jwt: HS256 requires a secret")
		}
		v.method, v.key = jwt.SigningMethodHS256, cfg.Secret
	case "RS256":
		if cfg.PublicKey == nil {
			return nil, errors.New("jwt: RS256 requires a public key")
		}
		v.method, v.key = jwt.SigningMethodRS256, cfg.PublicKey
	default:
		return nil, fmt.Errorf("jwt: unsupported alg %q", cfg.Alg)
	}

	return v, nil
}

func (v *JWTValidator) Validate(_ context.Context, tokenStr string) (string, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return "", ErrMissingToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != v.method.Alg() {
			return nil, ErrInvalidToken
		}
		return v.key, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return "", ErrInvalidIssuer
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return "", ErrInvalidAudience
	}

	now := v.now()
	if claims.ExpiresAt != 0 && now.After(time.Unix(claims.ExpiresAt, 0).Add(v.clockSkew)) {
		return "", ErrTokenExpired
	}
	if claims.NotBefore != 0 && now.Before(time.Unix(claims.NotBefore, 0).Add(-v.clockSkew)) {
		return "", ErrTokenExpired
	}

	return SubjectAsUserID(claims)
}

// SubjectAsUserID достаёт идентификатор пользователя: sub, иначе id.
func SubjectAsUserID(claims *Claims) (string, error) {
	if claims == nil {
		return "", ErrInvalidSubject
	}
	if sub := strings.TrimSpace(claims.Subject); sub != "" {
		return sub, nil
	}

	switch id := claims.UserID.(type) {
	case string:
		if id = strings.TrimSpace(id); id != "" {
			return id, nil
		}
	case float64:
		// JSON-числа приходят как float64; id пользователя: целое
		if id == float64(int64(id)) {
			return strconv.FormatInt(int64(id), 10), nil
		}
	}

	return "", ErrInvalidSubject
}

func LoadRSAPublicKeyFromPEM(path string) (*rsa.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return jwt.ParseRSAPublicKeyFromPEM(b)
}

var _ Validator = (*JWTValidator)(nil)
