package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/linkup/messenger/internal/models"
)

// Claims carried by an access token. Subject is the user's email, the stable
// identifier used for identity lookups.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Provider mints and verifies HMAC-signed bearer tokens. It holds no mutable
// state and is safe for concurrent use.
type Provider struct {
	secret []byte
	ttl    time.Duration
}

func NewProvider(secret string, ttl time.Duration) *Provider {
	return &Provider{secret: []byte(secret), ttl: ttl}
}

func (p *Provider) Generate(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		Name: user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(p.secret)
}

// Validate checks signature and expiry. It reports false for every failure
// class (malformed token, wrong signature, expired, empty subject) and never
// returns an error; callers only branch on the boolean.
func (p *Provider) Validate(tokenString string) (*Claims, bool) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return nil, false
	}
	if claims.Subject == "" {
		return nil, false
	}
	return claims, true
}
