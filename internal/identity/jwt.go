package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/talentflow/internal/config"
)

var ErrSecretNotConfigured = errors.New("jwt secret not configured")

// Verifier checks HS256 tokens carrying sub and role claims.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(cfg config.Config) (*Verifier, error) {
	secret := strings.TrimSpace(cfg.AuthJWTSecret)
	if secret == "" {
		if cfg.IsProduction() {
			return nil, ErrSecretNotConfigured
		}
		secret = "talentflow-dev-secret"
	}
	return &Verifier{secret: []byte(secret), issuer: strings.TrimSpace(cfg.AuthJWTIssuer)}, nil
}

func (v *Verifier) Verify(raw string) (Actor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Actor{}, ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return Actor{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Actor{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	roleClaim, _ := claims["role"].(string)
	role, err := ParseRole(roleClaim)
	if err != nil || strings.TrimSpace(sub) == "" {
		return Actor{}, ErrInvalidToken
	}
	return Actor{ID: strings.TrimSpace(sub), Role: role}, nil
}

// Sign issues a token for the actor. Used by tests and local tooling; the
// portal's login service issues production tokens.
func (v *Verifier) Sign(actor Actor, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  actor.ID,
		"role": string(actor.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	if v.issuer != "" {
		claims["iss"] = v.issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
