package auth

import (
	"fmt"
	"net/http"
	"strings"

	"school-results-db/internal/config"
	"school-results-db/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is the caller identity carried by a verified token.
type Principal struct {
	Subject string
	Email   string
	Roles   []string
}

// Uploader is the name recorded on upload history entries.
func (p Principal) Uploader() string {
	if p.Email != "" {
		return p.Email
	}
	return p.Subject
}

func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Verifier checks HS256 tokens issued by the school's login service.
type Verifier struct {
	secret     []byte
	cookieName string
	adminRole  string
}

func NewVerifier(cfg config.AuthConfig) *Verifier {
	return &Verifier{
		secret:     []byte(cfg.JWTSecret),
		cookieName: cfg.CookieName,
		adminRole:  cfg.AdminRole,
	}
}

// TokenFromRequest reads the auth cookie, falling back to a bearer header.
func (v *Verifier) TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(v.cookieName); err == nil && c.Value != "" {
		return c.Value
	}

	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}

func (v *Verifier) Verify(tokenStr string) (*Principal, error) {
	if tokenStr == "" {
		return nil, fmt.Errorf("%w: token not provided", errors.ErrUnauthorized)
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid or expired token", errors.ErrUnauthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: invalid token claims", errors.ErrUnauthorized)
	}

	p := &Principal{}
	p.Subject, _ = claims.GetSubject()
	p.Email, _ = claims["email"].(string)
	if role, ok := claims["role"].(string); ok && role != "" {
		p.Roles = append(p.Roles, role)
	}
	if roles, ok := claims["roles"].([]interface{}); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				p.Roles = append(p.Roles, s)
			}
		}
	}
	return p, nil
}

// VerifyAdmin accepts only principals holding the configured admin role.
func (v *Verifier) VerifyAdmin(r *http.Request) (*Principal, error) {
	p, err := v.Verify(v.TokenFromRequest(r))
	if err != nil {
		return nil, err
	}
	if !p.HasRole(v.adminRole) {
		return nil, fmt.Errorf("%w: admin role required", errors.ErrUnauthorized)
	}
	return p, nil
}
