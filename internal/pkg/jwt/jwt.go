// Package jwt verifies the bearer tokens issued by the external identity provider.
// Tokens are never issued here.
package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/employee"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrWrongType    = errors.New("token is not an access token")
)

const TokenTypeAccess = "access"

// Claims are the fields the identity provider puts into an access token.
type Claims struct {
	ActorID    string
	EmployeeID string
	Role       employee.Role
	Type       string
}

type Service interface {
	JWTAuth() *jwtauth.JWTAuth
	// Verify parses and validates a raw token string.
	Verify(tokenString string) (Claims, error)
}

type JWTService struct {
	tokenAuth *jwtauth.JWTAuth
}

func NewJWTService(secretKey string) Service {
	return &JWTService{
		tokenAuth: jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func (j *JWTService) Verify(tokenString string) (Claims, error) {
	token, err := jwtauth.VerifyToken(j.tokenAuth, tokenString)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	claims, err := token.AsMap(context.Background())
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	return ParseClaims(claims)
}

// ParseClaims reads Claims from a decoded claim map. The actor falls back to the
// employee when the provider sends only employee_id.
func ParseClaims(m map[string]interface{}) (Claims, error) {
	var c Claims
	c.Type, _ = m["type"].(string)
	if c.Type != TokenTypeAccess {
		return Claims{}, ErrWrongType
	}

	c.ActorID, _ = m["actor_id"].(string)
	c.EmployeeID, _ = m["employee_id"].(string)
	if c.ActorID == "" {
		c.ActorID = c.EmployeeID
	}
	if c.ActorID == "" {
		return Claims{}, ErrInvalidToken
	}

	role, _ := m["role"].(string)
	c.Role = employee.Role(role)

	return c, nil
}

// ClaimsFromContext returns the claims of the token the jwtauth Verifier stored in ctx.
func ClaimsFromContext(ctx context.Context) (Claims, error) {
	token, claims, err := jwtauth.FromContext(ctx)
	if err != nil || token == nil {
		return Claims{}, ErrInvalidToken
	}
	return ParseClaims(claims)
}
