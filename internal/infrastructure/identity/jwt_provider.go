// Package identity adapts the external session/auth service. Tokens are
// issued elsewhere; this side only verifies them and reports who is
// currently authenticated.
package identity

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/famlio/budget-api/internal/core/domain"
)

// JWTProvider resolves HS256 session tokens issued by the external identity
// provider into users.
type JWTProvider struct {
	secret []byte
}

func NewJWTProvider(secret string) *JWTProvider {
	return &JWTProvider{secret: []byte(secret)}
}

// CurrentUser verifies the token and extracts the user. An absent, expired
// or otherwise invalid token yields (nil, nil): not being logged in is a
// normal state, not an error.
func (p *JWTProvider) CurrentUser(_ context.Context, sessionToken string) (*domain.User, error) {
	sessionToken = strings.TrimSpace(sessionToken)
	if sessionToken == "" {
		return nil, nil
	}

	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(sessionToken, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return p.secret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, nil
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, nil
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)

	return &domain.User{
		ID:          sub,
		Email:       email,
		DisplayName: name,
	}, nil
}
