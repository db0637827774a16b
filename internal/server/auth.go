package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// identity is the authenticated candidate principal. The engine trusts
// the email as given — the identity provider that issued the token is out
// of scope here.
type identity struct {
	Email string
}

var errNoIdentity = errors.New("no valid identity token")

// identityFromToken verifies an HS256 identity token and extracts the
// email claim.
func identityFromToken(tokenString string, secret []byte) (identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return identity{}, fmt.Errorf("%w: %v", errNoIdentity, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return identity{}, errNoIdentity
	}
	email, _ := claims["email"].(string)
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return identity{}, errNoIdentity
	}
	return identity{Email: email}, nil
}

func bearerToken(header string) (string, bool) {
	return strings.CutPrefix(header, "Bearer ")
}
