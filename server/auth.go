package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"
)

const ownerKey = "owner"

// authenticator verifies HS256 bearer tokens and exposes their "id" claim as
// the owner of every record the request touches.
type authenticator struct {
	secret []byte
	issuer string
}

func newAuthenticator(secret, issuer string) *authenticator {
	return &authenticator{secret: []byte(secret), issuer: issuer}
}

func (a *authenticator) middleware(c fiber.Ctx) error {
	raw, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if !ok || raw == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
	}

	owner, err := a.owner(raw)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
	}
	c.Locals(ownerKey, owner)
	return c.Next()
}

func (a *authenticator) owner(raw string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return "", err
	}

	switch id := claims["id"].(type) {
	case string:
		if id != "" {
			return id, nil
		}
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("token has no id claim")
}

// sign issues a token for id.
func (a *authenticator) sign(id string) (string, error) {
	claims := jwt.MapClaims{"id": id, "sub": "User details"}
	if a.issuer != "" {
		claims["iss"] = a.issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func ownerOf(c fiber.Ctx) string {
	owner, _ := c.Locals(ownerKey).(string)
	return owner
}
