package auth

import (
	"errors"
	"fmt"
	"strings"

	"mfg-erp-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	CtxUserIDKey    = "user_id"
	CtxPrincipalKey = "principal"
)

func JWTMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header missing")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header must be 'Bearer <token>'")
		}

		token, err := jwt.ParseWithClaims(parts[1], &JWTCustomClaims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return fiber.NewError(fiber.StatusUnauthorized, "Session expired, login again to continue")
			}
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}

		claims, ok := token.Claims.(*JWTCustomClaims)
		if !ok || !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxPrincipalKey, claims.Principal())

		return c.Next()
	}
}

// PrincipalFrom returns the caller's authorization context, zero value when unauthenticated.
func PrincipalFrom(c *fiber.Ctx) Principal {
	p, _ := c.Locals(CtxPrincipalKey).(Principal)
	return p
}

func RequireSuper() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !PrincipalFrom(c).IsSuper {
			return fiber.NewError(fiber.StatusUnauthorized, "Only super admins can perform this action")
		}
		return c.Next()
	}
}

// RequirePermission lets super users and holders of any listed permission through.
func RequirePermission(perms ...models.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := PrincipalFrom(c)
		if p.IsSuper {
			return c.Next()
		}
		for _, perm := range perms {
			if p.Has(perm) {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "You are not allowed to perform this action")
	}
}
