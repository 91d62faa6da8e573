package auth

import (
	"time"

	"mfg-erp-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

type JWTCustomClaims struct {
	UserID      uint                `json:"user_id"`
	Email       string              `json:"email"`
	Name        string              `json:"name"`
	IsSuper     bool                `json:"is_super"`
	Permissions []models.Permission `json:"permissions"`
	jwt.RegisteredClaims
}

func (c *JWTCustomClaims) Principal() Principal {
	return Principal{
		UserID:      c.UserID,
		Name:        c.Name,
		IsSuper:     c.IsSuper,
		Permissions: c.Permissions,
	}
}

// GenerateToken signs a 24h token. user.Role must be preloaded for permissions to be carried.
func GenerateToken(secret string, user *models.User) (string, error) {
	p := PrincipalForUser(user)
	claims := &JWTCustomClaims{
		UserID:      user.ID,
		Email:       user.Email,
		Name:        user.Name,
		IsSuper:     user.IsSuper,
		Permissions: p.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
