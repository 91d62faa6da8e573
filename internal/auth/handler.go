package auth

import (
	"strings"

	"mfg-erp-backend/internal/apperr"
	"mfg-erp-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterSuperAdminRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type CreateRoleRequest struct {
	Name        string              `json:"name" validate:"required,max=100"`
	Permissions []models.Permission `json:"permissions"`
}

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	RoleID   *uint  `json:"role_id"`
}

type UserResponse struct {
	ID          uint                `json:"id"`
	Name        string              `json:"name"`
	Email       string              `json:"email"`
	IsSuper     bool                `json:"isSuper"`
	RoleID      *uint               `json:"role_id"`
	Permissions []models.Permission `json:"permissions"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		IsSuper:     u.IsSuper,
		RoleID:      u.RoleID,
		Permissions: PrincipalForUser(u).Permissions,
	}
}

// POST /api/auth/register-super-admin
func RegisterSuperAdminHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterSuperAdminRequest
		if err := apperr.ParseBody(c, &body); err != nil {
			return err
		}
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var count int64
		if err := db.Model(&models.User{}).Where("is_super = ?", true).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "A super admin already exists")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not hash password")
		}

		user := models.User{
			Name:         strings.TrimSpace(body.Name),
			Email:        body.Email,
			PasswordHash: string(hash),
			IsSuper:      true,
		}
		if err := db.Create(&user).Error; err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(toUserResponse(&user))
	}
}

// POST /api/auth/login
func LoginHandler(secret string, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := apperr.ParseBody(c, &body); err != nil {
			return err
		}
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var user models.User
		if err := db.Preload("Role").Where("email = ?", body.Email).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Wrong email or password")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Wrong email or password")
		}

		token, err := GenerateToken(secret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create token")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user":  toUserResponse(&user),
		})
	}
}

// GET /api/auth/me
func MeHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := PrincipalFrom(c)

		var user models.User
		if err := db.Preload("Role").First(&user, p.UserID).Error; err != nil {
			return apperr.NotFoundOr(err, "User not found")
		}
		return c.JSON(toUserResponse(&user))
	}
}

// POST /api/admin/roles
func CreateRoleHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateRoleRequest
		if err := apperr.ParseBody(c, &body); err != nil {
			return err
		}
		for _, perm := range body.Permissions {
			if !perm.Valid() {
				return apperr.Validation("Unknown permission %q", perm)
			}
		}

		role := models.Role{
			Name:        strings.TrimSpace(body.Name),
			Permissions: body.Permissions,
		}
		if err := db.Create(&role).Error; err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(role)
	}
}

// POST /api/admin/users
func CreateUserHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := apperr.ParseBody(c, &body); err != nil {
			return err
		}

		if body.RoleID != nil {
			var role models.Role
			if err := db.First(&role, *body.RoleID).Error; err != nil {
				return apperr.NotFoundOr(err, "Role not found")
			}
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not hash password")
		}

		user := models.User{
			Name:         strings.TrimSpace(body.Name),
			Email:        strings.TrimSpace(strings.ToLower(body.Email)),
			PasswordHash: string(hash),
			RoleID:       body.RoleID,
		}
		if err := db.Create(&user).Error; err != nil {
			return err
		}
		if err := db.Preload("Role").First(&user, user.ID).Error; err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toUserResponse(&user))
	}
}
