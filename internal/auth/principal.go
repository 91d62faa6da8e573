package auth

import (
	"slices"

	"mfg-erp-backend/internal/models"
)

// Principal is the authorization context handed to every domain operation.
type Principal struct {
	UserID      uint
	Name        string
	IsSuper     bool
	Permissions []models.Permission
}

func (p Principal) Has(perm models.Permission) bool {
	return slices.Contains(p.Permissions, perm)
}

// CanApprove reports whether p may set a BOM's approved flag.
func (p Principal) CanApprove() bool {
	return p.IsSuper || p.Has(models.PermissionApproval)
}

func (p Principal) CanManageInventory() bool {
	return p.IsSuper || p.Has(models.PermissionInventory)
}

// PrincipalForUser builds the context from a user row with its role preloaded.
func PrincipalForUser(u *models.User) Principal {
	p := Principal{
		UserID:  u.ID,
		Name:    u.Name,
		IsSuper: u.IsSuper,
	}
	if u.Role != nil {
		p.Permissions = append(p.Permissions, u.Role.Permissions...)
	}
	return p
}
