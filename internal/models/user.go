package models

import "time"

type Permission string

const (
	PermissionApproval   Permission = "approval"
	PermissionInventory  Permission = "inventory"
	PermissionProduction Permission = "production"
	PermissionBOM        Permission = "bom"
	PermissionSales      Permission = "sales"
)

func (p Permission) Valid() bool {
	switch p {
	case PermissionApproval, PermissionInventory, PermissionProduction, PermissionBOM, PermissionSales:
		return true
	}
	return false
}

type Role struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Permissions []Permission `gorm:"serializer:json;type:text" json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type User struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"size:100;not null"`
	Email        string `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	IsSuper      bool   `gorm:"not null;default:false"`
	RoleID       *uint
	Role         *Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
