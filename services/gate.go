package services

import (
	"context"
	"errors"

	"cashier/models"

	"gorm.io/gorm"
)

// User is the capability of an authenticated, active account. It can only be
// obtained from Gate.Authorize.
type User struct {
	id uint
}

func (u User) ProfileID() uint { return u.id }

// Admin is a User whose profile carries the administrator flag.
type Admin struct {
	User
}

type Caller struct {
	User
	admin bool
}

func (c Caller) IsAdmin() bool { return c.admin }

func (c Caller) Admin() (Admin, error) {
	if !c.admin {
		return Admin{}, forbidden("ADMIN_REQUIRED", "administrator privilege required")
	}
	return Admin{User: c.User}, nil
}

type Gate struct {
	db *gorm.DB
}

func NewGate(db *gorm.DB) *Gate {
	return &Gate{db: db}
}

// Authorize resolves a verified profile id into a Caller in a single lookup.
func (g *Gate) Authorize(ctx context.Context, profileID uint) (Caller, error) {
	if profileID == 0 {
		return Caller{}, &Error{Kind: KindUnauthorized, Code: "UNAUTHORIZED", Message: "missing caller identity"}
	}

	var p models.Profile
	err := g.db.WithContext(ctx).Select("id", "is_admin", "is_active").First(&p, profileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Caller{}, &Error{Kind: KindUnauthorized, Code: "UNKNOWN_PROFILE", Message: "profile does not exist"}
	}
	if err != nil {
		return Caller{}, dependency("load caller profile", err)
	}
	if !p.IsActive {
		return Caller{}, forbidden("PROFILE_INACTIVE", "profile is disabled")
	}
	return Caller{User: User{id: p.ID}, admin: p.IsAdmin}, nil
}
