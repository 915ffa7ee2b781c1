package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a platform user
type User struct {
	gorm.Model
	Name      string `json:"name"`
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Phone     string `json:"phone"`
	IsBlocked bool   `json:"is_blocked"`
}

// Coaching is one tenant of the platform
type Coaching struct {
	gorm.Model
	Name         string `gorm:"not null" json:"name"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	Address      string `json:"address"`
}

// CoachingMember links a user to a coaching with a role. Students may have a
// parent user who manages (and pays for) them as a ward.
type CoachingMember struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CoachingID   uint      `gorm:"not null;uniqueIndex:idx_member_coaching_user" json:"coaching_id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_member_coaching_user" json:"user_id"`
	Role         Role      `gorm:"type:varchar(20);not null" json:"role"`
	ParentUserID *uint     `gorm:"index" json:"parent_user_id,omitempty"`
	User         User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsPayer reports whether userID may pay this member's fees
func (m *CoachingMember) IsPayer(userID uint) bool {
	if m.UserID == userID {
		return true
	}
	return m.ParentUserID != nil && *m.ParentUserID == userID
}

// AllModels lists every table managed by AutoMigrate
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Coaching{},
		&CoachingMember{},
		&FeeStructure{},
		&FeeAssignment{},
		&FeeRecord{},
		&FeePayment{},
		&FeeRefund{},
		&PaymentOrder{},
		&PaymentOrderRecord{},
		&PaymentSettings{},
		&PaymentGatewayEvent{},
	}
}
