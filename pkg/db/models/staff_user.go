package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/koekemoer93/kart-force-sub000/pkg/enums"
)

// StaffUser is an account that can authenticate against the API. Role
// decides whether the account may approve, unapprove, or dispatch
// supply requests.
type StaffUser struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TrackID      uuid.UUID       `gorm:"column:track_id;type:uuid;not null;index"`
	Email        string          `gorm:"column:email;not null;uniqueIndex"`
	Name         string          `gorm:"column:name;not null"`
	Role         enums.StaffRole `gorm:"column:role;type:staff_role;not null"`
	PasswordHash string          `gorm:"column:password_hash;not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
