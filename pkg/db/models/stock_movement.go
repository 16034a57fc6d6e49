package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/koekemoer93/kart-force-sub000/pkg/enums"
)

// StockMovement records an immutable stock change for one item. Qty is
// always stored positive; Type carries the direction. Rows are only ever
// appended, never updated or deleted.
type StockMovement struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	ItemID    uuid.UUID          `gorm:"column:item_id;type:uuid;not null;index"`
	Type      enums.MovementType `gorm:"column:type;type:movement_type;not null"`
	Qty       int                `gorm:"column:qty;not null"`
	Reason    string             `gorm:"column:reason"`
	ActorID   uuid.UUID          `gorm:"column:actor_id;type:uuid;not null"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
}
