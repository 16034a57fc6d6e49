package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/koekemoer93/kart-force-sub000/pkg/enums"
)

// SupplyRequest is a requester's cart of desired items moving through
// pending -> approved -> dispatched (or back to pending on unapprove,
// or pending -> cancelled).
type SupplyRequest struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	TrackID     uuid.UUID           `gorm:"column:track_id;type:uuid;not null;index"`
	Status      enums.RequestStatus `gorm:"column:status;type:request_status;not null"`
	Note        string              `gorm:"column:note"`
	RequestedBy uuid.UUID           `gorm:"column:requested_by;type:uuid;not null"`

	// ReservedItems is the line snapshot locked in at approval time; it is
	// populated iff Status is approved or dispatched.
	ReservedItems json.RawMessage `gorm:"column:reserved_items;type:jsonb"`

	ApprovedAt   *time.Time `gorm:"column:approved_at"`
	ApprovedBy   *uuid.UUID `gorm:"column:approved_by;type:uuid"`
	DispatchedAt *time.Time `gorm:"column:dispatched_at"`
	DispatchedBy *uuid.UUID `gorm:"column:dispatched_by;type:uuid"`
	CancelledAt  *time.Time `gorm:"column:cancelled_at"`
	CancelledBy  *uuid.UUID `gorm:"column:cancelled_by;type:uuid"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Lines []SupplyRequestLine `gorm:"foreignKey:RequestID"`
}

// SupplyRequestLine is one requested item+quantity pair. ItemID is the
// canonical inventory item id, resolved once at request creation.
type SupplyRequestLine struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	RequestID uuid.UUID `gorm:"column:request_id;type:uuid;not null;index"`
	Position  int       `gorm:"column:position;not null"`
	ItemID    uuid.UUID `gorm:"column:item_id;type:uuid;not null"`
	Name      string    `gorm:"column:name;not null"`
	Unit      string    `gorm:"column:unit"`
	Qty       int       `gorm:"column:qty;not null"`
}

// ReservedLine is the persisted shape of one snapshot entry inside
// SupplyRequest.ReservedItems.
type ReservedLine struct {
	ItemID uuid.UUID `json:"item_id"`
	Name   string    `json:"name"`
	Unit   string    `json:"unit"`
	Qty    int       `json:"qty"`
}

// DecodeReservedItems unmarshals the snapshot column, returning nil when empty.
func (r SupplyRequest) DecodeReservedItems() ([]ReservedLine, error) {
	if len(r.ReservedItems) == 0 {
		return nil, nil
	}
	var lines []ReservedLine
	if err := json.Unmarshal(r.ReservedItems, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// EncodeReservedItems marshals a snapshot for persistence.
func EncodeReservedItems(lines []ReservedLine) (json.RawMessage, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	return json.Marshal(lines)
}
