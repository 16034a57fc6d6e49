package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/koekemoer93/kart-force-sub000/pkg/db/models"
)

// ItemDTO is the inventory item payload returned to clients.
type ItemDTO struct {
	ID           uuid.UUID       `json:"id"`
	TrackID      uuid.UUID       `json:"track_id"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	Category     string          `json:"category,omitempty"`
	Qty          int             `json:"qty"`
	ReservedQty  int             `json:"reserved_qty"`
	AvailableQty int             `json:"available_qty"`
	MinQty       int             `json:"min_qty"`
	MaxQty       int             `json:"max_qty"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	StockValue   decimal.Decimal `json:"stock_value"`
	LowStock     bool            `json:"low_stock"`
	OverStock    bool            `json:"over_stock"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// MovementDTO is one immutable ledger entry.
type MovementDTO struct {
	ID        uuid.UUID `json:"id"`
	ItemID    uuid.UUID `json:"item_id"`
	Type      string    `json:"type"`
	Qty       int       `json:"qty"`
	Reason    string    `json:"reason,omitempty"`
	ActorID   uuid.UUID `json:"actor_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemListResult pairs a page of items with the cursor for the next one.
type ItemListResult struct {
	Items      []ItemDTO `json:"items"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// MovementListResult pairs a page of movements with the cursor for the next one.
type MovementListResult struct {
	Movements  []MovementDTO `json:"movements"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// NewItemDTO builds a DTO from the persisted model.
func NewItemDTO(item *models.InventoryItem) *ItemDTO {
	return &ItemDTO{
		ID:           item.ID,
		TrackID:      item.TrackID,
		Name:         item.Name,
		Unit:         item.Unit,
		Category:     item.Category,
		Qty:          item.Qty,
		ReservedQty:  item.ReservedQty,
		AvailableQty: item.AvailableQty(),
		MinQty:       item.MinQty,
		MaxQty:       item.MaxQty,
		UnitCost:     item.UnitCost,
		StockValue:   item.StockValue(),
		LowStock:     item.IsLowStock(),
		OverStock:    item.IsOverStock(),
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
}

// NewMovementDTO builds a DTO from the persisted ledger row.
func NewMovementDTO(movement *models.StockMovement) *MovementDTO {
	return &MovementDTO{
		ID:        movement.ID,
		ItemID:    movement.ItemID,
		Type:      string(movement.Type),
		Qty:       movement.Qty,
		Reason:    movement.Reason,
		ActorID:   movement.ActorID,
		CreatedAt: movement.CreatedAt,
	}
}
