package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryItem is the authoritative stock record for one catalog item.
// Qty is on-hand stock; ReservedQty is the slice of Qty earmarked for
// approved-but-undispatched supply requests. Available stock is always
// Qty - ReservedQty, and every mutation of the pair goes through the
// reservation engine so 0 <= ReservedQty <= Qty holds at all times.
type InventoryItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TrackID     uuid.UUID       `gorm:"column:track_id;type:uuid;not null;index"`
	Name        string          `gorm:"column:name;not null"`
	Unit        string          `gorm:"column:unit;not null"`
	Category    string          `gorm:"column:category"`
	Qty         int             `gorm:"column:qty;not null;default:0"`
	ReservedQty int             `gorm:"column:reserved_qty;not null;default:0"`
	MinQty      int             `gorm:"column:min_qty;not null;default:0"`
	MaxQty      int             `gorm:"column:max_qty;not null;default:0"`
	UnitCost    decimal.Decimal `gorm:"column:unit_cost;type:numeric(12,2);not null;default:0"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// AvailableQty returns the stock that can still be newly reserved.
func (i InventoryItem) AvailableQty() int {
	return i.Qty - i.ReservedQty
}

// IsLowStock reports whether on-hand stock sits at or below the advisory minimum.
func (i InventoryItem) IsLowStock() bool {
	return i.MinQty > 0 && i.Qty <= i.MinQty
}

// IsOverStock reports whether on-hand stock exceeds the advisory maximum.
func (i InventoryItem) IsOverStock() bool {
	return i.MaxQty > 0 && i.Qty > i.MaxQty
}

// StockValue returns the on-hand valuation at the recorded unit cost.
func (i InventoryItem) StockValue() decimal.Decimal {
	return i.UnitCost.Mul(decimal.NewFromInt(int64(i.Qty)))
}
