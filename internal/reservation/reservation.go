// Package reservation holds the transactional stock reservation engine.
// All functions run inside a caller-provided transaction and either apply
// every line or none; a returned error is the caller's signal to roll back.
package reservation

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/koekemoer93/kart-force-sub000/pkg/db/models"
	"github.com/koekemoer93/kart-force-sub000/pkg/enums"
	pkgerrors "github.com/koekemoer93/kart-force-sub000/pkg/errors"
)

// Reserve earmarks stock for every line and returns the authoritative
// snapshot (name and unit re-read from the locked rows). Lines are checked
// in order against availability so the first failing line is the one
// reported.
func Reserve(ctx context.Context, tx *gorm.DB, lines []models.ReservedLine) ([]models.ReservedLine, error) {
	if err := validateLines(lines); err != nil {
		return nil, err
	}

	items, err := lockItems(ctx, tx, lineItemIDs(lines))
	if err != nil {
		return nil, err
	}

	// Aggregate per item as we walk lines so duplicate lines for the same
	// item are checked against what earlier lines already claimed.
	claimed := map[uuid.UUID]int{}
	snapshot := make([]models.ReservedLine, 0, len(lines))
	for _, line := range lines {
		item, ok := items[line.ItemID]
		if !ok {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "inventory item %s not found", line.ItemID)
		}
		available := item.AvailableQty() - claimed[line.ItemID]
		if available < line.Qty {
			return nil, InsufficientStock(item.Name, item.Unit, line.Qty, available)
		}
		claimed[line.ItemID] += line.Qty
		snapshot = append(snapshot, models.ReservedLine{
			ItemID: item.ID,
			Name:   item.Name,
			Unit:   item.Unit,
			Qty:    line.Qty,
		})
	}

	for id, qty := range claimed {
		if err := adjustStock(ctx, tx, id, 0, qty); err != nil {
			return nil, err
		}
	}
	return snapshot, nil
}

// Release returns previously reserved stock to the available pool. The
// snapshot must be the one written at approval time; a release that would
// push reservedQty negative means the books are already wrong and surfaces
// as an internal fault.
func Release(ctx context.Context, tx *gorm.DB, lines []models.ReservedLine) error {
	if err := validateLines(lines); err != nil {
		return err
	}

	items, err := lockItems(ctx, tx, lineItemIDs(lines))
	if err != nil {
		return err
	}

	totals := lineTotals(lines)
	for _, id := range sortedIDs(totals) {
		item, ok := items[id]
		if !ok {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "inventory item %s not found", id)
		}
		if item.ReservedQty < totals[id] {
			return pkgerrors.Newf(pkgerrors.CodeStockUnderflow,
				"%s: release of %d exceeds reserved %d", item.Name, totals[id], item.ReservedQty)
		}
		if err := adjustStock(ctx, tx, id, 0, -totals[id]); err != nil {
			return err
		}
	}
	return nil
}

// Commit converts a reservation into an actual stock decrement and appends
// one issue movement per line. Both qty and reservedQty drop together so
// availability for other requests is unchanged by a dispatch.
func Commit(ctx context.Context, tx *gorm.DB, lines []models.ReservedLine, actorID uuid.UUID) error {
	if err := validateLines(lines); err != nil {
		return err
	}
	if actorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}

	items, err := lockItems(ctx, tx, lineItemIDs(lines))
	if err != nil {
		return err
	}

	totals := lineTotals(lines)
	for _, id := range sortedIDs(totals) {
		item, ok := items[id]
		if !ok {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "inventory item %s not found", id)
		}
		if item.ReservedQty < totals[id] || item.Qty < totals[id] {
			return pkgerrors.Newf(pkgerrors.CodeStockUnderflow,
				"%s: dispatch of %d exceeds reserved %d (on hand %d)",
				item.Name, totals[id], item.ReservedQty, item.Qty)
		}
		if err := adjustStock(ctx, tx, id, -totals[id], -totals[id]); err != nil {
			return err
		}
	}

	for _, line := range lines {
		movement := models.StockMovement{
			ID:      uuid.New(),
			ItemID:  line.ItemID,
			Type:    enums.MovementTypeIssue,
			Qty:     line.Qty,
			Reason:  "supply request dispatch",
			ActorID: actorID,
		}
		if err := tx.WithContext(ctx).Create(&movement).Error; err != nil {
			return err
		}
	}
	return nil
}

func validateLines(lines []models.ReservedLine) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}
	for _, line := range lines {
		if line.ItemID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "line item id is required")
		}
		if line.Qty <= 0 {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "line qty must be positive, got %d", line.Qty)
		}
	}
	return nil
}

// lockItems loads every referenced item under a row lock, ordered by id so
// concurrent transactions acquire locks in the same sequence.
func lockItems(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]*models.InventoryItem, error) {
	query := tx.WithContext(ctx).Order("id ASC").Where("id IN ?", ids)
	// sqlite serializes writers on its own and rejects FOR UPDATE
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var rows []models.InventoryItem
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make(map[uuid.UUID]*models.InventoryItem, len(rows))
	for i := range rows {
		items[rows[i].ID] = &rows[i]
	}
	return items, nil
}

func adjustStock(ctx context.Context, tx *gorm.DB, id uuid.UUID, qtyDelta, reservedDelta int) error {
	updates := map[string]any{}
	if qtyDelta != 0 {
		updates["qty"] = gorm.Expr("qty + ?", qtyDelta)
	}
	if reservedDelta != 0 {
		updates["reserved_qty"] = gorm.Expr("reserved_qty + ?", reservedDelta)
	}
	if len(updates) == 0 {
		return nil
	}
	return tx.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func lineItemIDs(lines []models.ReservedLine) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if !seen[line.ItemID] {
			seen[line.ItemID] = true
			ids = append(ids, line.ItemID)
		}
	}
	return ids
}

func lineTotals(lines []models.ReservedLine) map[uuid.UUID]int {
	totals := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		totals[line.ItemID] += line.Qty
	}
	return totals
}

func sortedIDs(totals map[uuid.UUID]int) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// InsufficientStock builds the canonical shortage error shown to clients.
// The unit is included when the item has one.
func InsufficientStock(name, unit string, need, available int) *pkgerrors.Error {
	if unit != "" {
		return pkgerrors.Newf(pkgerrors.CodeInsufficientStock,
			"%s: need %d %s, only %d available", name, need, unit, available)
	}
	return pkgerrors.Newf(pkgerrors.CodeInsufficientStock,
		"%s: need %d, only %d available", name, need, available)
}
