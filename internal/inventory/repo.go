package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/koekemoer93/kart-force-sub000/pkg/db/models"
	"github.com/koekemoer93/kart-force-sub000/pkg/pagination"
)

// Repository manages persistence for inventory items and the movement ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.InventoryItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	FindByName(ctx context.Context, trackID uuid.UUID, name string) (*models.InventoryItem, error)
	List(ctx context.Context, input ListItemsInput) ([]models.InventoryItem, error)
	IncrementQty(ctx context.Context, id uuid.UUID, delta int) (int64, error)
	CreateMovement(ctx context.Context, movement *models.StockMovement) error
	ListMovements(ctx context.Context, itemID uuid.UUID, params pagination.Params) ([]models.StockMovement, error)
}

// ListItemsInput captures filter and pagination knobs for the item list.
type ListItemsInput struct {
	TrackID    uuid.UUID
	Category   string
	Pagination pagination.Params
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindByName(ctx context.Context, trackID uuid.UUID, name string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("track_id = ? AND lower(name) = lower(?)", trackID, name).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) List(ctx context.Context, input ListItemsInput) ([]models.InventoryItem, error) {
	query := r.db.WithContext(ctx).
		Where("track_id = ?", input.TrackID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(input.Pagination.Limit))

	if input.Category != "" {
		query = query.Where("category = ?", input.Category)
	}

	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var items []models.InventoryItem
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// IncrementQty applies a signed delta to on-hand stock without a prior read.
// Negative deltas are guarded so availability can never go below zero; a zero
// rows-affected result means the item is missing or the guard rejected it.
func (r *repository) IncrementQty(ctx context.Context, id uuid.UUID, delta int) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ?", id)
	if delta < 0 {
		query = query.Where("qty - reserved_qty >= ?", -delta)
	}
	result := query.Update("qty", gorm.Expr("qty + ?", delta))
	return result.RowsAffected, result.Error
}

func (r *repository) CreateMovement(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ListMovements(ctx context.Context, itemID uuid.UUID, params pagination.Params) ([]models.StockMovement, error) {
	query := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var movements []models.StockMovement
	if err := query.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}
