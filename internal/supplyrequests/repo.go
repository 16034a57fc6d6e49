package supplyrequest

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/koekemoer93/kart-force-sub000/pkg/db/models"
	"github.com/koekemoer93/kart-force-sub000/pkg/enums"
	"github.com/koekemoer93/kart-force-sub000/pkg/pagination"
)

// Repository manages persistence for supply requests and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.SupplyRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.SupplyRequest, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.SupplyRequest, error)
	List(ctx context.Context, input ListRequestsInput) ([]models.SupplyRequest, error)
	Update(ctx context.Context, request *models.SupplyRequest) error
}

// ListRequestsInput captures filter and pagination knobs for the request list.
type ListRequestsInput struct {
	TrackID    uuid.UUID
	Status     *enums.RequestStatus
	Pagination pagination.Params
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a supply request repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.SupplyRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SupplyRequest, error) {
	var request models.SupplyRequest
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&request, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// FindByIDForUpdate locks the request row so concurrent state transitions
// serialize on it.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.SupplyRequest, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var request models.SupplyRequest
	if err := query.First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("request_id = ?", id).
		Order("position ASC").
		Find(&request.Lines).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) List(ctx context.Context, input ListRequestsInput) ([]models.SupplyRequest, error) {
	query := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("track_id = ?", input.TrackID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(input.Pagination.Limit))

	if input.Status != nil {
		query = query.Where("status = ?", *input.Status)
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

	var requests []models.SupplyRequest
	if err := query.Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *repository) Update(ctx context.Context, request *models.SupplyRequest) error {
	return r.db.WithContext(ctx).
		Model(&models.SupplyRequest{}).
		Where("id = ?", request.ID).
		Updates(map[string]any{
			"status":         request.Status,
			"reserved_items": request.ReservedItems,
			"approved_at":    request.ApprovedAt,
			"approved_by":    request.ApprovedBy,
			"dispatched_at":  request.DispatchedAt,
			"dispatched_by":  request.DispatchedBy,
			"cancelled_at":   request.CancelledAt,
			"cancelled_by":   request.CancelledBy,
		}).Error
}
