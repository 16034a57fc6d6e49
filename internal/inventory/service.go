package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/koekemoer93/kart-force-sub000/internal/reservation"
	dbpkg "github.com/koekemoer93/kart-force-sub000/pkg/db"
	"github.com/koekemoer93/kart-force-sub000/pkg/db/models"
	"github.com/koekemoer93/kart-force-sub000/pkg/enums"
	pkgerrors "github.com/koekemoer93/kart-force-sub000/pkg/errors"
	"github.com/koekemoer93/kart-force-sub000/pkg/metrics"
	"github.com/koekemoer93/kart-force-sub000/pkg/outbox"
	"github.com/koekemoer93/kart-force-sub000/pkg/pagination"
)

const defaultUnit = "units"

// Service exposes inventory item management and the stock ledger.
type Service interface {
	CreateItem(ctx context.Context, trackID, actorID uuid.UUID, input CreateItemInput) (*ItemDTO, error)
	GetItem(ctx context.Context, trackID, itemID uuid.UUID) (*ItemDTO, error)
	ListItems(ctx context.Context, input ListItemsInput) (*ItemListResult, error)
	ReceiveStock(ctx context.Context, actorID, itemID uuid.UUID, input StockChangeInput) (*ItemDTO, error)
	IssueStock(ctx context.Context, actorID, itemID uuid.UUID, input StockChangeInput) (*ItemDTO, error)
	ListMovements(ctx context.Context, trackID, itemID uuid.UUID, params pagination.Params) (*MovementListResult, error)
}

// CreateItemInput holds the validated payload to create an inventory item.
type CreateItemInput struct {
	Name     string
	Unit     string
	Category string
	Qty      int
	MinQty   int
	MaxQty   int
	UnitCost decimal.Decimal
}

// StockChangeInput is the payload for receive and issue operations.
type StockChangeInput struct {
	Qty    int
	Reason string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type changeNotifier interface {
	InventoryChanged(ctx context.Context)
}

type service struct {
	repo     Repository
	tx       txRunner
	events   *outbox.Service
	metrics  *metrics.SupplyMetrics
	notifier changeNotifier
}

// NewService constructs an inventory service instance. Metrics and notifier
// are optional.
func NewService(repo Repository, tx txRunner, events *outbox.Service, supplyMetrics *metrics.SupplyMetrics, notifier changeNotifier) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		events:   events,
		metrics:  supplyMetrics,
		notifier: notifier,
	}, nil
}

// CreateItem creates the item and, for a non-zero starting quantity, the
// opening "initial stock" ledger entry in the same transaction.
func (s *service) CreateItem(ctx context.Context, trackID, actorID uuid.UUID, input CreateItemInput) (*ItemDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	}
	if trackID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "track id is required")
	}
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if input.Qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qty cannot be negative")
	}
	if input.MinQty < 0 || input.MaxQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min_qty and max_qty cannot be negative")
	}
	if input.MaxQty > 0 && input.MaxQty < input.MinQty {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max_qty cannot be below min_qty")
	}
	if input.UnitCost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit_cost cannot be negative")
	}

	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		unit = defaultUnit
	}

	item := &models.InventoryItem{
		ID:       uuid.New(),
		TrackID:  trackID,
		Name:     name,
		Unit:     unit,
		Category: strings.TrimSpace(input.Category),
		Qty:      input.Qty,
		MinQty:   input.MinQty,
		MaxQty:   input.MaxQty,
		UnitCost: input.UnitCost,
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Create(ctx, item); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_inventory_items_track_name") {
				return pkgerrors.Newf(pkgerrors.CodeConflict, "item %q already exists", name)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert item")
		}
		if input.Qty > 0 {
			movement := &models.StockMovement{
				ID:      uuid.New(),
				ItemID:  item.ID,
				Type:    enums.MovementTypeReceive,
				Qty:     input.Qty,
				Reason:  "initial stock",
				ActorID: actorID,
			}
			if err := txRepo.CreateMovement(ctx, movement); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert movement")
			}
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventItemCreated,
			AggregateType: enums.AggregateInventoryItem,
			AggregateID:   item.ID,
			Actor:         &outbox.ActorRef{UserID: actorID},
			Data:          NewItemDTO(item),
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create item")
	}

	if input.Qty > 0 {
		s.metrics.IncStockMovement(string(enums.MovementTypeReceive))
	}
	s.notifyChanged(ctx)
	return NewItemDTO(item), nil
}

func (s *service) GetItem(ctx context.Context, trackID, itemID uuid.UUID) (*ItemDTO, error) {
	if trackID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "track id is required")
	}
	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	// Items from another track look identical to missing ones.
	if item.TrackID != trackID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
	}
	return NewItemDTO(item), nil
}

func (s *service) readItem(ctx context.Context, itemID uuid.UUID) (*ItemDTO, error) {
	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return NewItemDTO(item), nil
}

func (s *service) ListItems(ctx context.Context, input ListItemsInput) (*ItemListResult, error) {
	if input.TrackID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "track id is required")
	}

	items, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list items")
	}

	limit := pagination.NormalizeLimit(input.Pagination.Limit)
	result := &ItemListResult{Items: make([]ItemDTO, 0, len(items))}
	for i := range items {
		if i == limit {
			result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
				CreatedAt: items[limit-1].CreatedAt,
				ID:        items[limit-1].ID,
			})
			break
		}
		result.Items = append(result.Items, *NewItemDTO(&items[i]))
	}
	return result, nil
}

// ReceiveStock adds stock with an atomic increment and appends a receive
// movement. It never touches reservedQty.
func (s *service) ReceiveStock(ctx context.Context, actorID, itemID uuid.UUID, input StockChangeInput) (*ItemDTO, error) {
	if err := validateStockChange(actorID, itemID, input); err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = "stock received"
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		rows, err := txRepo.IncrementQty(ctx, itemID, input.Qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: increment qty")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		movement := &models.StockMovement{
			ID:      uuid.New(),
			ItemID:  itemID,
			Type:    enums.MovementTypeReceive,
			Qty:     input.Qty,
			Reason:  reason,
			ActorID: actorID,
		}
		if err := txRepo.CreateMovement(ctx, movement); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert movement")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockReceived,
			AggregateType: enums.AggregateInventoryItem,
			AggregateID:   itemID,
			Actor:         &outbox.ActorRef{UserID: actorID},
			Data:          NewMovementDTO(movement),
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "receive stock")
	}

	s.metrics.IncStockMovement(string(enums.MovementTypeReceive))
	s.notifyChanged(ctx)
	return s.readItem(ctx, itemID)
}

// IssueStock removes stock for direct consumption. The decrement is rejected
// outright when it would dip into reserved stock; nothing is ever clamped.
func (s *service) IssueStock(ctx context.Context, actorID, itemID uuid.UUID, input StockChangeInput) (*ItemDTO, error) {
	if err := validateStockChange(actorID, itemID, input); err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = "stock issued"
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		rows, err := txRepo.IncrementQty(ctx, itemID, -input.Qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: decrement qty")
		}
		if rows == 0 {
			item, err := txRepo.FindByID(ctx, itemID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load item")
			}
			return reservation.InsufficientStock(item.Name, item.Unit, input.Qty, item.AvailableQty())
		}
		movement := &models.StockMovement{
			ID:      uuid.New(),
			ItemID:  itemID,
			Type:    enums.MovementTypeIssue,
			Qty:     input.Qty,
			Reason:  reason,
			ActorID: actorID,
		}
		if err := txRepo.CreateMovement(ctx, movement); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert movement")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockIssued,
			AggregateType: enums.AggregateInventoryItem,
			AggregateID:   itemID,
			Actor:         &outbox.ActorRef{UserID: actorID},
			Data:          NewMovementDTO(movement),
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue stock")
	}

	s.metrics.IncStockMovement(string(enums.MovementTypeIssue))
	s.notifyChanged(ctx)
	return s.readItem(ctx, itemID)
}

func (s *service) ListMovements(ctx context.Context, trackID, itemID uuid.UUID, params pagination.Params) (*MovementListResult, error) {
	if _, err := s.GetItem(ctx, trackID, itemID); err != nil {
		return nil, err
	}

	movements, err := s.repo.ListMovements(ctx, itemID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list movements")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	result := &MovementListResult{Movements: make([]MovementDTO, 0, len(movements))}
	for i := range movements {
		if i == limit {
			result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
				CreatedAt: movements[limit-1].CreatedAt,
				ID:        movements[limit-1].ID,
			})
			break
		}
		result.Movements = append(result.Movements, *NewMovementDTO(&movements[i]))
	}
	return result, nil
}

func (s *service) loadItem(ctx context.Context, itemID uuid.UUID) (*models.InventoryItem, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load item")
	}
	return item, nil
}

func (s *service) notifyChanged(ctx context.Context) {
	if s.notifier != nil {
		s.notifier.InventoryChanged(ctx)
	}
}

func validateStockChange(actorID, itemID uuid.UUID, input StockChangeInput) error {
	if itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if actorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}
	if input.Qty <= 0 {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "qty must be positive, got %d", input.Qty)
	}
	return nil
}
