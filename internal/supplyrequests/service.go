package supplyrequest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/koekemoer93/kart-force-sub000/internal/reservation"
	"github.com/koekemoer93/kart-force-sub000/pkg/db/models"
	"github.com/koekemoer93/kart-force-sub000/pkg/enums"
	pkgerrors "github.com/koekemoer93/kart-force-sub000/pkg/errors"
	"github.com/koekemoer93/kart-force-sub000/pkg/metrics"
	"github.com/koekemoer93/kart-force-sub000/pkg/outbox"
	"github.com/koekemoer93/kart-force-sub000/pkg/pagination"
)

// Service exposes the supply request workflow.
type Service interface {
	CreateRequest(ctx context.Context, trackID, requesterID uuid.UUID, input CreateRequestInput) (*RequestDTO, error)
	GetRequest(ctx context.Context, trackID, requestID uuid.UUID) (*RequestDTO, error)
	ListRequests(ctx context.Context, input ListRequestsInput) (*RequestListResult, error)
	Approve(ctx context.Context, actorID, requestID uuid.UUID) (*RequestDTO, error)
	Unapprove(ctx context.Context, actorID, requestID uuid.UUID) (*RequestDTO, error)
	Dispatch(ctx context.Context, actorID, requestID uuid.UUID) (*RequestDTO, error)
	Cancel(ctx context.Context, actorID, requestID uuid.UUID) (*RequestDTO, error)
}

// CreateRequestInput holds the validated payload to create a supply request.
type CreateRequestInput struct {
	Note  string
	Lines []LineInput
}

// LineInput references an inventory item by id or by name. References are
// resolved to canonical item ids exactly once, at creation.
type LineInput struct {
	ItemID *uuid.UUID
	Name   string
	Qty    int
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type itemResolver interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	FindByName(ctx context.Context, trackID uuid.UUID, name string) (*models.InventoryItem, error)
}

type changeNotifier interface {
	InventoryChanged(ctx context.Context)
	RequestsChanged(ctx context.Context)
}

type service struct {
	repo     Repository
	items    itemResolver
	tx       txRunner
	events   *outbox.Service
	metrics  *metrics.SupplyMetrics
	notifier changeNotifier
}

// NewService constructs a supply request service instance. Metrics and
// notifier are optional.
func NewService(repo Repository, items itemResolver, tx txRunner, events *outbox.Service, supplyMetrics *metrics.SupplyMetrics, notifier changeNotifier) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("supply request repository required")
	}
	if items == nil {
		return nil, fmt.Errorf("item resolver required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &service{
		repo:     repo,
		items:    items,
		tx:       tx,
		events:   events,
		metrics:  supplyMetrics,
		notifier: notifier,
	}, nil
}

// CreateRequest resolves every line to a canonical item id and persists the
// request in pending state. No stock is touched here.
func (s *service) CreateRequest(ctx context.Context, trackID, requesterID uuid.UUID, input CreateRequestInput) (*RequestDTO, error) {
	if trackID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "track id is required")
	}
	if requesterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requester id is required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}

	request := &models.SupplyRequest{
		ID:          uuid.New(),
		TrackID:     trackID,
		Status:      enums.RequestStatusPending,
		Note:        strings.TrimSpace(input.Note),
		RequestedBy: requesterID,
	}

	for i, line := range input.Lines {
		if line.Qty <= 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "line %d: qty must be positive, got %d", i+1, line.Qty)
		}
		item, err := s.resolveItem(ctx, trackID, i, line)
		if err != nil {
			return nil, err
		}
		request.Lines = append(request.Lines, models.SupplyRequestLine{
			ID:        uuid.New(),
			RequestID: request.ID,
			Position:  i + 1,
			ItemID:    item.ID,
			Name:      item.Name,
			Unit:      item.Unit,
			Qty:       line.Qty,
		})
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Create(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert request")
		}
		dto, err := NewRequestDTO(request)
		if err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequestCreated,
			AggregateType: enums.AggregateSupplyRequest,
			AggregateID:   request.ID,
			Actor:         &outbox.ActorRef{UserID: requesterID},
			Data:          dto,
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create request")
	}

	s.notifyRequests(ctx)
	return NewRequestDTO(request)
}

func (s *service) GetRequest(ctx context.Context, trackID, requestID uuid.UUID) (*RequestDTO, error) {
	if trackID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "track id is required")
	}
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	// Requests from another track look identical to missing ones.
	if request.TrackID != trackID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supply request not found")
	}
	return NewRequestDTO(request)
}

func (s *service) readRequest(ctx context.Context, requestID uuid.UUID) (*RequestDTO, error) {
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return NewRequestDTO(request)
}

func (s *service) ListRequests(ctx context.Context, input ListRequestsInput) (*RequestListResult, error) {
	if input.TrackID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "track id is required")
	}

	requests, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list requests")
	}

	limit := pagination.NormalizeLimit(input.Pagination.Limit)
	result := &RequestListResult{Requests: make([]RequestDTO, 0, len(requests))}
	for i := range requests {
		if i == limit {
			result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
				CreatedAt: requests[limit-1].CreatedAt,
				ID:        requests[limit-1].ID,
			})
			break
		}
		dto, err := NewRequestDTO(&requests[i])
		if err != nil {
			return nil, err
		}
		result.Requests = append(result.Requests, *dto)
	}
	return result, nil
}

// Approve reserves stock for every line and moves the request to approved.
// The reservation is all-or-nothing: any shortage leaves both the request and
// the ledger untouched.
func (s *service) Approve(ctx context.Context, actorID, requestID uuid.UUID) (*RequestDTO, error) {
	return s.transition(ctx, "approve", actorID, requestID, func(tx *gorm.DB, request *models.SupplyRequest, now time.Time) error {
		if request.Status != enums.RequestStatusPending {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot approve request in status %q", request.Status)
		}

		snapshot, err := reservation.Reserve(ctx, tx, linesAsReserved(request))
		if err != nil {
			return err
		}
		encoded, err := models.EncodeReservedItems(snapshot)
		if err != nil {
			return err
		}

		request.Status = enums.RequestStatusApproved
		request.ReservedItems = encoded
		request.ApprovedAt = &now
		request.ApprovedBy = &actorID
		if err := s.repo.WithTx(tx).Update(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update request")
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequestApproved,
			AggregateType: enums.AggregateSupplyRequest,
			AggregateID:   request.ID,
			Actor:         &outbox.ActorRef{UserID: actorID},
			Data:          map[string]any{"reserved_items": snapshot},
		})
	})
}

// Unapprove returns a request to pending and releases its reservation.
func (s *service) Unapprove(ctx context.Context, actorID, requestID uuid.UUID) (*RequestDTO, error) {
	return s.transition(ctx, "unapprove", actorID, requestID, func(tx *gorm.DB, request *models.SupplyRequest, now time.Time) error {
		if request.Status != enums.RequestStatusApproved {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot unapprove request in status %q", request.Status)
		}

		snapshot, err := settlementLines(request)
		if err != nil {
			return err
		}
		if err := reservation.Release(ctx, tx, snapshot); err != nil {
			return err
		}

		request.Status = enums.RequestStatusPending
		request.ReservedItems = nil
		request.ApprovedAt = nil
		request.ApprovedBy = nil
		if err := s.repo.WithTx(tx).Update(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update request")
		}

		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReservationReleased,
			AggregateType: enums.AggregateSupplyRequest,
			AggregateID:   request.ID,
			Actor:         &outbox.ActorRef{UserID: actorID},
			Data:          map[string]any{"released_items": snapshot},
		}); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequestUnapproved,
			AggregateType: enums.AggregateSupplyRequest,
			AggregateID:   request.ID,
			Actor:         &outbox.ActorRef{UserID: actorID},
			Data:          map[string]any{"status": enums.RequestStatusPending},
		})
	})
}

// Dispatch converts the reservation into actual stock decrements and moves
// the request to its terminal dispatched state.
func (s *service) Dispatch(ctx context.Context, actorID, requestID uuid.UUID) (*RequestDTO, error) {
	return s.transition(ctx, "dispatch", actorID, requestID, func(tx *gorm.DB, request *models.SupplyRequest, now time.Time) error {
		if request.Status != enums.RequestStatusApproved {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot dispatch request in status %q", request.Status)
		}

		snapshot, err := settlementLines(request)
		if err != nil {
			return err
		}
		if err := reservation.Commit(ctx, tx, snapshot, actorID); err != nil {
			return err
		}

		request.Status = enums.RequestStatusDispatched
		request.DispatchedAt = &now
		request.DispatchedBy = &actorID
		if err := s.repo.WithTx(tx).Update(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update request")
		}

		return s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequestDispatched,
			AggregateType: enums.AggregateSupplyRequest,
			AggregateID:   request.ID,
			Actor:         &outbox.ActorRef{UserID: actorID},
			Data:          map[string]any{"dispatched_items": snapshot},
		})
	})
}

// Cancel is only valid for pending requests and never touches stock.
func (s *service) Cancel(ctx context.Context, actorID, requestID uuid.UUID) (*RequestDTO, error) {
	return s.transition(ctx, "cancel", actorID, requestID, func(tx *gorm.DB, request *models.SupplyRequest, now time.Time) error {
		if request.Status != enums.RequestStatusPending {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot cancel request in status %q", request.Status)
		}

		request.Status = enums.RequestStatusCancelled
		request.CancelledAt = &now
		request.CancelledBy = &actorID
		if err := s.repo.WithTx(tx).Update(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update request")
		}

		return s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRequestCancelled,
			AggregateType: enums.AggregateSupplyRequest,
			AggregateID:   request.ID,
			Actor:         &outbox.ActorRef{UserID: actorID},
			Data:          map[string]any{"status": enums.RequestStatusCancelled},
		})
	})
}

// transition runs one state change inside a transaction with the request row
// locked, then records metrics and re-reads the final state.
func (s *service) transition(
	ctx context.Context,
	operation string,
	actorID, requestID uuid.UUID,
	fn func(tx *gorm.DB, request *models.SupplyRequest, now time.Time) error,
) (*RequestDTO, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id is required")
	}
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id is required")
	}

	start := time.Now()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		request, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "supply request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load request")
		}
		return fn(tx, request, time.Now())
	})
	s.metrics.ObserveReservation(operation, time.Since(start))
	s.metrics.IncReservationOutcome(operation, outcomeLabel(err))

	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, operation+" request")
	}

	s.notifyRequests(ctx)
	s.notifyInventory(ctx)
	return s.readRequest(ctx, requestID)
}

func (s *service) resolveItem(ctx context.Context, trackID uuid.UUID, index int, line LineInput) (*models.InventoryItem, error) {
	if line.ItemID != nil && *line.ItemID != uuid.Nil {
		item, err := s.items.FindByID(ctx, *line.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Newf(pkgerrors.CodeResolution, "line %d: no inventory item with id %s", index+1, *line.ItemID)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: resolve item")
		}
		if item.TrackID != trackID {
			return nil, pkgerrors.Newf(pkgerrors.CodeResolution, "line %d: no inventory item with id %s", index+1, *line.ItemID)
		}
		return item, nil
	}

	name := strings.TrimSpace(line.Name)
	if name == "" {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "line %d: item id or name is required", index+1)
	}
	item, err := s.items.FindByName(ctx, trackID, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeResolution, "%s: no matching inventory item", name)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: resolve item")
	}
	return item, nil
}

func (s *service) loadRequest(ctx context.Context, requestID uuid.UUID) (*models.SupplyRequest, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id is required")
	}
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supply request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load request")
	}
	return request, nil
}

func linesAsReserved(request *models.SupplyRequest) []models.ReservedLine {
	lines := make([]models.ReservedLine, 0, len(request.Lines))
	for _, line := range request.Lines {
		lines = append(lines, models.ReservedLine{ItemID: line.ItemID, Name: line.Name, Unit: line.Unit, Qty: line.Qty})
	}
	return lines
}

// settlementLines returns the snapshot locked in at approval. Approved rows
// written before the snapshot column existed have none; those settle from the
// request lines instead.
func settlementLines(request *models.SupplyRequest) ([]models.ReservedLine, error) {
	snapshot, err := request.DecodeReservedItems()
	if err != nil {
		return nil, err
	}
	if len(snapshot) > 0 {
		return snapshot, nil
	}
	return linesAsReserved(request), nil
}

func (s *service) notifyRequests(ctx context.Context) {
	if s.notifier != nil {
		s.notifier.RequestsChanged(ctx)
	}
}

func (s *service) notifyInventory(ctx context.Context) {
	if s.notifier != nil {
		s.notifier.InventoryChanged(ctx)
	}
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeInsufficientStock:
			return "insufficient_stock"
		case pkgerrors.CodeStateConflict:
			return "state_conflict"
		case pkgerrors.CodeStockUnderflow:
			return "stock_underflow"
		}
	}
	return "error"
}
