package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/koekemoer93/kart-force-sub000/api/middleware"
	"github.com/koekemoer93/kart-force-sub000/api/responses"
	"github.com/koekemoer93/kart-force-sub000/api/validators"
	"github.com/koekemoer93/kart-force-sub000/internal/inventory"
	pkgerrors "github.com/koekemoer93/kart-force-sub000/pkg/errors"
	"github.com/koekemoer93/kart-force-sub000/pkg/logger"
)

type createItemRequest struct {
	Name     string          `json:"name" validate:"required"`
	Unit     string          `json:"unit,omitempty"`
	Category string          `json:"category,omitempty"`
	Qty      int             `json:"qty,omitempty" validate:"omitempty,min=0"`
	MinQty   int             `json:"min_qty,omitempty" validate:"omitempty,min=0"`
	MaxQty   int             `json:"max_qty,omitempty" validate:"omitempty,min=0"`
	UnitCost decimal.Decimal `json:"unit_cost,omitempty"`
}

type stockChangeRequest struct {
	Qty    int    `json:"qty" validate:"required,gt=0"`
	Reason string `json:"reason,omitempty"`
}

// CreateItem registers a new inventory item for the caller's track.
func CreateItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		trackID, actorID, err := actorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.CreateItem(r.Context(), trackID, actorID, inventory.CreateItemInput{
			Name:     payload.Name,
			Unit:     payload.Unit,
			Category: payload.Category,
			Qty:      payload.Qty,
			MinQty:   payload.MinQty,
			MaxQty:   payload.MaxQty,
			UnitCost: payload.UnitCost,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func GetItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		trackID, _, err := actorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.GetItem(r.Context(), trackID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// ListItems returns the track's inventory, optionally filtered by category.
func ListItems(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		trackID, _, err := actorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListItems(r.Context(), inventory.ListItemsInput{
			TrackID:    trackID,
			Category:   strings.TrimSpace(r.URL.Query().Get("category")),
			Pagination: params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ReceiveStock adds stock to an item and records a receive movement.
func ReceiveStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return stockChange(svc, logg, func(svc inventory.Service, r *http.Request, actorID, itemID uuid.UUID, input inventory.StockChangeInput) (*inventory.ItemDTO, error) {
		return svc.ReceiveStock(r.Context(), actorID, itemID, input)
	})
}

// IssueStock removes available stock from an item, rejecting shortfalls.
func IssueStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return stockChange(svc, logg, func(svc inventory.Service, r *http.Request, actorID, itemID uuid.UUID, input inventory.StockChangeInput) (*inventory.ItemDTO, error) {
		return svc.IssueStock(r.Context(), actorID, itemID, input)
	})
}

func stockChange(
	svc inventory.Service,
	logg *logger.Logger,
	apply func(inventory.Service, *http.Request, uuid.UUID, uuid.UUID, inventory.StockChangeInput) (*inventory.ItemDTO, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		_, actorID, err := actorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload stockChangeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := apply(svc, r, actorID, itemID, inventory.StockChangeInput{
			Qty:    payload.Qty,
			Reason: payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// ListMovements returns the audit trail for a single item, newest first.
func ListMovements(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		trackID, _, err := actorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListMovements(r.Context(), trackID, itemID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func actorScope(r *http.Request) (trackID, actorID uuid.UUID, err error) {
	rawTrack := middleware.TrackIDFromContext(r.Context())
	if rawTrack == "" {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "track context missing")
	}
	rawUser := middleware.UserIDFromContext(r.Context())
	if rawUser == "" {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}

	trackID, parseErr := uuid.Parse(rawTrack)
	if parseErr != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid track id")
	}
	actorID, parseErr = uuid.Parse(rawUser)
	if parseErr != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid user id")
	}
	return trackID, actorID, nil
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key)
	}
	return id, nil
}
