package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/koekemoer93/kart-force-sub000/api/responses"
	"github.com/koekemoer93/kart-force-sub000/api/validators"
	supplyrequest "github.com/koekemoer93/kart-force-sub000/internal/supplyrequests"
	"github.com/koekemoer93/kart-force-sub000/pkg/enums"
	pkgerrors "github.com/koekemoer93/kart-force-sub000/pkg/errors"
	"github.com/koekemoer93/kart-force-sub000/pkg/logger"
)

type createRequestBody struct {
	Note  string          `json:"note,omitempty"`
	Lines []requestLineIn `json:"lines" validate:"required,min=1,dive"`
}

type requestLineIn struct {
	ItemID *uuid.UUID `json:"item_id,omitempty"`
	Name   string     `json:"name,omitempty"`
	Qty    int        `json:"qty" validate:"required,gt=0"`
}

// CreateRequest files a new supply request. Line references are resolved to
// canonical items before anything is written.
func CreateRequest(svc supplyrequest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supply request service unavailable"))
			return
		}

		trackID, actorID, err := actorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createRequestBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]supplyrequest.LineInput, 0, len(payload.Lines))
		for _, line := range payload.Lines {
			lines = append(lines, supplyrequest.LineInput{
				ItemID: line.ItemID,
				Name:   line.Name,
				Qty:    line.Qty,
			})
		}

		request, err := svc.CreateRequest(r.Context(), trackID, actorID, supplyrequest.CreateRequestInput{
			Note:  payload.Note,
			Lines: lines,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

func GetRequest(svc supplyrequest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supply request service unavailable"))
			return
		}

		trackID, _, err := actorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := pathUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.GetRequest(r.Context(), trackID, requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// ListRequests returns the track's requests, optionally filtered by status.
func ListRequests(svc supplyrequest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supply request service unavailable"))
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

		input := supplyrequest.ListRequestsInput{
			TrackID:    trackID,
			Pagination: params,
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParseRequestStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status filter"))
				return
			}
			input.Status = &status
		}

		result, err := svc.ListRequests(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ApproveRequest reserves stock for every line or rejects the whole request.
func ApproveRequest(svc supplyrequest.Service, logg *logger.Logger) http.HandlerFunc {
	return requestTransition(svc, logg, supplyrequest.Service.Approve)
}

// UnapproveRequest returns a request to pending and releases its reservation.
func UnapproveRequest(svc supplyrequest.Service, logg *logger.Logger) http.HandlerFunc {
	return requestTransition(svc, logg, supplyrequest.Service.Unapprove)
}

// DispatchRequest converts the reservation into issued stock.
func DispatchRequest(svc supplyrequest.Service, logg *logger.Logger) http.HandlerFunc {
	return requestTransition(svc, logg, supplyrequest.Service.Dispatch)
}

// CancelRequest terminates a pending request without touching stock.
func CancelRequest(svc supplyrequest.Service, logg *logger.Logger) http.HandlerFunc {
	return requestTransition(svc, logg, supplyrequest.Service.Cancel)
}

func requestTransition(
	svc supplyrequest.Service,
	logg *logger.Logger,
	apply func(supplyrequest.Service, context.Context, uuid.UUID, uuid.UUID) (*supplyrequest.RequestDTO, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supply request service unavailable"))
			return
		}

		_, actorID, err := actorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := pathUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := apply(svc, r.Context(), actorID, requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}
