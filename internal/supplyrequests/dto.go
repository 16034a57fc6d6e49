package supplyrequest

import (
	"time"

	"github.com/google/uuid"

	"github.com/koekemoer93/kart-force-sub000/pkg/db/models"
)

// RequestDTO is the supply request payload returned to clients.
type RequestDTO struct {
	ID            uuid.UUID             `json:"id"`
	TrackID       uuid.UUID             `json:"track_id"`
	Status        string                `json:"status"`
	Note          string                `json:"note,omitempty"`
	RequestedBy   uuid.UUID             `json:"requested_by"`
	Lines         []LineDTO             `json:"lines"`
	ReservedItems []models.ReservedLine `json:"reserved_items,omitempty"`
	ApprovedAt    *time.Time            `json:"approved_at,omitempty"`
	ApprovedBy    *uuid.UUID            `json:"approved_by,omitempty"`
	DispatchedAt  *time.Time            `json:"dispatched_at,omitempty"`
	DispatchedBy  *uuid.UUID            `json:"dispatched_by,omitempty"`
	CancelledAt   *time.Time            `json:"cancelled_at,omitempty"`
	CancelledBy   *uuid.UUID            `json:"cancelled_by,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// LineDTO is one requested item+quantity pair.
type LineDTO struct {
	ID       uuid.UUID `json:"id"`
	Position int       `json:"position"`
	ItemID   uuid.UUID `json:"item_id"`
	Name     string    `json:"name"`
	Unit     string    `json:"unit"`
	Qty      int       `json:"qty"`
}

// RequestListResult pairs a page of requests with the cursor for the next one.
type RequestListResult struct {
	Requests   []RequestDTO `json:"requests"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// NewRequestDTO builds a DTO from the persisted model.
func NewRequestDTO(request *models.SupplyRequest) (*RequestDTO, error) {
	reserved, err := request.DecodeReservedItems()
	if err != nil {
		return nil, err
	}

	dto := &RequestDTO{
		ID:            request.ID,
		TrackID:       request.TrackID,
		Status:        string(request.Status),
		Note:          request.Note,
		RequestedBy:   request.RequestedBy,
		Lines:         make([]LineDTO, 0, len(request.Lines)),
		ReservedItems: reserved,
		ApprovedAt:    request.ApprovedAt,
		ApprovedBy:    request.ApprovedBy,
		DispatchedAt:  request.DispatchedAt,
		DispatchedBy:  request.DispatchedBy,
		CancelledAt:   request.CancelledAt,
		CancelledBy:   request.CancelledBy,
		CreatedAt:     request.CreatedAt,
		UpdatedAt:     request.UpdatedAt,
	}
	for _, line := range request.Lines {
		dto.Lines = append(dto.Lines, LineDTO{
			ID:       line.ID,
			Position: line.Position,
			ItemID:   line.ItemID,
			Name:     line.Name,
			Unit:     line.Unit,
			Qty:      line.Qty,
		})
	}
	return dto, nil
}
