package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/koekemoer93/kart-force-sub000/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID  uuid.UUID
	TrackID uuid.UUID
	Role    enums.StaffRole
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID  uuid.UUID       `json:"user_id"`
	TrackID uuid.UUID       `json:"track_id"`
	Role    enums.StaffRole `json:"role"`
	jwt.RegisteredClaims
}
