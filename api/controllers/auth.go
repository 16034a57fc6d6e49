package controllers

import (
	"net/http"

	"github.com/koekemoer93/kart-force-sub000/api/responses"
	"github.com/koekemoer93/kart-force-sub000/api/validators"
	"github.com/koekemoer93/kart-force-sub000/internal/staff"
	pkgerrors "github.com/koekemoer93/kart-force-sub000/pkg/errors"
	"github.com/koekemoer93/kart-force-sub000/pkg/logger"
)

// StaffLogin wires the login endpoint into the HTTP layer.
func StaffLogin(svc staff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "staff service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body staff.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
