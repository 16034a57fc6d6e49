package controllers

import (
	"net/http"

	"github.com/koekemoer93/kart-force-sub000/api/middleware"
	"github.com/koekemoer93/kart-force-sub000/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if track := middleware.TrackIDFromContext(r.Context()); track != "" {
			payload["track_id"] = track
		}
		responses.WriteSuccess(w, payload)
	}
}
