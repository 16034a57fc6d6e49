package controllers

import (
	"context"
	"net/http"

	"go.uber.org/multierr"

	"github.com/koekemoer93/kart-force-sub000/api/responses"
	"github.com/koekemoer93/kart-force-sub000/pkg/config"
	pkgerrors "github.com/koekemoer93/kart-force-sub000/pkg/errors"
	"github.com/koekemoer93/kart-force-sub000/pkg/logger"
)

const envHeader = "X-KartForce-Env"

type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every wired dependency answers a ping.
// Nil pingers are skipped so optional infrastructure does not fail readiness.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		var err error
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if pingErr := dep.Ping(r.Context()); pingErr != nil {
				err = multierr.Append(err, pkgerrors.Wrap(pkgerrors.CodeDependency, pingErr, name+" unavailable"))
			}
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "readiness check failed"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
