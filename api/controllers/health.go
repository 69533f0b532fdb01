package controllers

import (
	"net/http"

	"github.com/freshlane/freshlane-backend/api/responses"
	"github.com/freshlane/freshlane-backend/pkg/config"
	"github.com/freshlane/freshlane-backend/pkg/db"
	pkgerrors "github.com/freshlane/freshlane-backend/pkg/errors"
	"github.com/freshlane/freshlane-backend/pkg/logger"
	"github.com/freshlane/freshlane-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-FreshLane-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks every hard dependency; any failure fails the probe.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("X-FreshLane-Env", cfg.App.Env)

		checks := map[string]string{}
		healthy := true

		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				checks["database"] = "down"
				healthy = false
				if logg != nil {
					logg.Error(ctx, "readiness: database ping failed", err)
				}
			} else {
				checks["database"] = "ok"
			}
		}

		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				checks["redis"] = "down"
				healthy = false
				if logg != nil {
					logg.Error(ctx, "readiness: redis ping failed", err)
				}
			} else {
				checks["redis"] = "ok"
			}
		}

		if !healthy {
			responses.WriteError(ctx, nil, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
