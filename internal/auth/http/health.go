package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/sessiond/internal/auth/revocation"
	"github.com/aussiebroadwan/sessiond/internal/auth/store"
	"github.com/aussiebroadwan/sessiond/pkg/authsdk"
	"github.com/aussiebroadwan/sessiond/pkg/httpx"
	"github.com/aussiebroadwan/sessiond/pkg/jwtx"
	"github.com/aussiebroadwan/sessiond/pkg/slogx"
)

// readinessCheckTimeout bounds each dependency probe.
const readinessCheckTimeout = time.Second

const (
	checkOK    = "ok"
	checkError = "error"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	StartTime time.Time
	Version   string

	Store       store.Store
	Keys        *jwtx.KeyManager
	Revocations revocation.Cache // reported only when it can be pinged
}

func (h *HealthHandler) report(status string, checks *authsdk.HealthChecks) authsdk.HealthResponse {
	return authsdk.HealthResponse{
		Status:  status,
		Uptime:  time.Since(h.StartTime).Round(time.Second).String(),
		Version: h.Version,
		Checks:  checks,
	}
}

// HandleLivez godoc
//
//	@Summary		Liveness probe
//	@Description	Returns 200 while the process is serving requests
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func (h *HealthHandler) HandleLivez(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.report(checkOK, nil))
}

// HandleReadyz godoc
//
//	@Summary		Readiness probe
//	@Description	Checks the database, the active signing key and the revocation cache
//	@Description	Failure details are logged, not returned
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"all checks ok"
//	@Failure		503	{object}	authsdk.HealthResponse	"degraded"
//	@Router			/readyz [get].
func (h *HealthHandler) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())
	healthy := true
	probe := func(name string, p pinger) string {
		ctx, cancel := context.WithTimeout(r.Context(), readinessCheckTimeout)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			log.Warn("readiness check failed", "check", name, "err", err)
			healthy = false
			return checkError
		}
		return checkOK
	}

	checks := &authsdk.HealthChecks{
		Database: probe("database", h.Store),
		Signer:   checkOK,
	}
	if !h.Keys.IsReady() {
		log.Warn("readiness check failed", "check", "signer", "err", jwtx.ErrNoActiveKey)
		healthy = false
		checks.Signer = checkError
	}
	if p, ok := h.Revocations.(pinger); ok {
		checks.Revocations = probe("revocations", p)
	}

	if !healthy {
		httpx.WriteJSON(w, http.StatusServiceUnavailable, h.report("degraded", checks))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.report(checkOK, checks))
}
