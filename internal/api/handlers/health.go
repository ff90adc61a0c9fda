package handlers

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/legalwatchdog/platform/internal/api/respond"
)

type HealthHandler struct {
	db  *pgxpool.Pool
	rdb *redis.Client
}

func NewHealthHandler(db *pgxpool.Pool, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	respond.Success(w, http.StatusOK, "ok", nil)
}

// Readyz verifies both backing stores are reachable.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		respond.Failure(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	if err := h.rdb.Ping(r.Context()).Err(); err != nil {
		respond.Failure(w, http.StatusServiceUnavailable, "redis unavailable")
		return
	}
	respond.Success(w, http.StatusOK, "ready", nil)
}
