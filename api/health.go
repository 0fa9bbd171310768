package api

import (
	"context"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/stockpulse/paybridge/cache"
)

type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Uptime     string            `json:"uptime"`
	Components map[string]string `json:"components"`
}

var startTime = time.Now()

type HealthHandler struct {
	db    *gorm.DB
	cache *cache.RedisCache
}

func CreateHealthHandler(db *gorm.DB, redisCache *cache.RedisCache) *HealthHandler {
	return &HealthHandler{db: db, cache: redisCache}
}

func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := map[string]string{}
	status := "healthy"
	code := http.StatusOK

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		components["database"] = "down"
		status = "degraded"
		code = http.StatusServiceUnavailable
	} else {
		components["database"] = "up"
	}

	if h.cache == nil {
		components["redis"] = "disabled"
	} else if err := h.cache.Ping(ctx); err != nil {
		components["redis"] = "down"
		if status == "healthy" {
			status = "degraded"
		}
	} else {
		components["redis"] = "up"
	}

	writeJSON(w, code, HealthResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Uptime:     time.Since(startTime).String(),
		Components: components,
	})
}
