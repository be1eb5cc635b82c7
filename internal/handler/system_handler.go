package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ereas/ereas-backend/internal/config"
	"github.com/ereas/ereas-backend/internal/response"
)

// SystemHandler exposes liveness and dependency health.
type SystemHandler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(pool *pgxpool.Pool, rdb *redis.Client) *SystemHandler {
	return &SystemHandler{pool: pool, rdb: rdb, startTime: time.Now()}
}

// Health godoc
// GET /health
// Pings Postgres and Redis; 503 when either is unreachable.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	pgOK := h.pool.Ping(ctx) == nil
	redisOK := h.rdb.Ping(ctx).Err() == nil

	var queueDepth int64
	if redisOK {
		queueDepth, _ = h.rdb.LLen(ctx, config.WorkerKey.PersistResultStatsQueue).Result()
	}

	body := gin.H{
		"status":            "ok",
		"postgres":          pgOK,
		"redis":             redisOK,
		"stats_queue_depth": queueDepth,
		"uptime_seconds":    int64(time.Since(h.startTime).Seconds()),
	}

	if !pgOK || !redisOK {
		body["status"] = "degraded"
		response.Success(c, http.StatusServiceUnavailable, body)
		return
	}

	response.Success(c, http.StatusOK, body)
}
