package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/tubelens/tubelens-go/internal/service"
)

type HealthHandler struct {
	pool    *pgxpool.Pool
	rdb     *redis.Client
	stats   *service.StatsService
	startAt time.Time
}

func NewHealthHandler(pool *pgxpool.Pool, rdb *redis.Client, stats *service.StatsService) *HealthHandler {
	return &HealthHandler{
		pool:    pool,
		rdb:     rdb,
		stats:   stats,
		startAt: time.Now(),
	}
}

// Live handles GET /health/live — liveness probe.
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready handles GET /health/ready — readiness probe with dependency checks.
// Redis is optional and never degrades readiness when disabled; the audit
// counters are informational only.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	dbCheck := checkDB(ctx, h.pool)
	redisCheck := checkRedis(ctx, h.rdb)

	overallStatus := "healthy"
	if dbCheck["status"] != "up" {
		overallStatus = "degraded"
	}
	if rs := redisCheck["status"]; rs != "up" && rs != "disabled" {
		overallStatus = "degraded"
	}

	checks := fiber.Map{
		"database": dbCheck,
		"redis":    redisCheck,
	}
	if h.stats != nil {
		checks["audits"] = h.checkAudits(ctx)
	}

	resp := fiber.Map{
		"status":         overallStatus,
		"checks":         checks,
		"uptime_seconds": int(time.Since(h.startAt).Seconds()),
		"version":        "1.0.0",
	}

	status := fiber.StatusOK
	if overallStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(resp)
}

// checkAudits surfaces pipeline load alongside readiness. A count failure is
// reported but does not flip the probe; the database check already covers
// connectivity.
func (h *HealthHandler) checkAudits(ctx context.Context) fiber.Map {
	stats, err := h.stats.GetStats(ctx)
	if err != nil {
		return fiber.Map{"status": "unknown"}
	}
	return fiber.Map{
		"status":  "ok",
		"running": stats.AuditsRunning,
		"total":   stats.AuditsTotal,
	}
}

func checkDB(ctx context.Context, pool *pgxpool.Pool) fiber.Map {
	start := time.Now()
	err := pool.Ping(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return fiber.Map{
			"status":     "down",
			"latency_ms": latency,
			"error":      "connection failed",
		}
	}

	stat := pool.Stat()
	return fiber.Map{
		"status":     "up",
		"latency_ms": latency,
		"conns_used": stat.AcquiredConns(),
		"conns_idle": stat.IdleConns(),
	}
}

func checkRedis(ctx context.Context, rdb *redis.Client) fiber.Map {
	if rdb == nil {
		return fiber.Map{
			"status": "disabled",
		}
	}

	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return fiber.Map{
			"status":     "down",
			"latency_ms": latency,
			"error":      "connection failed",
		}
	}
	return fiber.Map{
		"status":     "up",
		"latency_ms": latency,
	}
}
