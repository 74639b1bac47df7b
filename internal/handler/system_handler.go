package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kilo-studio/kilo-backend/internal/response"
)

const healthTimeout = 2 * time.Second

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler reports process and dependency health.
type SystemHandler struct {
	db        Pinger
	rdb       redis.Cmdable
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler. db and rdb may be nil.
func NewSystemHandler(db Pinger, rdb redis.Cmdable, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		db:        db,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type healthReport struct {
	Status     string            `json:"status"`
	Uptime     string            `json:"uptime"`
	Goroutines int               `json:"goroutines"`
	GoVersion  string            `json:"go_version"`
	Checks     map[string]string `json:"checks"`
}

// Health godoc
// GET /health
// Returns 200 when every dependency answers, 503 otherwise.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	report := healthReport{
		Status:     "ok",
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		GoVersion:  runtime.Version(),
		Checks:     map[string]string{},
	}

	if h.db != nil {
		report.Checks["postgres"] = h.check(ctx, "postgres", h.db.Ping)
	}
	if h.rdb != nil {
		report.Checks["redis"] = h.check(ctx, "redis", func(ctx context.Context) error {
			return h.rdb.Ping(ctx).Err()
		})
	}

	status := http.StatusOK
	for _, v := range report.Checks {
		if v != "ok" {
			report.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	response.Success(c, status, report)
}

func (h *SystemHandler) check(ctx context.Context, name string, ping func(context.Context) error) string {
	if err := ping(ctx); err != nil {
		h.log.Warn().Err(err).Str("dependency", name).Msg("Health check failed")
		return "unavailable"
	}
	return "ok"
}
