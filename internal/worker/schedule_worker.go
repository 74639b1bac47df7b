package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kilo-studio/kilo-backend/internal/clock"
	"github.com/kilo-studio/kilo-backend/internal/config"
	"github.com/kilo-studio/kilo-backend/internal/schedule"
	"github.com/kilo-studio/kilo-backend/internal/service"
)

const (
	// GenerationLockTTL bounds how long a crashed replica can hold the lock.
	GenerationLockTTL = 5 * time.Minute
	// GeneratedMarkerTTL outlives the month the marker refers to.
	GeneratedMarkerTTL = 45 * 24 * time.Hour
)

// releaseLock deletes the lock only if this replica still owns it.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Generator is satisfied by *service.ScheduleService.
type Generator interface {
	TargetMonth() schedule.Month
	GenerateNextMonth(ctx context.Context) (*service.GenerationResult, error)
}

// ScheduleWorker generates next month's lessons on the configured day of the
// month. Replicas coordinate through a Redis lock; the database month lock
// still guarantees a single generation if Redis is unavailable.
type ScheduleWorker struct {
	generator Generator
	rdb       redis.Cmdable
	clock     clock.Clock
	day       int
	interval  time.Duration
	log       zerolog.Logger
}

// NewScheduleWorker creates a ScheduleWorker that fires on day of each month.
func NewScheduleWorker(
	generator Generator,
	rdb redis.Cmdable,
	clk clock.Clock,
	day int,
	interval time.Duration,
	log zerolog.Logger,
) *ScheduleWorker {
	return &ScheduleWorker{
		generator: generator,
		rdb:       rdb,
		clock:     clk,
		day:       day,
		interval:  interval,
		log:       log.With().Str("component", "schedule_worker").Logger(),
	}
}

// Start polls until ctx is cancelled.
func (w *ScheduleWorker) Start(ctx context.Context) {
	if w.day <= 0 {
		w.log.Info().Msg("ScheduleWorker disabled")
		return
	}
	w.log.Info().Int("day", w.day).Dur("interval", w.interval).Msg("ScheduleWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ScheduleWorker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// Due reports whether generation should be attempted at now: on or after
// the configured day. Months shorter than day fire on their last day.
func Due(now time.Time, day int) bool {
	if day <= 0 {
		return false
	}
	last := schedule.MonthOf(now).Days()
	return now.Day() >= min(day, last)
}

// RunOnce attempts one generation if it is due and not yet handled. A month
// is handled once it has been generated or its generation failed with
// ErrGenerationFailed; other errors are retried on the next poll.
func (w *ScheduleWorker) RunOnce(ctx context.Context) {
	if !Due(w.clock.Now(), w.day) {
		return
	}

	target := w.generator.TargetMonth()
	doneKey := config.CacheKey.ScheduleGeneratedKey(target.Start())
	failedKey := config.CacheKey.ScheduleFailedKey(target.Start())
	lockKey := config.CacheKey.ScheduleGenerationLockKey(target.Start())
	log := w.log.With().Str("month", target.String()).Logger()

	handled, err := w.rdb.Exists(ctx, doneKey, failedKey).Result()
	if err != nil {
		log.Warn().Err(err).Msg("Could not read generation markers, continuing")
	} else if handled > 0 {
		return
	}

	token := uuid.NewString()
	acquired, err := w.rdb.SetNX(ctx, lockKey, token, GenerationLockTTL).Result()
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("Could not take generation lock, relying on database lock")
	case !acquired:
		log.Debug().Msg("Another replica is generating")
		return
	default:
		defer func() {
			if err := releaseLock.Run(context.WithoutCancel(ctx), w.rdb, []string{lockKey}, token).Err(); err != nil {
				log.Warn().Err(err).Msg("Failed to release generation lock")
			}
		}()
	}

	result, err := w.generator.GenerateNextMonth(ctx)
	switch {
	case err == nil:
		log.Info().Int("created", len(result.Lessons)).Int("skipped", len(result.Skipped)).Msg("Scheduled generation complete")
	case errors.Is(err, service.ErrAlreadyGenerated):
		log.Debug().Msg("Month already generated")
	case errors.Is(err, service.ErrGenerationFailed):
		// Class data is broken; polling again would fail the same way.
		log.Error().Err(err).Str("marker", failedKey).
			Msg("Scheduled generation failed, halting until the marker is cleared or the month is generated manually")
		if setErr := w.rdb.Set(ctx, failedKey, err.Error(), GeneratedMarkerTTL).Err(); setErr != nil {
			log.Warn().Err(setErr).Msg("Failed to write failure marker")
		}
		return
	default:
		log.Error().Err(err).Msg("Scheduled generation failed, will retry")
		return
	}

	if err := w.rdb.Set(ctx, doneKey, "1", GeneratedMarkerTTL).Err(); err != nil {
		log.Warn().Err(err).Msg("Failed to write generation marker")
	}
}
