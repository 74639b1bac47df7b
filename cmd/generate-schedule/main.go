package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kilo-studio/kilo-backend/internal/clock"
	"github.com/kilo-studio/kilo-backend/internal/config"
	"github.com/kilo-studio/kilo-backend/internal/database"
	"github.com/kilo-studio/kilo-backend/internal/logger"
	"github.com/kilo-studio/kilo-backend/internal/repository"
	"github.com/kilo-studio/kilo-backend/internal/service"
)

func main() {
	var asOf string
	flag.StringVar(&asOf, "as-of", "", "Generate as if today were this date (YYYY-MM-DD); next month after it is created")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var clk clock.Clock = clock.New(cfg.Location)
	if asOf != "" {
		day, err := time.ParseInLocation(time.DateOnly, asOf, cfg.Location)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid -as-of %q: %v\n", asOf, err)
			os.Exit(2)
		}
		clk = clock.NewFixed(day)
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	store := repository.NewPostgres(pool)
	quotaService := service.NewQuotaService(store, clk)
	enrollmentService := service.NewEnrollmentService(store, quotaService, clk, log)
	scheduleService := service.NewScheduleService(store, enrollmentService, clk, log)

	target := scheduleService.TargetMonth()
	fmt.Printf("=== Generating lessons for %s ===\n", target)

	result, err := scheduleService.GenerateNextMonth(ctx)
	switch {
	case errors.Is(err, service.ErrAlreadyGenerated):
		fmt.Printf("Lessons for %s already exist, nothing to do.\n", target)
		return
	case err != nil:
		log.Fatal().Err(err).Msg("Generation failed")
	}

	for _, l := range result.Lessons {
		fmt.Printf("  #%-5d %-20s %s - %s  members %d\n",
			l.ID, l.ClassName,
			l.StartAt.Format("01/02 (Mon) 15:04"), l.EndAt.Format("15:04"),
			l.MemberCount)
	}
	for _, s := range result.Skipped {
		fmt.Printf("  skipped member %d for lesson %d: %s\n", s.MemberID, s.LessonID, s.Reason)
	}

	fmt.Printf("\nDone! Created %d lessons for %s, %d auto-enroll skips.\n",
		len(result.Lessons), result.Month, len(result.Skipped))
}
