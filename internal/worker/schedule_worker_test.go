package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kilo-studio/kilo-backend/internal/clock"
	"github.com/kilo-studio/kilo-backend/internal/config"
	"github.com/kilo-studio/kilo-backend/internal/schedule"
	"github.com/kilo-studio/kilo-backend/internal/service"
)

func TestDue(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		day  int
		want bool
	}{
		{"disabled", time.Date(2024, time.January, 25, 0, 0, 0, 0, time.UTC), 0, false},
		{"before day", time.Date(2024, time.January, 24, 23, 59, 0, 0, time.UTC), 25, false},
		{"on day", time.Date(2024, time.January, 25, 0, 0, 0, 0, time.UTC), 25, true},
		{"after day", time.Date(2024, time.January, 31, 12, 0, 0, 0, time.UTC), 25, true},
		{"short month clamps", time.Date(2023, time.February, 28, 9, 0, 0, 0, time.UTC), 31, true},
		{"leap february not yet", time.Date(2024, time.February, 28, 9, 0, 0, 0, time.UTC), 31, false},
		{"leap february last day", time.Date(2024, time.February, 29, 9, 0, 0, 0, time.UTC), 31, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Due(tt.now, tt.day); got != tt.want {
				t.Errorf("Due(%s, %d) = %v, want %v", tt.now.Format(time.DateTime), tt.day, got, tt.want)
			}
		})
	}
}

// fakeRedis implements the commands the worker issues against an in-memory
// map. Any other command panics through the nil embedded interface.
type fakeRedis struct {
	redis.Cmdable
	keys map[string]string
	err  error
}

func newFakeRedis(keys map[string]string) *fakeRedis {
	r := &fakeRedis{keys: map[string]string{}}
	for k, v := range keys {
		r.keys[k] = v
	}
	return r
}

func (r *fakeRedis) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if r.err != nil {
		cmd.SetErr(r.err)
		return cmd
	}
	var n int64
	for _, k := range keys {
		if _, ok := r.keys[k]; ok {
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func (r *fakeRedis) SetNX(ctx context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	if r.err != nil {
		cmd.SetErr(r.err)
		return cmd
	}
	if _, ok := r.keys[key]; ok {
		cmd.SetVal(false)
		return cmd
	}
	r.keys[key] = fmt.Sprint(value)
	cmd.SetVal(true)
	return cmd
}

func (r *fakeRedis) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if r.err != nil {
		cmd.SetErr(r.err)
		return cmd
	}
	r.keys[key] = fmt.Sprint(value)
	cmd.SetVal("OK")
	return cmd
}

// EvalSha runs the compare-and-delete release script.
func (r *fakeRedis) EvalSha(ctx context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	cmd := redis.NewCmd(ctx)
	if r.err != nil {
		cmd.SetErr(r.err)
		return cmd
	}
	if v, ok := r.keys[keys[0]]; ok && v == fmt.Sprint(args[0]) {
		delete(r.keys, keys[0])
		cmd.SetVal(int64(1))
		return cmd
	}
	cmd.SetVal(int64(0))
	return cmd
}

type fakeGenerator struct {
	target schedule.Month
	err    error
	calls  int
}

func (g *fakeGenerator) TargetMonth() schedule.Month { return g.target }

func (g *fakeGenerator) GenerateNextMonth(context.Context) (*service.GenerationResult, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &service.GenerationResult{Month: g.target.String()}, nil
}

func TestRunOnce(t *testing.T) {
	target := schedule.MonthOf(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))
	doneKey := config.CacheKey.ScheduleGeneratedKey(target.Start())
	failedKey := config.CacheKey.ScheduleFailedKey(target.Start())
	lockKey := config.CacheKey.ScheduleGenerationLockKey(target.Start())

	onDay := time.Date(2024, time.January, 25, 3, 0, 0, 0, time.UTC)
	invalidClass := fmt.Errorf("%w: class 3: invalid start time", service.ErrGenerationFailed)

	tests := []struct {
		name       string
		now        time.Time
		preset     map[string]string
		redisErr   error
		genErr     error
		polls      int
		wantCalls  int
		wantKeys   []string
		absentKeys []string
	}{
		{
			name:       "not due",
			now:        onDay.AddDate(0, 0, -1),
			polls:      1,
			wantCalls:  0,
			absentKeys: []string{doneKey, failedKey, lockKey},
		},
		{
			name:       "generates once and marks done",
			now:        onDay,
			polls:      3,
			wantCalls:  1,
			wantKeys:   []string{doneKey},
			absentKeys: []string{failedKey, lockKey},
		},
		{
			name:      "done marker short-circuits",
			now:       onDay,
			preset:    map[string]string{doneKey: "1"},
			polls:     1,
			wantCalls: 0,
		},
		{
			name:       "lock held by another replica",
			now:        onDay,
			preset:     map[string]string{lockKey: "other"},
			polls:      1,
			wantCalls:  0,
			wantKeys:   []string{lockKey},
			absentKeys: []string{doneKey},
		},
		{
			name:       "already generated counts as done",
			now:        onDay,
			genErr:     service.ErrAlreadyGenerated,
			polls:      2,
			wantCalls:  1,
			wantKeys:   []string{doneKey},
			absentKeys: []string{failedKey, lockKey},
		},
		{
			name:       "generation failure halts retries",
			now:        onDay,
			genErr:     invalidClass,
			polls:      3,
			wantCalls:  1,
			wantKeys:   []string{failedKey},
			absentKeys: []string{doneKey, lockKey},
		},
		{
			name:      "failure marker short-circuits",
			now:       onDay,
			preset:    map[string]string{failedKey: "lesson generation failed"},
			polls:     1,
			wantCalls: 0,
		},
		{
			name:       "transient error is retried",
			now:        onDay,
			genErr:     errors.New("connection reset by peer"),
			polls:      3,
			wantCalls:  3,
			absentKeys: []string{doneKey, failedKey, lockKey},
		},
		{
			name:      "redis unavailable falls back to database lock",
			now:       onDay,
			redisErr:  errors.New("dial tcp 127.0.0.1:6379: connect: connection refused"),
			polls:     1,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rdb := newFakeRedis(tt.preset)
			rdb.err = tt.redisErr
			gen := &fakeGenerator{target: target, err: tt.genErr}
			w := NewScheduleWorker(gen, rdb, clock.NewFixed(tt.now), 25, time.Minute, zerolog.Nop())

			for range tt.polls {
				w.RunOnce(context.Background())
			}

			if gen.calls != tt.wantCalls {
				t.Errorf("GenerateNextMonth calls over %d polls: got %d, want %d", tt.polls, gen.calls, tt.wantCalls)
			}
			for _, k := range tt.wantKeys {
				if _, ok := rdb.keys[k]; !ok {
					t.Errorf("key %q missing", k)
				}
			}
			for _, k := range tt.absentKeys {
				if _, ok := rdb.keys[k]; ok {
					t.Errorf("key %q present, want absent", k)
				}
			}
		})
	}
}

func TestRunOnceRecordsFailureReason(t *testing.T) {
	target := schedule.MonthOf(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC))
	failedKey := config.CacheKey.ScheduleFailedKey(target.Start())

	rdb := newFakeRedis(nil)
	gen := &fakeGenerator{
		target: target,
		err:    fmt.Errorf("%w: class 3: invalid start time", service.ErrGenerationFailed),
	}
	w := NewScheduleWorker(gen, rdb, clock.NewFixed(time.Date(2024, time.January, 25, 0, 0, 0, 0, time.UTC)), 25, time.Minute, zerolog.Nop())
	w.RunOnce(context.Background())

	if got, want := rdb.keys[failedKey], gen.err.Error(); got != want {
		t.Errorf("failure marker: got %q, want %q", got, want)
	}

	// Clearing the marker lets the next poll try again.
	delete(rdb.keys, failedKey)
	gen.err = nil
	w.RunOnce(context.Background())
	if gen.calls != 2 {
		t.Fatalf("GenerateNextMonth calls: got %d, want 2", gen.calls)
	}
	if _, ok := rdb.keys[config.CacheKey.ScheduleGeneratedKey(target.Start())]; !ok {
		t.Error("done marker missing after manual recovery")
	}
}
