package config

import (
	"fmt"
	"time"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ScheduleGenerationLockKey returns the lock key held while a replica generates
// the lessons of the month starting at monthStart.
func (r *CacheKeyStruct) ScheduleGenerationLockKey(monthStart time.Time) string {
	return fmt.Sprintf("schedule:%s:generate_lock", monthStart.Format("2006-01"))
}

// ScheduleGeneratedKey marks a month whose generation has already been handled.
func (r *CacheKeyStruct) ScheduleGeneratedKey(monthStart time.Time) string {
	return fmt.Sprintf("schedule:%s:generated", monthStart.Format("2006-01"))
}

// ScheduleFailedKey marks a month whose scheduled generation failed and must
// not be retried until an operator clears it.
func (r *CacheKeyStruct) ScheduleFailedKey(monthStart time.Time) string {
	return fmt.Sprintf("schedule:%s:failed", monthStart.Format("2006-01"))
}

var CacheKey = NewCacheKeyStruct()

// RateLimitKey returns the fixed-window counter key for subject in the
// window starting at windowStart.
func (r *CacheKeyStruct) RateLimitKey(subject string, windowStart time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%d", subject, windowStart.Unix())
}
