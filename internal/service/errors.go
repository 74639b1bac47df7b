package service

import "errors"

// Admission errors. Each names one expected, caller-recoverable condition.
var (
	ErrAlreadyEnrolled = errors.New("member is already enrolled in this lesson")
	ErrNotEnrolled     = errors.New("member is not enrolled in this lesson")
	ErrQuotaExceeded   = errors.New("no remaining monthly lesson count")
	ErrPastDeadline    = errors.New("lesson has already started")
	ErrLessonFull      = errors.New("lesson has reached its member limit")
	ErrForbidden       = errors.New("caller may not act for this member")
)

// Lookup errors.
var (
	ErrMemberNotFound = errors.New("member not found")
	ErrLessonNotFound = errors.New("lesson not found")
)

// Generation errors.
var (
	ErrAlreadyGenerated = errors.New("lessons for the target month already exist")
	ErrGenerationFailed = errors.New("lesson generation failed")
)

// ErrEnrollmentIntegrity reports more than one stored row for a single
// (member, lesson) pair. It is a data fault, not a caller error.
var ErrEnrollmentIntegrity = errors.New("duplicate enrollment rows for one member and lesson")

// IsAdmissionDenied reports whether err is a business-rule denial of a join or leave.
func IsAdmissionDenied(err error) bool {
	return errors.Is(err, ErrAlreadyEnrolled) ||
		errors.Is(err, ErrNotEnrolled) ||
		errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrPastDeadline) ||
		errors.Is(err, ErrLessonFull)
}
