package services

import (
	"time"

	"lyceum/contexts/course-access/enrollment-service/domain/entities"
)

// DenialReason explains a denied access decision.
type DenialReason string

const (
	ReasonNotActive DenialReason = "NOT_ACTIVE"
	ReasonExpired   DenialReason = "EXPIRED"
)

// AccessDecision is the calculator's result for one enrollment.
type AccessDecision struct {
	Granted bool
	Reason  DenialReason // empty when granted
}

// DefaultExpiryWarningWindow is how far ahead of expiry warning logic looks.
const DefaultExpiryWarningWindow = 72 * time.Hour

// CalculateAccess decides whether an enrollment currently grants access.
// Pure function of (status, expiresAt, now); now must be server time, never
// client-supplied, so clock skew cannot extend a window. Checked in order:
// non-active status wins over expiry.
func CalculateAccess(e entities.Enrollment, now time.Time) AccessDecision {
	if e.Status != entities.StatusActive {
		return AccessDecision{Reason: ReasonNotActive}
	}
	if !e.ExpiresAt.After(now) {
		return AccessDecision{Reason: ReasonExpired}
	}
	return AccessDecision{Granted: true}
}

// CalculateBatchAccess applies CalculateAccess to many records for the sweep
// job. Side-effect free; results index-align with the input.
func CalculateBatchAccess(list []entities.Enrollment, now time.Time) []AccessDecision {
	decisions := make([]AccessDecision, len(list))
	for i, e := range list {
		decisions[i] = CalculateAccess(e, now)
	}
	return decisions
}

// TimeRemaining reports how long until expiry, zero when already expired.
// Read-only helper for warning logic, never an access decision input.
func TimeRemaining(e entities.Enrollment, now time.Time) time.Duration {
	remaining := e.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsExpiringSoon reports whether a currently-accessible enrollment enters
// the warning window. window <= 0 uses the default.
func IsExpiringSoon(e entities.Enrollment, now time.Time, window time.Duration) bool {
	if window <= 0 {
		window = DefaultExpiryWarningWindow
	}
	if !CalculateAccess(e, now).Granted {
		return false
	}
	return e.ExpiresAt.Sub(now) <= window
}
