package triggers

import (
	"context"
	"log/slog"
	"time"

	application "lyceum/contexts/course-access/enrollment-service/application"
	"lyceum/contexts/course-access/enrollment-service/domain/entities"
	"lyceum/contexts/course-access/enrollment-service/domain/services"
	"lyceum/contexts/course-access/enrollment-service/ports"
)

// Effect is one corrective write the trigger wants performed. Handlers
// return effects instead of writing directly, which keeps idempotency and
// ordering testable without a live event bus.
type Effect struct {
	Enrollment entities.Enrollment
	Reason     string
}

// EnrollmentWriteHandler keeps the cached accessGranted flag consistent with
// the access calculator on every enrollment write. Re-processing the same
// (before, after) pair yields the same effects, or none once the record is
// already correct; delivery is at-least-once.
type EnrollmentWriteHandler struct {
	Clock  ports.Clock
	Logger *slog.Logger
}

func (h EnrollmentWriteHandler) Handle(ctx context.Context, before, after *entities.Enrollment) []Effect {
	logger := application.ResolveLogger(h.Logger)
	now := h.now()

	switch {
	case before == nil && after != nil:
		// A freshly-created record never gets to pick its own access flag.
		return h.reconcile(*after, now, "created")
	case before != nil && after != nil:
		if before.ExpiresAt.Equal(after.ExpiresAt) &&
			before.Status == after.Status &&
			before.AccessGranted == after.AccessGranted {
			// Still re-check the cache: this is the self-healing path for
			// records mutated outside the normal flow.
			return h.reconcile(*after, now, "healed")
		}
		return h.reconcile(*after, now, "updated")
	case before != nil && after == nil:
		logger.Info("enrollment deleted",
			"event", "enrollment_deleted",
			"module", "course-access/enrollment-service",
			"layer", "application",
			"enrollment_id", before.EnrollmentID,
			"student_id", before.StudentID,
			"course_id", before.CourseID,
		)
		return nil
	default:
		return nil
	}
}

func (h EnrollmentWriteHandler) reconcile(record entities.Enrollment, now time.Time, cause string) []Effect {
	logger := application.ResolveLogger(h.Logger)
	decision := services.CalculateAccess(record, now)
	if record.AccessGranted == decision.Granted {
		return nil
	}

	corrected := record
	corrected.AccessGranted = decision.Granted
	corrected.UpdatedAt = now
	reason := "granted"
	if !decision.Granted {
		reason = string(decision.Reason)
	}
	logger.Info("enrollment access cache corrected",
		"event", "enrollment_access_corrected",
		"module", "course-access/enrollment-service",
		"layer", "application",
		"enrollment_id", record.EnrollmentID,
		"cause", cause,
		"access_granted", decision.Granted,
		"reason", reason,
	)
	return []Effect{{Enrollment: corrected, Reason: reason}}
}

func (h EnrollmentWriteHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

// EffectApplier persists trigger effects through the repository.
type EffectApplier struct {
	Enrollments ports.EnrollmentRepository
	Logger      *slog.Logger
}

func (a EffectApplier) Apply(ctx context.Context, effects []Effect) error {
	logger := application.ResolveLogger(a.Logger)
	for _, effect := range effects {
		if err := a.Enrollments.UpdateEnrollment(ctx, effect.Enrollment); err != nil {
			logger.Error("trigger effect write failed",
				"event", "enrollment_effect_write_failed",
				"module", "course-access/enrollment-service",
				"layer", "application",
				"enrollment_id", effect.Enrollment.EnrollmentID,
				"error", err.Error(),
			)
			return err
		}
	}
	return nil
}
