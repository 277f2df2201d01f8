package ports

import (
	"context"
	"strings"
	"time"

	"lyceum/contexts/course-access/enrollment-service/domain/entities"
	domainerrors "lyceum/contexts/course-access/enrollment-service/domain/errors"
)

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type CourseCatalog interface {
	GetCourse(ctx context.Context, courseID string) (entities.Course, error)
}

type EnrollmentRepository interface {
	GetEnrollment(ctx context.Context, enrollmentID string) (entities.Enrollment, error)
	// FindEnrollment looks up the single enrollment for (studentID, courseID);
	// found is false when none exists.
	FindEnrollment(ctx context.Context, studentID, courseID string) (enrollment entities.Enrollment, found bool, err error)
	CreateEnrollment(ctx context.Context, enrollment entities.Enrollment) error
	UpdateEnrollment(ctx context.Context, enrollment entities.Enrollment) error
	DeleteEnrollment(ctx context.Context, enrollmentID string) error
	ListEnrollmentsBySlip(ctx context.Context, slipID string) ([]entities.Enrollment, error)
}

// SweepStore is the bounded-batch query surface of the expiry sweep.
type SweepStore interface {
	// ListExpiredGranted pages, ordered by enrollment id, through records
	// with accessGranted still true and expiresAt at or before now.
	ListExpiredGranted(ctx context.Context, now time.Time, afterID string, limit int) ([]entities.Enrollment, error)
	// RevokeAccess flips accessGranted to false. Implementations guard on
	// accessGranted = true so an already-swept record is a no-op.
	RevokeAccess(ctx context.Context, enrollmentID string, now time.Time) error
	// ListExpiringSoon pages through granted records whose expiry falls
	// inside (now, now+window], for warning notifications.
	ListExpiringSoon(ctx context.Context, now time.Time, window time.Duration, afterID string, limit int) ([]entities.Enrollment, error)
}

type PaymentSlipRepository interface {
	GetSlip(ctx context.Context, slipID string) (entities.PaymentSlip, error)
	CreateSlip(ctx context.Context, slip entities.PaymentSlip) error
	UpdateSlip(ctx context.Context, slip entities.PaymentSlip) error
	DeleteSlip(ctx context.Context, slipID string) error
}

type NotificationOutbox interface {
	AppendNotification(ctx context.Context, record entities.NotificationRecord) error
	// HasNotification deduplicates warning notifications per enrollment.
	HasNotification(ctx context.Context, enrollmentID, kind string) (bool, error)
}

type RevenueLedger interface {
	ListRevenueBySlip(ctx context.Context, slipID string) ([]entities.RevenueRecord, error)
}

// ApprovalEffects is the complete write set of one payment approval. The
// command layer builds and validates it in full before submission, so a
// partially-applied approval cannot be expressed, only a whole one.
type ApprovalEffects struct {
	Slip            entities.PaymentSlip
	Enrollment      entities.Enrollment
	EnrollmentIsNew bool
	Revenue         entities.RevenueRecord
	Notification    entities.NotificationRecord
}

// Validate rejects effect sets that would commit a damaged approval.
func (e ApprovalEffects) Validate() error {
	switch {
	case e.Slip.Status != entities.SlipApproved,
		e.Slip.ReviewedAt == nil,
		strings.TrimSpace(e.Slip.SlipID) == "",
		!e.Enrollment.AccessGranted,
		e.Enrollment.Status != entities.StatusActive,
		strings.TrimSpace(e.Enrollment.EnrollmentID) == "",
		e.Enrollment.PaymentSlipID != e.Slip.SlipID,
		strings.TrimSpace(e.Revenue.RevenueID) == "",
		e.Revenue.SlipID != e.Slip.SlipID,
		e.Revenue.EnrollmentID != e.Enrollment.EnrollmentID,
		strings.TrimSpace(e.Notification.NotificationID) == "",
		e.Notification.SlipID != e.Slip.SlipID:
		return domainerrors.ErrIncompleteApproval
	}
	return nil
}

// ApprovalStore commits one approval atomically: slip transition, enrollment
// upsert, revenue append, and notification append land together or not at
// all. Implementations must fail with ErrSlipNotPending when the slip is no
// longer pending at commit time (concurrent approval) and with
// ErrApprovalConflict on serialization conflicts, leaving no writes behind.
type ApprovalStore interface {
	ApplyApproval(ctx context.Context, effects ApprovalEffects) error
}
