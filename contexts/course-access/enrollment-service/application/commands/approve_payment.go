package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	application "lyceum/contexts/course-access/enrollment-service/application"
	"lyceum/contexts/course-access/enrollment-service/domain/entities"
	domainerrors "lyceum/contexts/course-access/enrollment-service/domain/errors"
	"lyceum/contexts/course-access/enrollment-service/ports"
)

// ApprovePaymentCommand approves one pending payment slip.
type ApprovePaymentCommand struct {
	SlipID     string
	ReviewerID string
}

// ApprovePaymentResult reports the granted enrollment.
type ApprovePaymentResult struct {
	SlipID          string    `json:"slip_id"`
	EnrollmentID    string    `json:"enrollment_id"`
	EnrollmentIsNew bool      `json:"enrollment_is_new"`
	StartDate       time.Time `json:"start_date"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// ApprovePaymentUseCase turns a pending slip into granted access. It builds
// the complete approval write set up front, validates it, and submits it
// through the atomic approval store: slip approval without granted access
// (or the reverse) cannot be committed.
type ApprovePaymentUseCase struct {
	Slips       ports.PaymentSlipRepository
	Enrollments ports.EnrollmentRepository
	Courses     ports.CourseCatalog
	Approvals   ports.ApprovalStore
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (u ApprovePaymentUseCase) Execute(ctx context.Context, cmd ApprovePaymentCommand) (ApprovePaymentResult, error) {
	logger := application.ResolveLogger(u.Logger)
	logger.Info("payment approval started",
		"event", "payment_approval_started",
		"module", "course-access/enrollment-service",
		"layer", "application",
		"slip_id", cmd.SlipID,
		"reviewer_id", cmd.ReviewerID,
	)

	slip, err := u.Slips.GetSlip(ctx, cmd.SlipID)
	if err != nil {
		return ApprovePaymentResult{}, err
	}
	if slip.Status != entities.SlipPending {
		return ApprovePaymentResult{}, domainerrors.ErrSlipNotPending
	}
	if !entities.IsValidDuration(slip.SelectedDuration) {
		return ApprovePaymentResult{}, domainerrors.ErrInvalidDuration
	}

	// Fail closed when the course is gone; approving payment for a deleted
	// course would grant access to nothing and still book revenue.
	course, err := u.Courses.GetCourse(ctx, slip.CourseID)
	if err != nil {
		return ApprovePaymentResult{}, err
	}

	existing, found, err := u.Enrollments.FindEnrollment(ctx, slip.StudentID, slip.CourseID)
	if err != nil {
		return ApprovePaymentResult{}, err
	}

	now := u.now()
	expiresAt := now.AddDate(0, slip.SelectedDuration, 0)

	enrollment := existing
	enrollmentIsNew := !found
	if enrollmentIsNew {
		enrollmentID, err := u.IDGenerator.NewID(ctx)
		if err != nil {
			return ApprovePaymentResult{}, err
		}
		enrollment = entities.Enrollment{
			EnrollmentID: enrollmentID,
			CourseID:     slip.CourseID,
			StudentID:    slip.StudentID,
			OwnerID:      course.OwnerID,
			CreatedAt:    now,
		}
	}
	enrollment.StartDate = now
	enrollment.ExpiresAt = expiresAt
	enrollment.SelectedDuration = slip.SelectedDuration
	enrollment.Status = entities.StatusActive
	enrollment.AccessGranted = true
	enrollment.PaymentSlipID = slip.SlipID
	enrollment.PricePaidCents = slip.AmountCents
	enrollment.UpdatedAt = now

	approvedSlip := slip
	approvedSlip.Status = entities.SlipApproved
	approvedSlip.ReviewedAt = &now
	approvedSlip.ReviewedBy = cmd.ReviewerID

	revenueID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return ApprovePaymentResult{}, err
	}
	notificationID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return ApprovePaymentResult{}, err
	}

	effects := ports.ApprovalEffects{
		Slip:            approvedSlip,
		Enrollment:      enrollment,
		EnrollmentIsNew: enrollmentIsNew,
		Revenue: entities.RevenueRecord{
			RevenueID:    revenueID,
			SlipID:       slip.SlipID,
			EnrollmentID: enrollment.EnrollmentID,
			CourseID:     slip.CourseID,
			OwnerID:      course.OwnerID,
			AmountCents:  slip.AmountCents,
			RecordedAt:   now,
		},
		Notification: entities.NotificationRecord{
			NotificationID: notificationID,
			StudentID:      slip.StudentID,
			EnrollmentID:   enrollment.EnrollmentID,
			SlipID:         slip.SlipID,
			Kind:           "payment_approved",
			Message:        fmt.Sprintf("Your payment for %q was approved. Access runs until %s.", course.Title, expiresAt.Format("2006-01-02")),
			CreatedAt:      now,
		},
	}
	if err := effects.Validate(); err != nil {
		return ApprovePaymentResult{}, err
	}

	if err := u.Approvals.ApplyApproval(ctx, effects); err != nil {
		logger.Error("payment approval write failed",
			"event", "payment_approval_write_failed",
			"module", "course-access/enrollment-service",
			"layer", "application",
			"slip_id", cmd.SlipID,
			"error", err.Error(),
		)
		return ApprovePaymentResult{}, err
	}

	logger.Info("payment approval completed",
		"event", "payment_approval_completed",
		"module", "course-access/enrollment-service",
		"layer", "application",
		"slip_id", cmd.SlipID,
		"enrollment_id", enrollment.EnrollmentID,
		"enrollment_is_new", enrollmentIsNew,
		"expires_at", expiresAt.Format(time.RFC3339),
	)
	return ApprovePaymentResult{
		SlipID:          slip.SlipID,
		EnrollmentID:    enrollment.EnrollmentID,
		EnrollmentIsNew: enrollmentIsNew,
		StartDate:       now,
		ExpiresAt:       expiresAt,
	}, nil
}

func (u ApprovePaymentUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
