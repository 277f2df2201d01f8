package commands

import (
	"context"
	"log/slog"
	"time"

	application "lyceum/contexts/course-access/enrollment-service/application"
	"lyceum/contexts/course-access/enrollment-service/domain/entities"
	domainerrors "lyceum/contexts/course-access/enrollment-service/domain/errors"
	"lyceum/contexts/course-access/enrollment-service/ports"
)

// SubmitPaymentCommand records an uploaded payment slip for review. Access
// is withheld until a human approves the slip.
type SubmitPaymentCommand struct {
	StudentID        string
	CourseID         string
	AmountCents      int64
	SelectedDuration int
	SlipImageURL     string
}

type SubmitPaymentResult struct {
	SlipID       string `json:"slip_id"`
	EnrollmentID string `json:"enrollment_id"`
}

type SubmitPaymentUseCase struct {
	Slips       ports.PaymentSlipRepository
	Enrollments ports.EnrollmentRepository
	Courses     ports.CourseCatalog
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (u SubmitPaymentUseCase) Execute(ctx context.Context, cmd SubmitPaymentCommand) (SubmitPaymentResult, error) {
	logger := application.ResolveLogger(u.Logger)
	if !entities.IsValidDuration(cmd.SelectedDuration) {
		return SubmitPaymentResult{}, domainerrors.ErrInvalidDuration
	}
	course, err := u.Courses.GetCourse(ctx, cmd.CourseID)
	if err != nil {
		return SubmitPaymentResult{}, err
	}

	now := u.now()
	slipID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return SubmitPaymentResult{}, err
	}
	slip := entities.PaymentSlip{
		SlipID:           slipID,
		StudentID:        cmd.StudentID,
		CourseID:         cmd.CourseID,
		OwnerID:          course.OwnerID,
		AmountCents:      cmd.AmountCents,
		SelectedDuration: cmd.SelectedDuration,
		SlipImageURL:     cmd.SlipImageURL,
		Status:           entities.SlipPending,
		CreatedAt:        now,
	}
	if err := u.Slips.CreateSlip(ctx, slip); err != nil {
		return SubmitPaymentResult{}, err
	}

	// A pending enrollment is created only when the student has none yet;
	// re-purchases ride on the existing record at approval time.
	existing, found, err := u.Enrollments.FindEnrollment(ctx, cmd.StudentID, cmd.CourseID)
	if err != nil {
		return SubmitPaymentResult{}, err
	}
	enrollmentID := existing.EnrollmentID
	if !found {
		enrollmentID, err = u.IDGenerator.NewID(ctx)
		if err != nil {
			return SubmitPaymentResult{}, err
		}
		if err := u.Enrollments.CreateEnrollment(ctx, entities.Enrollment{
			EnrollmentID:     enrollmentID,
			CourseID:         cmd.CourseID,
			StudentID:        cmd.StudentID,
			OwnerID:          course.OwnerID,
			SelectedDuration: cmd.SelectedDuration,
			Status:           entities.StatusPending,
			AccessGranted:    false,
			PaymentSlipID:    slipID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}); err != nil {
			return SubmitPaymentResult{}, err
		}
	}

	logger.Info("payment slip submitted",
		"event", "payment_slip_submitted",
		"module", "course-access/enrollment-service",
		"layer", "application",
		"slip_id", slipID,
		"student_id", cmd.StudentID,
		"course_id", cmd.CourseID,
	)
	return SubmitPaymentResult{SlipID: slipID, EnrollmentID: enrollmentID}, nil
}

func (u SubmitPaymentUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
