package commands

import (
	"context"
	"log/slog"

	application "lyceum/contexts/course-access/enrollment-service/application"
	"lyceum/contexts/course-access/enrollment-service/ports"
)

// DeletePaymentSlipCommand removes a slip and any enrollments still waiting
// on it. An enrollment whose access was already granted survives: paid-for
// access never disappears because its originating slip was cleaned up.
type DeletePaymentSlipCommand struct {
	SlipID string
}

type DeletePaymentSlipResult struct {
	SlipID              string   `json:"slip_id"`
	DeletedEnrollments  []string `json:"deleted_enrollments"`
	SurvivedEnrollments []string `json:"survived_enrollments"`
}

type DeletePaymentSlipUseCase struct {
	Slips       ports.PaymentSlipRepository
	Enrollments ports.EnrollmentRepository
	Logger      *slog.Logger
}

func (u DeletePaymentSlipUseCase) Execute(ctx context.Context, cmd DeletePaymentSlipCommand) (DeletePaymentSlipResult, error) {
	logger := application.ResolveLogger(u.Logger)

	if _, err := u.Slips.GetSlip(ctx, cmd.SlipID); err != nil {
		return DeletePaymentSlipResult{}, err
	}

	linked, err := u.Enrollments.ListEnrollmentsBySlip(ctx, cmd.SlipID)
	if err != nil {
		return DeletePaymentSlipResult{}, err
	}

	result := DeletePaymentSlipResult{SlipID: cmd.SlipID}
	for _, enrollment := range linked {
		if enrollment.AccessGranted {
			result.SurvivedEnrollments = append(result.SurvivedEnrollments, enrollment.EnrollmentID)
			continue
		}
		if err := u.Enrollments.DeleteEnrollment(ctx, enrollment.EnrollmentID); err != nil {
			return DeletePaymentSlipResult{}, err
		}
		result.DeletedEnrollments = append(result.DeletedEnrollments, enrollment.EnrollmentID)
	}

	if err := u.Slips.DeleteSlip(ctx, cmd.SlipID); err != nil {
		return DeletePaymentSlipResult{}, err
	}

	logger.Info("payment slip deleted",
		"event", "payment_slip_deleted",
		"module", "course-access/enrollment-service",
		"layer", "application",
		"slip_id", cmd.SlipID,
		"deleted_enrollments", len(result.DeletedEnrollments),
		"survived_enrollments", len(result.SurvivedEnrollments),
	)
	return result, nil
}
