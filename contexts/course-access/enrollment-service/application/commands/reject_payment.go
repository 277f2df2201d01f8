package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "lyceum/contexts/course-access/enrollment-service/application"
	"lyceum/contexts/course-access/enrollment-service/domain/entities"
	domainerrors "lyceum/contexts/course-access/enrollment-service/domain/errors"
	"lyceum/contexts/course-access/enrollment-service/ports"
)

// RejectPaymentCommand rejects one pending slip with a human-entered reason.
type RejectPaymentCommand struct {
	SlipID     string
	ReviewerID string
	Reason     string
}

type RejectPaymentResult struct {
	SlipID     string    `json:"slip_id"`
	Reason     string    `json:"reason"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// RejectPaymentUseCase is the simple multi-write counterpart of approval:
// mark the slip rejected, notify the student, leave any enrollment alone.
type RejectPaymentUseCase struct {
	Slips         ports.PaymentSlipRepository
	Notifications ports.NotificationOutbox
	Clock         ports.Clock
	IDGenerator   ports.IDGenerator
	Logger        *slog.Logger
}

func (u RejectPaymentUseCase) Execute(ctx context.Context, cmd RejectPaymentCommand) (RejectPaymentResult, error) {
	logger := application.ResolveLogger(u.Logger)
	if strings.TrimSpace(cmd.Reason) == "" {
		return RejectPaymentResult{}, domainerrors.ErrRejectionReasonRequired
	}

	slip, err := u.Slips.GetSlip(ctx, cmd.SlipID)
	if err != nil {
		return RejectPaymentResult{}, err
	}
	if slip.Status != entities.SlipPending {
		return RejectPaymentResult{}, domainerrors.ErrSlipNotPending
	}

	now := u.now()
	slip.Status = entities.SlipRejected
	slip.RejectionReason = cmd.Reason
	slip.ReviewedAt = &now
	slip.ReviewedBy = cmd.ReviewerID
	if err := u.Slips.UpdateSlip(ctx, slip); err != nil {
		return RejectPaymentResult{}, err
	}

	notificationID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return RejectPaymentResult{}, err
	}
	if err := u.Notifications.AppendNotification(ctx, entities.NotificationRecord{
		NotificationID: notificationID,
		StudentID:      slip.StudentID,
		SlipID:         slip.SlipID,
		Kind:           "payment_rejected",
		Message:        "Your payment was rejected: " + cmd.Reason,
		CreatedAt:      now,
	}); err != nil {
		return RejectPaymentResult{}, err
	}

	logger.Info("payment rejected",
		"event", "payment_rejected",
		"module", "course-access/enrollment-service",
		"layer", "application",
		"slip_id", cmd.SlipID,
		"reviewer_id", cmd.ReviewerID,
	)
	return RejectPaymentResult{SlipID: slip.SlipID, Reason: cmd.Reason, ReviewedAt: now}, nil
}

func (u RejectPaymentUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
