package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	application "lyceum/contexts/course-access/enrollment-service/application"
	"lyceum/contexts/course-access/enrollment-service/domain/entities"
	"lyceum/contexts/course-access/enrollment-service/domain/services"
	"lyceum/contexts/course-access/enrollment-service/ports"
)

const expiryWarningKind = "expiry_warning"

// ExpiryNotifier warns students whose access enters the expiry window. At
// most one warning per enrollment: the notification outbox is the dedup
// record, so overlapping runs stay idempotent.
type ExpiryNotifier struct {
	Store         ports.SweepStore
	Notifications ports.NotificationOutbox
	Clock         ports.Clock
	IDGenerator   ports.IDGenerator
	Window        time.Duration
	BatchSize     int
	Logger        *slog.Logger
}

func (n ExpiryNotifier) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(n.Logger)
	now := n.now()
	notified := 0

	afterID := ""
	for {
		batch, err := n.Store.ListExpiringSoon(ctx, now, n.window(), afterID, n.batchSize())
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}
		for _, enrollment := range batch {
			if !services.IsExpiringSoon(enrollment, now, n.window()) {
				continue
			}
			already, err := n.Notifications.HasNotification(ctx, enrollment.EnrollmentID, expiryWarningKind)
			if err != nil || already {
				continue
			}
			notificationID, err := n.IDGenerator.NewID(ctx)
			if err != nil {
				continue
			}
			remaining := services.TimeRemaining(enrollment, now)
			if err := n.Notifications.AppendNotification(ctx, entities.NotificationRecord{
				NotificationID: notificationID,
				StudentID:      enrollment.StudentID,
				EnrollmentID:   enrollment.EnrollmentID,
				Kind:           expiryWarningKind,
				Message:        fmt.Sprintf("Your course access expires in %dh.", int(remaining.Hours())),
				CreatedAt:      now,
			}); err != nil {
				logger.Warn("expiry warning append failed",
					"event", "enrollment_expiry_warning_failed",
					"module", "course-access/enrollment-service",
					"layer", "worker",
					"enrollment_id", enrollment.EnrollmentID,
					"error", err.Error(),
				)
				continue
			}
			notified++
		}
		afterID = batch[len(batch)-1].EnrollmentID
		if len(batch) < n.batchSize() {
			break
		}
	}

	if notified > 0 {
		logger.Info("expiry warnings sent",
			"event", "enrollment_expiry_warnings_sent",
			"module", "course-access/enrollment-service",
			"layer", "worker",
			"notified", notified,
		)
	}
	return nil
}

func (n ExpiryNotifier) window() time.Duration {
	if n.Window <= 0 {
		return services.DefaultExpiryWarningWindow
	}
	return n.Window
}

func (n ExpiryNotifier) batchSize() int {
	if n.BatchSize <= 0 {
		return DefaultSweepBatchSize
	}
	return n.BatchSize
}

func (n ExpiryNotifier) now() time.Time {
	if n.Clock != nil {
		return n.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
