package workers

import (
	"context"
	"log/slog"
	"time"

	application "lyceum/contexts/course-access/enrollment-service/application"
	"lyceum/contexts/course-access/enrollment-service/ports"
)

// DefaultSweepBatchSize keeps each pass inside the store's atomic-write
// limits and out of long-running transactions.
const DefaultSweepBatchSize = 400

// AccessExpirer sweeps enrollments whose expiry has passed but whose cached
// access flag is still true, and flips them off in bounded batches. The
// sweep converges records the lifecycle triggers missed (cold starts,
// dropped deliveries). Safe to re-run and to overlap: already-swept records
// are filtered out by the candidate query, and a per-record failure never
// aborts the rest of the batch.
type AccessExpirer struct {
	Store     ports.SweepStore
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// SweepReport summarizes one pass for operational visibility.
type SweepReport struct {
	Processed int
	Failed    int
	Duration  time.Duration
}

func (e AccessExpirer) RunOnce(ctx context.Context) (SweepReport, error) {
	logger := application.ResolveLogger(e.Logger)
	now := e.now()
	started := now
	report := SweepReport{}

	afterID := ""
	for {
		batch, err := e.Store.ListExpiredGranted(ctx, now, afterID, e.batchSize())
		if err != nil {
			logger.Error("access sweep query failed",
				"event", "enrollment_access_sweep_query_failed",
				"module", "course-access/enrollment-service",
				"layer", "worker",
				"error", err.Error(),
			)
			return report, err
		}
		if len(batch) == 0 {
			break
		}
		for _, enrollment := range batch {
			if err := e.Store.RevokeAccess(ctx, enrollment.EnrollmentID, now); err != nil {
				report.Failed++
				logger.Error("access sweep record failed",
					"event", "enrollment_access_sweep_record_failed",
					"module", "course-access/enrollment-service",
					"layer", "worker",
					"enrollment_id", enrollment.EnrollmentID,
					"error", err.Error(),
				)
				continue
			}
			report.Processed++
		}
		afterID = batch[len(batch)-1].EnrollmentID
		if len(batch) < e.batchSize() {
			break
		}
	}

	report.Duration = e.now().Sub(started)
	logger.Info("access sweep completed",
		"event", "enrollment_access_sweep_completed",
		"module", "course-access/enrollment-service",
		"layer", "worker",
		"processed", report.Processed,
		"failed", report.Failed,
		"duration", report.Duration.String(),
	)
	return report, nil
}

// SweepStatus is a point-in-time view of the sweep backlog.
type SweepStatus struct {
	Backlog          int
	BacklogTruncated bool
	CheckedAt        time.Time
}

// Status counts records currently eligible for sweeping, capped at one
// batch, so operators can see whether the sweep is keeping up.
func (e AccessExpirer) Status(ctx context.Context) (SweepStatus, error) {
	now := e.now()
	batch, err := e.Store.ListExpiredGranted(ctx, now, "", e.batchSize())
	if err != nil {
		return SweepStatus{}, err
	}
	return SweepStatus{
		Backlog:          len(batch),
		BacklogTruncated: len(batch) == e.batchSize(),
		CheckedAt:        now,
	}, nil
}

func (e AccessExpirer) batchSize() int {
	if e.BatchSize <= 0 {
		return DefaultSweepBatchSize
	}
	return e.BatchSize
}

func (e AccessExpirer) now() time.Time {
	if e.Clock != nil {
		return e.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
