package workers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"lyceum/contexts/course-access/enrollment-service/adapters/memory"
	"lyceum/contexts/course-access/enrollment-service/domain/entities"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func TestRunOnceRevokesExpiredGrantedRecords(t *testing.T) {
	now := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	store.SeedEnrollment(entities.Enrollment{
		EnrollmentID:  "enr-expired",
		Status:        entities.StatusActive,
		AccessGranted: true,
		ExpiresAt:     now.Add(-time.Hour),
	})
	store.SeedEnrollment(entities.Enrollment{
		EnrollmentID:  "enr-live",
		Status:        entities.StatusActive,
		AccessGranted: true,
		ExpiresAt:     now.Add(time.Hour),
	})
	store.SeedEnrollment(entities.Enrollment{
		EnrollmentID:  "enr-already-swept",
		Status:        entities.StatusActive,
		AccessGranted: false,
		ExpiresAt:     now.Add(-time.Hour),
	})

	expirer := AccessExpirer{Store: store, Clock: fixedClock{now: now}}
	report, err := expirer.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if report.Processed != 1 || report.Failed != 0 {
		t.Fatalf("expected 1 processed 0 failed, got %+v", report)
	}

	expired, err := store.GetEnrollment(context.Background(), "enr-expired")
	if err != nil {
		t.Fatalf("get enrollment: %v", err)
	}
	if expired.AccessGranted {
		t.Fatal("expired enrollment must lose access")
	}
	live, err := store.GetEnrollment(context.Background(), "enr-live")
	if err != nil {
		t.Fatalf("get enrollment: %v", err)
	}
	if !live.AccessGranted {
		t.Fatal("unexpired enrollment must keep access")
	}
}

func TestRunOnceSecondPassIsNoop(t *testing.T) {
	now := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	store.SeedEnrollment(entities.Enrollment{
		EnrollmentID:  "enr-1",
		Status:        entities.StatusActive,
		AccessGranted: true,
		ExpiresAt:     now.Add(-time.Hour),
	})

	expirer := AccessExpirer{Store: store, Clock: fixedClock{now: now}}
	if _, err := expirer.RunOnce(context.Background()); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	report, err := expirer.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if report.Processed != 0 || report.Failed != 0 {
		t.Fatalf("second pass must touch nothing, got %+v", report)
	}
}

func TestRunOnceContinuesPastRecordFailures(t *testing.T) {
	now := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	for _, id := range []string{"enr-a", "enr-b", "enr-c"} {
		store.SeedEnrollment(entities.Enrollment{
			EnrollmentID:  id,
			Status:        entities.StatusActive,
			AccessGranted: true,
			ExpiresAt:     now.Add(-time.Hour),
		})
	}
	store.FailRevoke = map[string]error{"enr-b": errors.New("write timeout")}

	expirer := AccessExpirer{Store: store, Clock: fixedClock{now: now}}
	report, err := expirer.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if report.Processed != 2 {
		t.Fatalf("expected the two healthy records processed, got %d", report.Processed)
	}
	if report.Failed != 1 {
		t.Fatalf("expected one failure, got %d", report.Failed)
	}

	for _, id := range []string{"enr-a", "enr-c"} {
		record, err := store.GetEnrollment(context.Background(), id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if record.AccessGranted {
			t.Fatalf("%s should have been revoked", id)
		}
	}
	failed, err := store.GetEnrollment(context.Background(), "enr-b")
	if err != nil {
		t.Fatalf("get enr-b: %v", err)
	}
	if !failed.AccessGranted {
		t.Fatal("failed record must be left for the next pass")
	}
}

func TestRunOncePagesThroughLargeBacklogs(t *testing.T) {
	now := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	for i := 0; i < 7; i++ {
		store.SeedEnrollment(entities.Enrollment{
			EnrollmentID:  string(rune('a'+i)) + "-enr",
			Status:        entities.StatusActive,
			AccessGranted: true,
			ExpiresAt:     now.Add(-time.Hour),
		})
	}

	expirer := AccessExpirer{Store: store, Clock: fixedClock{now: now}, BatchSize: 3}
	report, err := expirer.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if report.Processed != 7 {
		t.Fatalf("expected all 7 processed across batches, got %d", report.Processed)
	}
}

func TestStatusReportsBacklogAndDrainsAfterSweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	store.SeedEnrollment(entities.Enrollment{
		EnrollmentID:  "enr-overdue",
		Status:        entities.StatusActive,
		AccessGranted: true,
		ExpiresAt:     now.Add(-time.Hour),
	})
	store.SeedEnrollment(entities.Enrollment{
		EnrollmentID:  "enr-live",
		Status:        entities.StatusActive,
		AccessGranted: true,
		ExpiresAt:     now.Add(time.Hour),
	})

	expirer := AccessExpirer{Store: store, Clock: fixedClock{now: now}}
	status, err := expirer.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Backlog != 1 || status.BacklogTruncated {
		t.Fatalf("expected backlog of 1, got %+v", status)
	}

	if _, err := expirer.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	status, err = expirer.Status(context.Background())
	if err != nil {
		t.Fatalf("status after sweep: %v", err)
	}
	if status.Backlog != 0 {
		t.Fatalf("expected drained backlog, got %d", status.Backlog)
	}
}

func TestExpiryNotifierWarnsOncePerEnrollment(t *testing.T) {
	now := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	store.SeedEnrollment(entities.Enrollment{
		EnrollmentID:  "enr-soon",
		StudentID:     "student-1",
		Status:        entities.StatusActive,
		AccessGranted: true,
		ExpiresAt:     now.Add(24 * time.Hour),
	})
	store.SeedEnrollment(entities.Enrollment{
		EnrollmentID:  "enr-far",
		StudentID:     "student-2",
		Status:        entities.StatusActive,
		AccessGranted: true,
		ExpiresAt:     now.Add(30 * 24 * time.Hour),
	})

	notifier := ExpiryNotifier{
		Store:         store,
		Notifications: store,
		Clock:         fixedClock{now: now},
		IDGenerator:   &countingIDs{},
		Window:        72 * time.Hour,
	}
	if err := notifier.RunOnce(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := notifier.RunOnce(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}

	warned := store.NotificationsFor("student-1")
	if len(warned) != 1 {
		t.Fatalf("expected exactly one warning despite two runs, got %d", len(warned))
	}
	if warned[0].Kind != "expiry_warning" {
		t.Fatalf("expected expiry_warning, got %q", warned[0].Kind)
	}
	if far := store.NotificationsFor("student-2"); len(far) != 0 {
		t.Fatalf("enrollment outside the window must not be warned, got %d", len(far))
	}
}

type countingIDs struct {
	n int
}

func (g *countingIDs) NewID(_ context.Context) (string, error) {
	g.n++
	return fmt.Sprintf("notif-%d", g.n), nil
}
