package services

import (
	"reflect"
	"testing"
	"time"

	"lyceum/contexts/course-access/enrollment-service/domain/entities"
)

func TestCalculateAccessGrantsActiveUnexpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	enrollment := entities.Enrollment{
		Status:    entities.StatusActive,
		ExpiresAt: now.Add(48 * time.Hour),
	}

	decision := CalculateAccess(enrollment, now)
	if !decision.Granted {
		t.Fatalf("expected access granted, got reason %q", decision.Reason)
	}
	if decision.Reason != "" {
		t.Fatalf("granted decision must carry no reason, got %q", decision.Reason)
	}
}

func TestCalculateAccessStatusWinsOverExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Both checks fail: non-active status must be the reported reason.
	enrollment := entities.Enrollment{
		Status:    entities.StatusCancelled,
		ExpiresAt: now.Add(-time.Hour),
	}

	decision := CalculateAccess(enrollment, now)
	if decision.Granted {
		t.Fatal("expected access denied")
	}
	if decision.Reason != ReasonNotActive {
		t.Fatalf("expected reason %q, got %q", ReasonNotActive, decision.Reason)
	}
}

func TestCalculateAccessExpiryBoundaryIsExclusive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	enrollment := entities.Enrollment{
		Status:    entities.StatusActive,
		ExpiresAt: now,
	}

	decision := CalculateAccess(enrollment, now)
	if decision.Granted {
		t.Fatal("expiresAt equal to now must deny access")
	}
	if decision.Reason != ReasonExpired {
		t.Fatalf("expected reason %q, got %q", ReasonExpired, decision.Reason)
	}

	enrollment.ExpiresAt = now.Add(time.Nanosecond)
	if !CalculateAccess(enrollment, now).Granted {
		t.Fatal("expiresAt one tick after now must grant access")
	}
}

func TestCalculateAccessIsPure(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	enrollment := entities.Enrollment{
		Status:        entities.StatusActive,
		ExpiresAt:     now.Add(time.Hour),
		AccessGranted: false,
	}
	snapshot := enrollment

	for i := 0; i < 3; i++ {
		decision := CalculateAccess(enrollment, now)
		if !decision.Granted {
			t.Fatalf("run %d: expected granted", i)
		}
	}
	if !reflect.DeepEqual(enrollment, snapshot) {
		t.Fatal("CalculateAccess must not mutate its input")
	}
}

func TestCalculateBatchAccessAlignsWithInput(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	list := []entities.Enrollment{
		{Status: entities.StatusActive, ExpiresAt: now.Add(time.Hour)},
		{Status: entities.StatusActive, ExpiresAt: now.Add(-time.Hour)},
		{Status: entities.StatusPending, ExpiresAt: now.Add(time.Hour)},
	}

	decisions := CalculateBatchAccess(list, now)
	if len(decisions) != len(list) {
		t.Fatalf("expected %d decisions, got %d", len(list), len(decisions))
	}
	if !decisions[0].Granted || decisions[1].Granted || decisions[2].Granted {
		t.Fatalf("unexpected decisions: %+v", decisions)
	}
	if decisions[1].Reason != ReasonExpired || decisions[2].Reason != ReasonNotActive {
		t.Fatalf("unexpected reasons: %+v", decisions)
	}
}

func TestTimeRemainingFloorsAtZero(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expired := entities.Enrollment{ExpiresAt: now.Add(-time.Hour)}
	if got := TimeRemaining(expired, now); got != 0 {
		t.Fatalf("expected zero remaining, got %s", got)
	}
	live := entities.Enrollment{ExpiresAt: now.Add(90 * time.Minute)}
	if got := TimeRemaining(live, now); got != 90*time.Minute {
		t.Fatalf("expected 90m remaining, got %s", got)
	}
}

func TestIsExpiringSoonRequiresCurrentAccess(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	inside := entities.Enrollment{Status: entities.StatusActive, ExpiresAt: now.Add(24 * time.Hour)}
	if !IsExpiringSoon(inside, now, 72*time.Hour) {
		t.Fatal("enrollment inside the window should warn")
	}

	outside := entities.Enrollment{Status: entities.StatusActive, ExpiresAt: now.Add(100 * time.Hour)}
	if IsExpiringSoon(outside, now, 72*time.Hour) {
		t.Fatal("enrollment outside the window should not warn")
	}

	cancelled := entities.Enrollment{Status: entities.StatusCancelled, ExpiresAt: now.Add(24 * time.Hour)}
	if IsExpiringSoon(cancelled, now, 72*time.Hour) {
		t.Fatal("enrollment without access should not warn")
	}
}
