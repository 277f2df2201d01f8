package entities

import (
	"testing"
	"time"
)

func TestRecordLessonAppendsAndRecomputes(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	enrollment := Enrollment{EnrollmentID: "enr-1"}

	enrollment.RecordLesson("lesson-1", now, 4)
	enrollment.RecordLesson("lesson-2", now.Add(time.Hour), 4)
	if len(enrollment.Progress) != 2 {
		t.Fatalf("expected 2 progress entries, got %d", len(enrollment.Progress))
	}
	if enrollment.OverallProgress != 50 {
		t.Fatalf("expected 50%% overall, got %v", enrollment.OverallProgress)
	}
}

func TestRecordLessonIgnoresDuplicateCompletion(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	enrollment := Enrollment{EnrollmentID: "enr-1"}

	enrollment.RecordLesson("lesson-1", now, 4)
	enrollment.RecordLesson("lesson-1", now.Add(time.Hour), 4)
	if len(enrollment.Progress) != 1 {
		t.Fatalf("expected duplicate completion to be ignored, got %d entries", len(enrollment.Progress))
	}
	if enrollment.OverallProgress != 25 {
		t.Fatalf("expected 25%% overall, got %v", enrollment.OverallProgress)
	}
}

func TestIsValidDuration(t *testing.T) {
	for _, months := range ValidDurations {
		if !IsValidDuration(months) {
			t.Fatalf("expected %d months to be valid", months)
		}
	}
	for _, months := range []int{0, 1, 5, 24, -3} {
		if IsValidDuration(months) {
			t.Fatalf("expected %d months to be invalid", months)
		}
	}
}
