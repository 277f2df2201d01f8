package commands

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"lyceum/contexts/course-access/enrollment-service/adapters/memory"
	"lyceum/contexts/course-access/enrollment-service/domain/entities"
	domainerrors "lyceum/contexts/course-access/enrollment-service/domain/errors"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type seqIDGenerator struct {
	prefix string
	n      int
}

func (g *seqIDGenerator) NewID(_ context.Context) (string, error) {
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n), nil
}

func approveFixture(store *memory.Store, now time.Time) ApprovePaymentUseCase {
	return ApprovePaymentUseCase{
		Slips:       store,
		Enrollments: store,
		Courses:     store,
		Approvals:   store,
		Clock:       fixedClock{now: now},
		IDGenerator: &seqIDGenerator{prefix: "id"},
	}
}

func seedPendingSlip(store *memory.Store, now time.Time, duration int) entities.PaymentSlip {
	store.SeedCourse(entities.Course{
		CourseID:   "course-1",
		OwnerID:    "owner-1",
		Title:      "Intro to Navigation",
		PriceCents: 150000,
		Published:  true,
	})
	slip := entities.PaymentSlip{
		SlipID:           "slip-1",
		StudentID:        "student-1",
		CourseID:         "course-1",
		OwnerID:          "owner-1",
		AmountCents:      150000,
		SelectedDuration: duration,
		SlipImageURL:     "https://cdn.example/slips/slip-1.jpg",
		Status:           entities.SlipPending,
		CreatedAt:        now.Add(-time.Hour),
	}
	store.SeedSlip(slip)
	return slip
}

func TestApprovePaymentGrantsSixMonthAccess(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	seedPendingSlip(store, now, 6)

	useCase := approveFixture(store, now)
	result, err := useCase.Execute(context.Background(), ApprovePaymentCommand{SlipID: "slip-1", ReviewerID: "admin-1"})
	if err != nil {
		t.Fatalf("approve payment: %v", err)
	}

	wantExpiry := now.AddDate(0, 6, 0)
	if !result.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected expiry %s, got %s", wantExpiry, result.ExpiresAt)
	}
	if !result.EnrollmentIsNew {
		t.Fatal("expected a new enrollment for a first-time student")
	}

	enrollment, err := store.GetEnrollment(context.Background(), result.EnrollmentID)
	if err != nil {
		t.Fatalf("get enrollment: %v", err)
	}
	if !enrollment.AccessGranted || enrollment.Status != entities.StatusActive {
		t.Fatalf("expected active granted enrollment, got %+v", enrollment)
	}
	if enrollment.PaymentSlipID != "slip-1" || enrollment.PricePaidCents != 150000 {
		t.Fatalf("enrollment not linked to slip: %+v", enrollment)
	}

	slip, err := store.GetSlip(context.Background(), "slip-1")
	if err != nil {
		t.Fatalf("get slip: %v", err)
	}
	if slip.Status != entities.SlipApproved || slip.ReviewedAt == nil || slip.ReviewedBy != "admin-1" {
		t.Fatalf("slip audit fields missing: %+v", slip)
	}

	revenue, err := store.ListRevenueBySlip(context.Background(), "slip-1")
	if err != nil {
		t.Fatalf("list revenue: %v", err)
	}
	if len(revenue) != 1 {
		t.Fatalf("expected exactly one revenue record, got %d", len(revenue))
	}
	if revenue[0].AmountCents != 150000 || revenue[0].OwnerID != "owner-1" {
		t.Fatalf("unexpected revenue record: %+v", revenue[0])
	}

	notifications := store.NotificationsFor("student-1")
	if len(notifications) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(notifications))
	}
	if notifications[0].Kind != "payment_approved" {
		t.Fatalf("expected payment_approved notification, got %q", notifications[0].Kind)
	}
}

func TestApprovePaymentReusesExistingEnrollment(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	seedPendingSlip(store, now, 3)
	store.SeedEnrollment(entities.Enrollment{
		EnrollmentID: "enr-1",
		CourseID:     "course-1",
		StudentID:    "student-1",
		OwnerID:      "owner-1",
		Status:       entities.StatusExpired,
		ExpiresAt:    now.Add(-30 * 24 * time.Hour),
		CreatedAt:    now.Add(-200 * 24 * time.Hour),
	})

	useCase := approveFixture(store, now)
	result, err := useCase.Execute(context.Background(), ApprovePaymentCommand{SlipID: "slip-1", ReviewerID: "admin-1"})
	if err != nil {
		t.Fatalf("approve payment: %v", err)
	}
	if result.EnrollmentIsNew {
		t.Fatal("re-purchase must ride on the existing enrollment")
	}
	if result.EnrollmentID != "enr-1" {
		t.Fatalf("expected enrollment enr-1, got %s", result.EnrollmentID)
	}

	enrollment, err := store.GetEnrollment(context.Background(), "enr-1")
	if err != nil {
		t.Fatalf("get enrollment: %v", err)
	}
	if !enrollment.AccessGranted || enrollment.Status != entities.StatusActive {
		t.Fatalf("existing enrollment not reactivated: %+v", enrollment)
	}
	if !enrollment.ExpiresAt.Equal(now.AddDate(0, 3, 0)) {
		t.Fatalf("expiry not recomputed from approval time: %s", enrollment.ExpiresAt)
	}
}

func TestApprovePaymentFailureLeavesNoPartialState(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	seedPendingSlip(store, now, 6)
	store.BeforeApprovalCommit = func() error {
		return errors.New("storage unavailable")
	}

	useCase := approveFixture(store, now)
	if _, err := useCase.Execute(context.Background(), ApprovePaymentCommand{SlipID: "slip-1", ReviewerID: "admin-1"}); err == nil {
		t.Fatal("expected approval to fail")
	}

	slip, err := store.GetSlip(context.Background(), "slip-1")
	if err != nil {
		t.Fatalf("get slip: %v", err)
	}
	if slip.Status != entities.SlipPending {
		t.Fatalf("failed approval must leave slip pending, got %q", slip.Status)
	}
	if _, found, err := store.FindEnrollment(context.Background(), "student-1", "course-1"); err != nil || found {
		t.Fatalf("failed approval must not create an enrollment (found=%v err=%v)", found, err)
	}
	revenue, err := store.ListRevenueBySlip(context.Background(), "slip-1")
	if err != nil {
		t.Fatalf("list revenue: %v", err)
	}
	if len(revenue) != 0 {
		t.Fatalf("failed approval must book no revenue, got %d records", len(revenue))
	}
	if got := store.NotificationsFor("student-1"); len(got) != 0 {
		t.Fatalf("failed approval must send no notification, got %d", len(got))
	}
}

func TestApprovePaymentRejectsNonPendingSlip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	slip := seedPendingSlip(store, now, 6)
	slip.Status = entities.SlipApproved
	store.SeedSlip(slip)

	useCase := approveFixture(store, now)
	_, err := useCase.Execute(context.Background(), ApprovePaymentCommand{SlipID: "slip-1", ReviewerID: "admin-2"})
	if !errors.Is(err, domainerrors.ErrSlipNotPending) {
		t.Fatalf("expected ErrSlipNotPending, got %v", err)
	}
}

func TestApprovePaymentFailsClosedWhenCourseMissing(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	store.SeedSlip(entities.PaymentSlip{
		SlipID:           "slip-1",
		StudentID:        "student-1",
		CourseID:         "course-gone",
		SelectedDuration: 6,
		Status:           entities.SlipPending,
		CreatedAt:        now,
	})

	useCase := approveFixture(store, now)
	_, err := useCase.Execute(context.Background(), ApprovePaymentCommand{SlipID: "slip-1", ReviewerID: "admin-1"})
	if !errors.Is(err, domainerrors.ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
}

func TestApprovePaymentRejectsInvalidDuration(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	seedPendingSlip(store, now, 5)

	useCase := approveFixture(store, now)
	_, err := useCase.Execute(context.Background(), ApprovePaymentCommand{SlipID: "slip-1", ReviewerID: "admin-1"})
	if !errors.Is(err, domainerrors.ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
}

func TestRejectPaymentRequiresReason(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	seedPendingSlip(store, now, 6)

	useCase := RejectPaymentUseCase{
		Slips:         store,
		Notifications: store,
		Clock:         fixedClock{now: now},
		IDGenerator:   &seqIDGenerator{prefix: "id"},
	}
	_, err := useCase.Execute(context.Background(), RejectPaymentCommand{SlipID: "slip-1", ReviewerID: "admin-1", Reason: "   "})
	if !errors.Is(err, domainerrors.ErrRejectionReasonRequired) {
		t.Fatalf("expected ErrRejectionReasonRequired, got %v", err)
	}

	slip, err := store.GetSlip(context.Background(), "slip-1")
	if err != nil {
		t.Fatalf("get slip: %v", err)
	}
	if slip.Status != entities.SlipPending {
		t.Fatalf("slip must stay pending without a reason, got %q", slip.Status)
	}
}

func TestRejectPaymentRecordsReasonAndNotifies(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	seedPendingSlip(store, now, 6)

	useCase := RejectPaymentUseCase{
		Slips:         store,
		Notifications: store,
		Clock:         fixedClock{now: now},
		IDGenerator:   &seqIDGenerator{prefix: "id"},
	}
	result, err := useCase.Execute(context.Background(), RejectPaymentCommand{
		SlipID:     "slip-1",
		ReviewerID: "admin-1",
		Reason:     "amount does not match the course price",
	})
	if err != nil {
		t.Fatalf("reject payment: %v", err)
	}
	if result.Reason == "" {
		t.Fatal("result must echo the reason")
	}

	slip, err := store.GetSlip(context.Background(), "slip-1")
	if err != nil {
		t.Fatalf("get slip: %v", err)
	}
	if slip.Status != entities.SlipRejected || slip.RejectionReason == "" || slip.ReviewedAt == nil {
		t.Fatalf("rejection audit fields missing: %+v", slip)
	}

	notifications := store.NotificationsFor("student-1")
	if len(notifications) != 1 || notifications[0].Kind != "payment_rejected" {
		t.Fatalf("expected one payment_rejected notification, got %+v", notifications)
	}

	// Any enrollment is untouched by rejection.
	if _, found, _ := store.FindEnrollment(context.Background(), "student-1", "course-1"); found {
		t.Fatal("rejection must not create an enrollment")
	}
}

func TestDeletePaymentSlipSparesGrantedEnrollments(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	seedPendingSlip(store, now, 6)
	store.SeedEnrollment(entities.Enrollment{
		EnrollmentID:  "enr-granted",
		CourseID:      "course-1",
		StudentID:     "student-1",
		PaymentSlipID: "slip-1",
		Status:        entities.StatusActive,
		AccessGranted: true,
		ExpiresAt:     now.Add(30 * 24 * time.Hour),
	})
	store.SeedEnrollment(entities.Enrollment{
		EnrollmentID:  "enr-pending",
		CourseID:      "course-2",
		StudentID:     "student-2",
		PaymentSlipID: "slip-1",
		Status:        entities.StatusPending,
		AccessGranted: false,
	})

	useCase := DeletePaymentSlipUseCase{Slips: store, Enrollments: store}
	result, err := useCase.Execute(context.Background(), DeletePaymentSlipCommand{SlipID: "slip-1"})
	if err != nil {
		t.Fatalf("delete slip: %v", err)
	}

	if len(result.DeletedEnrollments) != 1 || result.DeletedEnrollments[0] != "enr-pending" {
		t.Fatalf("expected enr-pending deleted, got %v", result.DeletedEnrollments)
	}
	if len(result.SurvivedEnrollments) != 1 || result.SurvivedEnrollments[0] != "enr-granted" {
		t.Fatalf("expected enr-granted spared, got %v", result.SurvivedEnrollments)
	}

	if _, err := store.GetEnrollment(context.Background(), "enr-granted"); err != nil {
		t.Fatalf("granted enrollment must survive: %v", err)
	}
	if _, err := store.GetEnrollment(context.Background(), "enr-pending"); !errors.Is(err, domainerrors.ErrEnrollmentNotFound) {
		t.Fatalf("pending enrollment must be deleted, got %v", err)
	}
	if _, err := store.GetSlip(context.Background(), "slip-1"); !errors.Is(err, domainerrors.ErrSlipNotFound) {
		t.Fatalf("slip must be deleted, got %v", err)
	}
}

func TestSubmitPaymentCreatesPendingRecords(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	store.SeedCourse(entities.Course{CourseID: "course-1", OwnerID: "owner-1", Title: "Intro", PriceCents: 150000})

	useCase := SubmitPaymentUseCase{
		Slips:       store,
		Enrollments: store,
		Courses:     store,
		Clock:       fixedClock{now: now},
		IDGenerator: &seqIDGenerator{prefix: "id"},
	}
	result, err := useCase.Execute(context.Background(), SubmitPaymentCommand{
		StudentID:        "student-1",
		CourseID:         "course-1",
		AmountCents:      150000,
		SelectedDuration: 12,
		SlipImageURL:     "https://cdn.example/slips/a.jpg",
	})
	if err != nil {
		t.Fatalf("submit payment: %v", err)
	}

	slip, err := store.GetSlip(context.Background(), result.SlipID)
	if err != nil {
		t.Fatalf("get slip: %v", err)
	}
	if slip.Status != entities.SlipPending {
		t.Fatalf("expected pending slip, got %q", slip.Status)
	}

	enrollment, err := store.GetEnrollment(context.Background(), result.EnrollmentID)
	if err != nil {
		t.Fatalf("get enrollment: %v", err)
	}
	if enrollment.AccessGranted || enrollment.Status != entities.StatusPending {
		t.Fatalf("submission must not grant access: %+v", enrollment)
	}
}

func TestSubmitPaymentRejectsInvalidDuration(t *testing.T) {
	store := memory.NewStore()
	useCase := SubmitPaymentUseCase{
		Slips:       store,
		Enrollments: store,
		Courses:     store,
		Clock:       fixedClock{now: time.Now()},
		IDGenerator: &seqIDGenerator{prefix: "id"},
	}
	_, err := useCase.Execute(context.Background(), SubmitPaymentCommand{
		StudentID:        "student-1",
		CourseID:         "course-1",
		SelectedDuration: 7,
	})
	if !errors.Is(err, domainerrors.ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
}
