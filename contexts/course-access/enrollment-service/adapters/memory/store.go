package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"lyceum/contexts/course-access/enrollment-service/domain/entities"
	domainerrors "lyceum/contexts/course-access/enrollment-service/domain/errors"
	"lyceum/contexts/course-access/enrollment-service/ports"
)

// Store is the in-memory implementation of every enrollment-service port,
// used by tests and local development. Approval commits under one lock so
// the atomicity contract matches the postgres adapter; failure injection
// hooks simulate mid-transaction faults and per-record sweep errors.
type Store struct {
	mu sync.RWMutex

	coursesByID       map[string]entities.Course
	enrollmentsByID   map[string]entities.Enrollment
	slipsByID         map[string]entities.PaymentSlip
	revenueByID       map[string]entities.RevenueRecord
	notificationsByID map[string]entities.NotificationRecord

	// BeforeApprovalCommit runs inside ApplyApproval after the slip check
	// and before any state mutates; returning an error aborts the whole
	// approval with no writes, emulating a transaction rollback.
	BeforeApprovalCommit func() error
	// FailRevoke makes RevokeAccess fail for specific enrollment ids.
	FailRevoke map[string]error
}

func NewStore() *Store {
	return &Store{
		coursesByID:       make(map[string]entities.Course),
		enrollmentsByID:   make(map[string]entities.Enrollment),
		slipsByID:         make(map[string]entities.PaymentSlip),
		revenueByID:       make(map[string]entities.RevenueRecord),
		notificationsByID: make(map[string]entities.NotificationRecord),
	}
}

func (s *Store) SeedCourse(course entities.Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coursesByID[course.CourseID] = course
}

func (s *Store) SeedEnrollment(enrollment entities.Enrollment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrollmentsByID[enrollment.EnrollmentID] = enrollment
}

func (s *Store) SeedSlip(slip entities.PaymentSlip) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slipsByID[slip.SlipID] = slip
}

func (s *Store) GetCourse(_ context.Context, courseID string) (entities.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	course, ok := s.coursesByID[courseID]
	if !ok {
		return entities.Course{}, domainerrors.ErrCourseNotFound
	}
	return course, nil
}

func (s *Store) GetEnrollment(_ context.Context, enrollmentID string) (entities.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	enrollment, ok := s.enrollmentsByID[enrollmentID]
	if !ok {
		return entities.Enrollment{}, domainerrors.ErrEnrollmentNotFound
	}
	return enrollment, nil
}

func (s *Store) FindEnrollment(_ context.Context, studentID, courseID string) (entities.Enrollment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, enrollment := range s.enrollmentsByID {
		if enrollment.StudentID == studentID && enrollment.CourseID == courseID {
			return enrollment, true, nil
		}
	}
	return entities.Enrollment{}, false, nil
}

func (s *Store) CreateEnrollment(_ context.Context, enrollment entities.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrollmentsByID[enrollment.EnrollmentID] = enrollment
	return nil
}

func (s *Store) UpdateEnrollment(_ context.Context, enrollment entities.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.enrollmentsByID[enrollment.EnrollmentID]; !ok {
		return domainerrors.ErrEnrollmentNotFound
	}
	s.enrollmentsByID[enrollment.EnrollmentID] = enrollment
	return nil
}

func (s *Store) DeleteEnrollment(_ context.Context, enrollmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.enrollmentsByID[enrollmentID]; !ok {
		return domainerrors.ErrEnrollmentNotFound
	}
	delete(s.enrollmentsByID, enrollmentID)
	return nil
}

func (s *Store) ListEnrollmentsBySlip(_ context.Context, slipID string) ([]entities.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var linked []entities.Enrollment
	for _, enrollment := range s.enrollmentsByID {
		if enrollment.PaymentSlipID == slipID {
			linked = append(linked, enrollment)
		}
	}
	sortEnrollments(linked)
	return linked, nil
}

func (s *Store) ListExpiredGranted(_ context.Context, now time.Time, afterID string, limit int) ([]entities.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var candidates []entities.Enrollment
	for _, enrollment := range s.enrollmentsByID {
		if enrollment.AccessGranted && !enrollment.ExpiresAt.After(now) && enrollment.EnrollmentID > afterID {
			candidates = append(candidates, enrollment)
		}
	}
	sortEnrollments(candidates)
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (s *Store) RevokeAccess(_ context.Context, enrollmentID string, now time.Time) error {
	if err, ok := s.FailRevoke[enrollmentID]; ok {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	enrollment, ok := s.enrollmentsByID[enrollmentID]
	if !ok {
		return domainerrors.ErrEnrollmentNotFound
	}
	if !enrollment.AccessGranted {
		return nil
	}
	enrollment.AccessGranted = false
	enrollment.UpdatedAt = now
	s.enrollmentsByID[enrollmentID] = enrollment
	return nil
}

func (s *Store) ListExpiringSoon(_ context.Context, now time.Time, window time.Duration, afterID string, limit int) ([]entities.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	deadline := now.Add(window)
	var candidates []entities.Enrollment
	for _, enrollment := range s.enrollmentsByID {
		if enrollment.AccessGranted &&
			enrollment.ExpiresAt.After(now) &&
			!enrollment.ExpiresAt.After(deadline) &&
			enrollment.EnrollmentID > afterID {
			candidates = append(candidates, enrollment)
		}
	}
	sortEnrollments(candidates)
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (s *Store) GetSlip(_ context.Context, slipID string) (entities.PaymentSlip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slip, ok := s.slipsByID[slipID]
	if !ok {
		return entities.PaymentSlip{}, domainerrors.ErrSlipNotFound
	}
	return slip, nil
}

func (s *Store) CreateSlip(_ context.Context, slip entities.PaymentSlip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slipsByID[slip.SlipID] = slip
	return nil
}

func (s *Store) UpdateSlip(_ context.Context, slip entities.PaymentSlip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slipsByID[slip.SlipID]; !ok {
		return domainerrors.ErrSlipNotFound
	}
	s.slipsByID[slip.SlipID] = slip
	return nil
}

func (s *Store) DeleteSlip(_ context.Context, slipID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slipsByID[slipID]; !ok {
		return domainerrors.ErrSlipNotFound
	}
	delete(s.slipsByID, slipID)
	return nil
}

func (s *Store) AppendNotification(_ context.Context, record entities.NotificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notificationsByID[record.NotificationID] = record
	return nil
}

func (s *Store) HasNotification(_ context.Context, enrollmentID, kind string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.notificationsByID {
		if record.EnrollmentID == enrollmentID && record.Kind == kind {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListRevenueBySlip(_ context.Context, slipID string) ([]entities.RevenueRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []entities.RevenueRecord
	for _, record := range s.revenueByID {
		if record.SlipID == slipID {
			records = append(records, record)
		}
	}
	return records, nil
}

// NotificationsFor returns all notifications for a student, oldest first.
func (s *Store) NotificationsFor(studentID string) []entities.NotificationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []entities.NotificationRecord
	for _, record := range s.notificationsByID {
		if record.StudentID == studentID {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.Before(records[j].CreatedAt) })
	return records
}

// ApplyApproval commits the whole approval under one lock. The slip must
// still be pending at commit time; any BeforeApprovalCommit error aborts
// with zero writes, like a rolled-back transaction.
func (s *Store) ApplyApproval(_ context.Context, effects ports.ApprovalEffects) error {
	if err := effects.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.slipsByID[effects.Slip.SlipID]
	if !ok {
		return domainerrors.ErrSlipNotFound
	}
	if current.Status != entities.SlipPending {
		return domainerrors.ErrSlipNotPending
	}
	if s.BeforeApprovalCommit != nil {
		if err := s.BeforeApprovalCommit(); err != nil {
			return err
		}
	}

	s.slipsByID[effects.Slip.SlipID] = effects.Slip
	s.enrollmentsByID[effects.Enrollment.EnrollmentID] = effects.Enrollment
	s.revenueByID[effects.Revenue.RevenueID] = effects.Revenue
	s.notificationsByID[effects.Notification.NotificationID] = effects.Notification
	return nil
}

func sortEnrollments(list []entities.Enrollment) {
	sort.Slice(list, func(i, j int) bool { return list[i].EnrollmentID < list[j].EnrollmentID })
}
