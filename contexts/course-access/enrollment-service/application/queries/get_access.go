package queries

import (
	"context"
	"time"

	"lyceum/contexts/course-access/enrollment-service/domain/entities"
	"lyceum/contexts/course-access/enrollment-service/domain/services"
	"lyceum/contexts/course-access/enrollment-service/ports"
)

// AccessView is one enrollment plus the access decision computed against the
// server clock. Clients never supply the reference time.
type AccessView struct {
	Enrollment entities.Enrollment
	Decision   services.AccessDecision
	CheckedAt  time.Time
}

type GetAccessQuery struct {
	Enrollments ports.EnrollmentRepository
	Clock       ports.Clock
}

func (q GetAccessQuery) ByEnrollment(ctx context.Context, enrollmentID string) (AccessView, error) {
	enrollment, err := q.Enrollments.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return AccessView{}, err
	}
	now := q.now()
	return AccessView{
		Enrollment: enrollment,
		Decision:   services.CalculateAccess(enrollment, now),
		CheckedAt:  now,
	}, nil
}

func (q GetAccessQuery) ByStudentAndCourse(ctx context.Context, studentID, courseID string) (AccessView, bool, error) {
	enrollment, found, err := q.Enrollments.FindEnrollment(ctx, studentID, courseID)
	if err != nil || !found {
		return AccessView{}, found, err
	}
	now := q.now()
	return AccessView{
		Enrollment: enrollment,
		Decision:   services.CalculateAccess(enrollment, now),
		CheckedAt:  now,
	}, true, nil
}

func (q GetAccessQuery) now() time.Time {
	if q.Clock != nil {
		return q.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
