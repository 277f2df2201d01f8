package entities

import "time"

// EnrollmentStatus is the lifecycle state of an enrollment.
type EnrollmentStatus string

const (
	StatusPending   EnrollmentStatus = "pending"
	StatusActive    EnrollmentStatus = "active"
	StatusExpired   EnrollmentStatus = "expired"
	StatusCancelled EnrollmentStatus = "cancelled"
)

// SlipStatus is the review state of a payment slip.
type SlipStatus string

const (
	SlipPending  SlipStatus = "pending"
	SlipApproved SlipStatus = "approved"
	SlipRejected SlipStatus = "rejected"
)

// ValidDurations are the purchasable access windows, in months.
var ValidDurations = []int{3, 6, 12}

// IsValidDuration reports whether months is a purchasable window.
func IsValidDuration(months int) bool {
	for _, d := range ValidDurations {
		if d == months {
			return true
		}
	}
	return false
}

// LessonProgress is one append-only per-lesson completion entry.
type LessonProgress struct {
	LessonID    string    `json:"lesson_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// Enrollment grants a student time-boxed access to one course.
// AccessGranted caches the access calculator's result; it is corrected by the
// lifecycle triggers and the expiry sweep, and set directly only inside the
// payment approval transaction.
type Enrollment struct {
	EnrollmentID     string
	CourseID         string
	StudentID        string
	OwnerID          string
	StartDate        time.Time
	ExpiresAt        time.Time
	SelectedDuration int // months: 3, 6, or 12
	Status           EnrollmentStatus
	AccessGranted    bool
	PaymentSlipID    string
	PricePaidCents   int64
	Progress         []LessonProgress
	OverallProgress  float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RecordLesson appends a completion entry and recomputes OverallProgress
// against the course's lesson count. Re-recording a completed lesson is a
// no-op; the progress log stays append-only.
func (e *Enrollment) RecordLesson(lessonID string, completedAt time.Time, totalLessons int) {
	for _, entry := range e.Progress {
		if entry.LessonID == lessonID {
			return
		}
	}
	e.Progress = append(e.Progress, LessonProgress{
		LessonID:    lessonID,
		CompletedAt: completedAt.UTC(),
	})
	if totalLessons > 0 {
		e.OverallProgress = float64(len(e.Progress)) / float64(totalLessons) * 100
	}
}

// PaymentSlip is the uploaded proof of an offline payment, reviewed by a
// human. Immutable once approved or rejected, except for audit fields.
type PaymentSlip struct {
	SlipID           string
	StudentID        string
	CourseID         string
	OwnerID          string
	AmountCents      int64
	SelectedDuration int
	SlipImageURL     string
	Status           SlipStatus
	RejectionReason  string
	ReviewedAt       *time.Time
	ReviewedBy       string
	CreatedAt        time.Time
}

// Course is the read-only course document consumed during approval.
type Course struct {
	CourseID   string
	OwnerID    string
	Title      string
	PriceCents int64
	Published  bool
}

// RevenueRecord is appended exactly once per successful approval.
type RevenueRecord struct {
	RevenueID    string
	SlipID       string
	EnrollmentID string
	CourseID     string
	OwnerID      string
	AmountCents  int64
	RecordedAt   time.Time
}

// NotificationRecord is appended for the student on review outcomes and
// expiry warnings. Append-only.
type NotificationRecord struct {
	NotificationID string
	StudentID      string
	EnrollmentID   string
	SlipID         string
	Kind           string // payment_approved, payment_rejected, expiry_warning
	Message        string
	CreatedAt      time.Time
}
