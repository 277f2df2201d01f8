package httptransport

// SubmitPaymentRequest uploads a payment slip for review.
type SubmitPaymentRequest struct {
	StudentID        string `json:"student_id"`
	CourseID         string `json:"course_id"`
	AmountCents      int64  `json:"amount_cents"`
	SelectedDuration int    `json:"selected_duration"`
	SlipImageURL     string `json:"slip_image_url"`
}

type SubmitPaymentResponse struct {
	SlipID       string `json:"slip_id"`
	EnrollmentID string `json:"enrollment_id"`
}

type ApprovePaymentRequest struct {
	ReviewerID string `json:"reviewer_id"`
}

type ApprovePaymentResponse struct {
	SlipID          string `json:"slip_id"`
	EnrollmentID    string `json:"enrollment_id"`
	EnrollmentIsNew bool   `json:"enrollment_is_new"`
	StartDate       string `json:"start_date"`
	ExpiresAt       string `json:"expires_at"`
}

type RejectPaymentRequest struct {
	ReviewerID string `json:"reviewer_id"`
	Reason     string `json:"reason"`
}

type RejectPaymentResponse struct {
	SlipID     string `json:"slip_id"`
	Reason     string `json:"reason"`
	ReviewedAt string `json:"reviewed_at"`
}

type DeleteSlipResponse struct {
	SlipID              string   `json:"slip_id"`
	DeletedEnrollments  []string `json:"deleted_enrollments"`
	SurvivedEnrollments []string `json:"survived_enrollments"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SweepStatusResponse reports the current expiry-sweep backlog.
type SweepStatusResponse struct {
	Backlog          int    `json:"backlog"`
	BacklogTruncated bool   `json:"backlog_truncated"`
	CheckedAt        string `json:"checked_at"`
}

// AccessResponse is the server-side access decision for one enrollment.
type AccessResponse struct {
	EnrollmentID  string `json:"enrollment_id"`
	CourseID      string `json:"course_id"`
	StudentID     string `json:"student_id"`
	Status        string `json:"status"`
	AccessGranted bool   `json:"access_granted"`
	Reason        string `json:"reason,omitempty"`
	ExpiresAt     string `json:"expires_at"`
	CheckedAt     string `json:"checked_at"`
}
