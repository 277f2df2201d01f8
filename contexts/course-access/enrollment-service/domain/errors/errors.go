package errors

import "errors"

var (
	ErrCourseNotFound          = errors.New("course not found")
	ErrSlipNotFound            = errors.New("payment slip not found")
	ErrSlipNotPending          = errors.New("payment slip is not pending")
	ErrEnrollmentNotFound      = errors.New("enrollment not found")
	ErrEnrollmentExists        = errors.New("enrollment already exists for student and course")
	ErrInvalidDuration         = errors.New("invalid selected duration")
	ErrRejectionReasonRequired = errors.New("rejection reason is required")
	ErrIncompleteApproval      = errors.New("approval effects are incomplete")
	ErrApprovalConflict        = errors.New("approval conflicted with a concurrent write")
)
