package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	enrollmenterrors "lyceum/contexts/course-access/enrollment-service/domain/errors"
	enrollmenthttp "lyceum/contexts/course-access/enrollment-service/transport/http"
)

func writeEnrollmentError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, enrollmenthttp.ErrorResponse{Code: code, Message: message})
}

func writeEnrollmentDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, enrollmenterrors.ErrCourseNotFound),
		errors.Is(err, enrollmenterrors.ErrSlipNotFound),
		errors.Is(err, enrollmenterrors.ErrEnrollmentNotFound):
		writeEnrollmentError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, enrollmenterrors.ErrInvalidDuration),
		errors.Is(err, enrollmenterrors.ErrRejectionReasonRequired):
		writeEnrollmentError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, enrollmenterrors.ErrSlipNotPending),
		errors.Is(err, enrollmenterrors.ErrEnrollmentExists),
		errors.Is(err, enrollmenterrors.ErrApprovalConflict):
		writeEnrollmentError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, enrollmenterrors.ErrIncompleteApproval):
		writeEnrollmentError(w, http.StatusUnprocessableEntity, "incomplete_approval", err.Error())
	default:
		writeEnrollmentError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func (s *Server) handleSubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req enrollmenthttp.SubmitPaymentRequest
	if !s.decodeJSON(w, r, &req, writeEnrollmentError) {
		return
	}
	if strings.TrimSpace(req.StudentID) == "" || strings.TrimSpace(req.CourseID) == "" {
		writeEnrollmentError(w, http.StatusBadRequest, "invalid_request", "student_id and course_id are required")
		return
	}
	resp, err := s.enrollment.Handler.SubmitPaymentHandler(r.Context(), req)
	if err != nil {
		writeEnrollmentDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleApprovePayment(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.requireReviewer(w, r, writeEnrollmentError)
	if !ok {
		return
	}

	var req enrollmenthttp.ApprovePaymentRequest
	if !s.decodeJSON(w, r, &req, writeEnrollmentError) {
		return
	}
	if strings.TrimSpace(req.ReviewerID) == "" {
		req.ReviewerID = caller.SubjectID
	}
	resp, err := s.enrollment.Handler.ApprovePaymentHandler(r.Context(), r.PathValue("slip_id"), req)
	if err != nil {
		writeEnrollmentDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRejectPayment(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.requireReviewer(w, r, writeEnrollmentError)
	if !ok {
		return
	}

	var req enrollmenthttp.RejectPaymentRequest
	if !s.decodeJSON(w, r, &req, writeEnrollmentError) {
		return
	}
	if strings.TrimSpace(req.ReviewerID) == "" {
		req.ReviewerID = caller.SubjectID
	}
	resp, err := s.enrollment.Handler.RejectPaymentHandler(r.Context(), r.PathValue("slip_id"), req)
	if err != nil {
		writeEnrollmentDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteSlip(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireReviewer(w, r, writeEnrollmentError); !ok {
		return
	}
	resp, err := s.enrollment.Handler.DeleteSlipHandler(r.Context(), r.PathValue("slip_id"))
	if err != nil {
		writeEnrollmentDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSweepStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireReviewer(w, r, writeEnrollmentError); !ok {
		return
	}
	status, err := s.enrollment.AccessExpirer.Status(r.Context())
	if err != nil {
		writeEnrollmentDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollmenthttp.SweepStatusResponse{
		Backlog:          status.Backlog,
		BacklogTruncated: status.BacklogTruncated,
		CheckedAt:        status.CheckedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleGetAccess(w http.ResponseWriter, r *http.Request) {
	resp, err := s.enrollment.Handler.GetAccessHandler(r.Context(), r.PathValue("enrollment_id"))
	if err != nil {
		writeEnrollmentDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
