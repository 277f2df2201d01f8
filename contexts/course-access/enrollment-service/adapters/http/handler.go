package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"lyceum/contexts/course-access/enrollment-service/application/commands"
	"lyceum/contexts/course-access/enrollment-service/application/queries"
	httptransport "lyceum/contexts/course-access/enrollment-service/transport/http"
)

// Handler maps HTTP DTOs to application use cases.
type Handler struct {
	SubmitPayment  commands.SubmitPaymentUseCase
	ApprovePayment commands.ApprovePaymentUseCase
	RejectPayment  commands.RejectPaymentUseCase
	DeleteSlip     commands.DeletePaymentSlipUseCase
	Access         queries.GetAccessQuery
	Logger         *slog.Logger
}

func (h Handler) SubmitPaymentHandler(ctx context.Context, req httptransport.SubmitPaymentRequest) (httptransport.SubmitPaymentResponse, error) {
	result, err := h.SubmitPayment.Execute(ctx, commands.SubmitPaymentCommand{
		StudentID:        req.StudentID,
		CourseID:         req.CourseID,
		AmountCents:      req.AmountCents,
		SelectedDuration: req.SelectedDuration,
		SlipImageURL:     req.SlipImageURL,
	})
	if err != nil {
		return httptransport.SubmitPaymentResponse{}, err
	}
	return httptransport.SubmitPaymentResponse{
		SlipID:       result.SlipID,
		EnrollmentID: result.EnrollmentID,
	}, nil
}

func (h Handler) ApprovePaymentHandler(ctx context.Context, slipID string, req httptransport.ApprovePaymentRequest) (httptransport.ApprovePaymentResponse, error) {
	result, err := h.ApprovePayment.Execute(ctx, commands.ApprovePaymentCommand{
		SlipID:     slipID,
		ReviewerID: req.ReviewerID,
	})
	if err != nil {
		return httptransport.ApprovePaymentResponse{}, err
	}
	return httptransport.ApprovePaymentResponse{
		SlipID:          result.SlipID,
		EnrollmentID:    result.EnrollmentID,
		EnrollmentIsNew: result.EnrollmentIsNew,
		StartDate:       result.StartDate.UTC().Format(time.RFC3339),
		ExpiresAt:       result.ExpiresAt.UTC().Format(time.RFC3339),
	}, nil
}

func (h Handler) RejectPaymentHandler(ctx context.Context, slipID string, req httptransport.RejectPaymentRequest) (httptransport.RejectPaymentResponse, error) {
	result, err := h.RejectPayment.Execute(ctx, commands.RejectPaymentCommand{
		SlipID:     slipID,
		ReviewerID: req.ReviewerID,
		Reason:     req.Reason,
	})
	if err != nil {
		return httptransport.RejectPaymentResponse{}, err
	}
	return httptransport.RejectPaymentResponse{
		SlipID:     result.SlipID,
		Reason:     result.Reason,
		ReviewedAt: result.ReviewedAt.UTC().Format(time.RFC3339),
	}, nil
}

func (h Handler) DeleteSlipHandler(ctx context.Context, slipID string) (httptransport.DeleteSlipResponse, error) {
	result, err := h.DeleteSlip.Execute(ctx, commands.DeletePaymentSlipCommand{SlipID: slipID})
	if err != nil {
		return httptransport.DeleteSlipResponse{}, err
	}
	return httptransport.DeleteSlipResponse{
		SlipID:              result.SlipID,
		DeletedEnrollments:  result.DeletedEnrollments,
		SurvivedEnrollments: result.SurvivedEnrollments,
	}, nil
}

func (h Handler) GetAccessHandler(ctx context.Context, enrollmentID string) (httptransport.AccessResponse, error) {
	view, err := h.Access.ByEnrollment(ctx, enrollmentID)
	if err != nil {
		return httptransport.AccessResponse{}, err
	}
	return accessResponse(view), nil
}

func accessResponse(view queries.AccessView) httptransport.AccessResponse {
	return httptransport.AccessResponse{
		EnrollmentID:  view.Enrollment.EnrollmentID,
		CourseID:      view.Enrollment.CourseID,
		StudentID:     view.Enrollment.StudentID,
		Status:        string(view.Enrollment.Status),
		AccessGranted: view.Decision.Granted,
		Reason:        string(view.Decision.Reason),
		ExpiresAt:     view.Enrollment.ExpiresAt.UTC().Format(time.RFC3339),
		CheckedAt:     view.CheckedAt.UTC().Format(time.RFC3339),
	}
}
