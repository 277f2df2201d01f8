package httpserver

import (
	"errors"
	"net/http"

	identityerrors "lyceum/contexts/identity-access/role-service/domain/errors"
	identityhttp "lyceum/contexts/identity-access/role-service/transport/http"
)

func writeIdentityError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, identityhttp.ErrorResponse{Code: code, Message: message})
}

func writeIdentityDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identityerrors.ErrIdentityNotFound):
		writeIdentityError(w, http.StatusNotFound, "identity_not_found", err.Error())
	case errors.Is(err, identityerrors.ErrInvalidIdentityID),
		errors.Is(err, identityerrors.ErrInvalidRole),
		errors.Is(err, identityerrors.ErrReasonRequired):
		writeIdentityError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, identityerrors.ErrClaimsTooLarge),
		errors.Is(err, identityerrors.ErrClaimsCorrupt):
		writeIdentityError(w, http.StatusUnprocessableEntity, "invalid_claims", err.Error())
	case errors.Is(err, identityerrors.ErrGatewayUnavailable):
		writeIdentityError(w, http.StatusFailedDependency, "gateway_unavailable", err.Error())
	default:
		writeIdentityError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func (s *Server) handleGetClaims(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireReviewer(w, r, writeIdentityError); !ok {
		return
	}
	resp, err := s.identity.Handler.GetClaimsHandler(r.Context(), r.PathValue("identity_id"))
	if err != nil {
		writeIdentityDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEmergencyRevoke(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireReviewer(w, r, writeIdentityError); !ok {
		return
	}

	var req identityhttp.EmergencyRevokeRequest
	if !s.decodeJSON(w, r, &req, writeIdentityError) {
		return
	}
	resp, err := s.identity.Handler.EmergencyRevokeHandler(r.Context(), r.PathValue("identity_id"), req)
	if err != nil {
		writeIdentityDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
