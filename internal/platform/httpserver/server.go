package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	enrollment "lyceum/contexts/course-access/enrollment-service"
	roleservice "lyceum/contexts/identity-access/role-service"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "lyceum/internal/platform/httpserver/docs"
)

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	identity   roleservice.Module
	enrollment enrollment.Module
	auth       Authenticator
}

func New(
	identity roleservice.Module,
	enrollmentModule enrollment.Module,
	auth Authenticator,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		identity:   identity,
		enrollment: enrollmentModule,
		auth:       auth,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("GET /api/identity/v1/identities/{identity_id}/claims", s.handleGetClaims)
	s.mux.HandleFunc("POST /api/identity/v1/identities/{identity_id}/revoke-tokens", s.handleEmergencyRevoke)

	s.mux.HandleFunc("POST /api/enrollment/v1/payments", s.handleSubmitPayment)
	s.mux.HandleFunc("POST /api/enrollment/v1/payments/{slip_id}/approve", s.handleApprovePayment)
	s.mux.HandleFunc("POST /api/enrollment/v1/payments/{slip_id}/reject", s.handleRejectPayment)
	s.mux.HandleFunc("DELETE /api/enrollment/v1/payments/{slip_id}", s.handleDeleteSlip)
	s.mux.HandleFunc("GET /api/enrollment/v1/enrollments/{enrollment_id}/access", s.handleGetAccess)
	s.mux.HandleFunc("GET /api/enrollment/v1/sweep/status", s.handleSweepStatus)
}

func (s *Server) decodeJSON(
	w http.ResponseWriter,
	r *http.Request,
	target any,
	writeError func(http.ResponseWriter, int, string, string),
) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
