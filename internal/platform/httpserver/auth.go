package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Caller is the authenticated principal extracted from a bearer token.
type Caller struct {
	SubjectID string
	Role      string
}

// Authenticator verifies bearer tokens on protected routes.
type Authenticator interface {
	Authenticate(r *http.Request) (Caller, error)
}

var (
	errMissingBearer = errors.New("authorization bearer token is required")
	errInvalidToken  = errors.New("bearer token is invalid")
)

// JWTAuthenticator verifies HS256 tokens issued by the auth frontend. The
// role claim in the token is advisory for routing only; the role validator
// remains the authority on what the caller may do.
type JWTAuthenticator struct {
	Secret []byte
	Issuer string
}

func (a JWTAuthenticator) Authenticate(r *http.Request) (Caller, error) {
	raw := bearerToken(r)
	if raw == "" {
		return Caller{}, errMissingBearer
	}

	options := []jwt.ParserOption{}
	if a.Issuer != "" {
		options = append(options, jwt.WithIssuer(a.Issuer))
	}
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.Secret, nil
	}, options...)
	if err != nil || !token.Valid {
		return Caller{}, errInvalidToken
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return Caller{}, errInvalidToken
	}
	role, _ := claims["role"].(string)
	return Caller{SubjectID: subject, Role: role}, nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// requireReviewer gates payment review and revocation endpoints to admins.
func (s *Server) requireReviewer(
	w http.ResponseWriter,
	r *http.Request,
	writeError func(http.ResponseWriter, int, string, string),
) (Caller, bool) {
	if s.auth == nil {
		writeError(w, http.StatusServiceUnavailable, "auth_unavailable", "authentication is not configured")
		return Caller{}, false
	}
	caller, err := s.auth.Authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return Caller{}, false
	}
	if caller.Role != "admin" && caller.Role != "super_admin" {
		writeError(w, http.StatusForbidden, "forbidden", "admin role is required")
		return Caller{}, false
	}
	return caller, true
}
