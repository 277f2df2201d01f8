package httptransport

import "time"

// ClaimsDTO mirrors the cached token-claims payload.
type ClaimsDTO struct {
	Role          string `json:"role"`
	RoleSyncedAt  string `json:"role_synced_at"`
	ClaimsVersion int    `json:"claims_version"`
}

// GetClaimsResponse reports the cached claims plus their health relative to
// the stored role.
type GetClaimsResponse struct {
	IdentityID        string     `json:"identity_id"`
	Claims            *ClaimsDTO `json:"claims,omitempty"`
	Stale             bool       `json:"stale"`
	StructurallyValid bool       `json:"structurally_valid"`
}

// EmergencyRevokeRequest carries the mandatory operator-entered reason.
type EmergencyRevokeRequest struct {
	Reason string `json:"reason"`
}

type EmergencyRevokeResponse struct {
	IdentityID      string    `json:"identity_id"`
	TokensRevokedAt time.Time `json:"tokens_revoked_at"`
	Reason          string    `json:"reason"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
