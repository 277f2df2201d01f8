package httpadapter

import (
	"context"
	"log/slog"
	"time"

	application "lyceum/contexts/identity-access/role-service/application"
	"lyceum/contexts/identity-access/role-service/application/claims"
	"lyceum/contexts/identity-access/role-service/application/commands"
	"lyceum/contexts/identity-access/role-service/ports"
	httptransport "lyceum/contexts/identity-access/role-service/transport/http"
)

// Handler maps HTTP DTOs to application use cases.
type Handler struct {
	Claims          claims.Synchronizer
	EmergencyRevoke commands.EmergencyRevokeUseCase
	Clock           ports.Clock
	Logger          *slog.Logger
}

// GetClaimsHandler returns the cached claims and their health for an identity.
func (h Handler) GetClaimsHandler(ctx context.Context, identityID string) (httptransport.GetClaimsResponse, error) {
	cached, err := h.Claims.Get(ctx, identityID)
	if err != nil {
		return httptransport.GetClaimsResponse{}, err
	}
	resp := httptransport.GetClaimsResponse{IdentityID: identityID}
	if cached == nil {
		resp.Stale = true
		return resp, nil
	}
	resp.Claims = &httptransport.ClaimsDTO{
		Role:          cached.Role,
		RoleSyncedAt:  cached.RoleSyncedAt,
		ClaimsVersion: cached.ClaimsVersion,
	}
	resp.Stale = h.Claims.IsStale(cached, h.now())
	resp.StructurallyValid = claims.ValidateStructure(cached)
	return resp, nil
}

// EmergencyRevokeHandler invalidates all refresh tokens for an identity.
func (h Handler) EmergencyRevokeHandler(ctx context.Context, identityID string, request httptransport.EmergencyRevokeRequest) (httptransport.EmergencyRevokeResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("http emergency revoke received",
		"event", "identity_http_emergency_revoke_received",
		"module", "identity-access/role-service",
		"layer", "transport",
		"identity_id", identityID,
	)
	result, err := h.EmergencyRevoke.Execute(ctx, commands.EmergencyRevokeCommand{
		IdentityID: identityID,
		Reason:     request.Reason,
	})
	if err != nil {
		return httptransport.EmergencyRevokeResponse{}, err
	}
	return httptransport.EmergencyRevokeResponse{
		IdentityID:      result.IdentityID,
		TokensRevokedAt: result.TokensRevokedAt,
		Reason:          result.Reason,
	}, nil
}

func (h Handler) now() time.Time {
	if h.Clock != nil {
		return h.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
