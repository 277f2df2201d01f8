package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "lyceum/contexts/identity-access/role-service/application"
	domainerrors "lyceum/contexts/identity-access/role-service/domain/errors"
	"lyceum/contexts/identity-access/role-service/ports"
)

// EmergencyRevokeCommand is the operational out-of-band revocation input.
type EmergencyRevokeCommand struct {
	IdentityID string
	Reason     string
}

// EmergencyRevokeResult reports when the revocation took effect.
type EmergencyRevokeResult struct {
	IdentityID      string    `json:"identity_id"`
	TokensRevokedAt time.Time `json:"tokens_revoked_at"`
	Reason          string    `json:"reason"`
}

// EmergencyRevokeUseCase invalidates all refresh tokens for an identity
// outside the normal role-change path. Unlike the trigger path, a gateway
// failure here is fatal: the operator asked for the revocation explicitly
// and must know it did not happen.
type EmergencyRevokeUseCase struct {
	Identities ports.IdentityRepository
	Gateway    ports.AuthGateway
	Clock      ports.Clock
	Logger     *slog.Logger
}

func (u EmergencyRevokeUseCase) Execute(ctx context.Context, cmd EmergencyRevokeCommand) (EmergencyRevokeResult, error) {
	logger := application.ResolveLogger(u.Logger)
	if strings.TrimSpace(cmd.IdentityID) == "" {
		return EmergencyRevokeResult{}, domainerrors.ErrInvalidIdentityID
	}
	if strings.TrimSpace(cmd.Reason) == "" {
		return EmergencyRevokeResult{}, domainerrors.ErrReasonRequired
	}

	record, err := u.Identities.GetIdentity(ctx, cmd.IdentityID)
	if err != nil {
		return EmergencyRevokeResult{}, err
	}

	if err := u.Gateway.RevokeRefreshTokens(ctx, cmd.IdentityID); err != nil {
		logger.Error("emergency revoke failed",
			"event", "identity_emergency_revoke_failed",
			"module", "identity-access/role-service",
			"layer", "application",
			"identity_id", cmd.IdentityID,
			"error", err.Error(),
		)
		return EmergencyRevokeResult{}, err
	}

	now := u.now()
	record.TokensRevokedAt = &now
	record.TokenRevocationError = ""
	record.UpdatedAt = now
	if err := u.Identities.UpdateIdentity(ctx, record); err != nil {
		return EmergencyRevokeResult{}, err
	}

	logger.Info("emergency revoke completed",
		"event", "identity_emergency_revoke_completed",
		"module", "identity-access/role-service",
		"layer", "application",
		"identity_id", cmd.IdentityID,
		"reason", cmd.Reason,
	)
	return EmergencyRevokeResult{
		IdentityID:      cmd.IdentityID,
		TokensRevokedAt: now,
		Reason:          cmd.Reason,
	}, nil
}

func (u EmergencyRevokeUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
