package claims

import (
	"context"
	"log/slog"
	"time"

	application "lyceum/contexts/identity-access/role-service/application"
	domainerrors "lyceum/contexts/identity-access/role-service/domain/errors"
	"lyceum/contexts/identity-access/role-service/domain/roles"
	"lyceum/contexts/identity-access/role-service/ports"
)

// CurrentVersion is stamped into every synced claims payload. Structure
// validation rejects any other value so corrupt or foreign cache entries get
// healed on the next sync.
const CurrentVersion = 1

// DefaultStaleAfter is how old a synced claims payload may grow before it is
// eligible for healing even without a role change.
const DefaultStaleAfter = 24 * time.Hour

// Synchronizer projects a validated role into the auth gateway's claims
// cache. It is a one-way projection: claims are never read back as truth,
// only checked for staleness and structure.
type Synchronizer struct {
	Gateway    ports.AuthGateway
	Identities ports.IdentityRepository
	Clock      ports.Clock
	StaleAfter time.Duration
	Logger     *slog.Logger
}

// Sync writes {role, roleSyncedAt, claimsVersion} for the identity. Exactly
// one external write per successful call; failures are surfaced to the
// caller and never retried here.
func (s Synchronizer) Sync(ctx context.Context, identityID string, role roles.Role) error {
	logger := application.ResolveLogger(s.Logger)
	if !roles.IsValid(role) {
		return domainerrors.ErrInvalidRole
	}

	now := s.now()
	payload := ports.Claims{
		Role:          string(role),
		RoleSyncedAt:  now.Format(time.RFC3339),
		ClaimsVersion: CurrentVersion,
	}
	if err := s.Gateway.SetClaims(ctx, identityID, payload); err != nil {
		logger.Error("claims sync failed",
			"event", "identity_claims_sync_failed",
			"module", "identity-access/role-service",
			"layer", "application",
			"identity_id", identityID,
			"role", string(role),
			"error", err.Error(),
		)
		return err
	}

	s.stampSyncedAt(ctx, identityID, now)

	logger.Info("claims synced",
		"event", "identity_claims_synced",
		"module", "identity-access/role-service",
		"layer", "application",
		"identity_id", identityID,
		"role", string(role),
	)
	return nil
}

// Clear nulls the claims cache for the identity, used on account deletion.
func (s Synchronizer) Clear(ctx context.Context, identityID string) error {
	logger := application.ResolveLogger(s.Logger)
	if err := s.Gateway.ClearClaims(ctx, identityID); err != nil {
		logger.Error("claims clear failed",
			"event", "identity_claims_clear_failed",
			"module", "identity-access/role-service",
			"layer", "application",
			"identity_id", identityID,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("claims cleared",
		"event", "identity_claims_cleared",
		"module", "identity-access/role-service",
		"layer", "application",
		"identity_id", identityID,
	)
	return nil
}

// Get reads the cached claims, nil when the cache holds nothing.
func (s Synchronizer) Get(ctx context.Context, identityID string) (*ports.Claims, error) {
	return s.Gateway.GetClaims(ctx, identityID)
}

// IsStale reports whether the payload is older than the staleness bound.
// Unparseable timestamps count as stale so they get healed.
func (s Synchronizer) IsStale(payload *ports.Claims, now time.Time) bool {
	if payload == nil {
		return true
	}
	syncedAt, err := time.Parse(time.RFC3339, payload.RoleSyncedAt)
	if err != nil {
		return true
	}
	return now.Sub(syncedAt) > s.staleAfter()
}

// ValidateStructure is the structural type guard run before a cached payload
// is trusted: known role, current version, parseable sync timestamp.
func ValidateStructure(payload *ports.Claims) bool {
	if payload == nil {
		return false
	}
	if !roles.IsValid(roles.Role(payload.Role)) {
		return false
	}
	if payload.ClaimsVersion != CurrentVersion {
		return false
	}
	_, err := time.Parse(time.RFC3339, payload.RoleSyncedAt)
	return err == nil
}

// NeedsHeal decides whether cached claims must be rebuilt from the stored
// role: missing, corrupt, stale, or diverged from the source of truth.
func (s Synchronizer) NeedsHeal(payload *ports.Claims, storedRole roles.Role, now time.Time) bool {
	if !ValidateStructure(payload) {
		return true
	}
	if payload.Role != string(storedRole) {
		return true
	}
	return s.IsStale(payload, now)
}

func (s Synchronizer) stampSyncedAt(ctx context.Context, identityID string, now time.Time) {
	logger := application.ResolveLogger(s.Logger)
	record, err := s.Identities.GetIdentity(ctx, identityID)
	if err != nil {
		logger.Warn("claims sync audit stamp skipped",
			"event", "identity_claims_stamp_skipped",
			"module", "identity-access/role-service",
			"layer", "application",
			"identity_id", identityID,
			"error", err.Error(),
		)
		return
	}
	record.ClaimsSyncedAt = &now
	record.UpdatedAt = now
	if err := s.Identities.UpdateIdentity(ctx, record); err != nil {
		logger.Warn("claims sync audit stamp failed",
			"event", "identity_claims_stamp_failed",
			"module", "identity-access/role-service",
			"layer", "application",
			"identity_id", identityID,
			"error", err.Error(),
		)
	}
}

func (s Synchronizer) staleAfter() time.Duration {
	if s.StaleAfter <= 0 {
		return DefaultStaleAfter
	}
	return s.StaleAfter
}

func (s Synchronizer) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
