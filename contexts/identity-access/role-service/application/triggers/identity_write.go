package triggers

import (
	"context"
	"log/slog"
	"time"

	application "lyceum/contexts/identity-access/role-service/application"
	"lyceum/contexts/identity-access/role-service/application/claims"
	"lyceum/contexts/identity-access/role-service/domain/roles"
	"lyceum/contexts/identity-access/role-service/ports"
)

// OutcomeStatus tags what the trigger did with an identity write.
type OutcomeStatus string

const (
	// OutcomeApplied: the write was trusted and projected to the gateway.
	OutcomeApplied OutcomeStatus = "applied"
	// OutcomeReverted: the write failed validation and the prior role was
	// rewritten onto the record.
	OutcomeReverted OutcomeStatus = "reverted"
	// OutcomeNoop: the record was already in the correct state.
	OutcomeNoop OutcomeStatus = "noop"
)

// Outcome lets callers distinguish "rejected and corrected" from "rejected
// and left dangling"; Code carries the validation code on reverts.
type Outcome struct {
	Status OutcomeStatus
	Code   roles.Code
}

// WriteContext carries the authenticated actor behind the identity write, as
// recorded by the dispatcher. Nil fields mean unauthenticated.
type WriteContext struct {
	CallerID   *string
	CallerRole *roles.Role
}

// IdentityWriteHandler reacts to identity-document writes: it validates role
// transitions, reverts unauthorized ones, projects trusted roles into the
// claims cache, and revokes refresh tokens after a role change.
//
// Delivery is at-least-once; Handle is idempotent over identical
// (before, after) pairs. Gateway failures never un-commit the identity write
// that fired the trigger.
type IdentityWriteHandler struct {
	Identities ports.IdentityRepository
	Claims     claims.Synchronizer
	Gateway    ports.AuthGateway
	Clock      ports.Clock
	Logger     *slog.Logger
}

func (h IdentityWriteHandler) Handle(ctx context.Context, wctx WriteContext, before, after *ports.IdentityRecord) (Outcome, error) {
	switch {
	case before == nil && after != nil:
		return h.handleCreate(ctx, wctx, after)
	case before != nil && after != nil:
		return h.handleUpdate(ctx, wctx, before, after)
	case before != nil && after == nil:
		return h.handleDelete(ctx, before)
	default:
		return Outcome{Status: OutcomeNoop}, nil
	}
}

func (h IdentityWriteHandler) handleCreate(ctx context.Context, wctx WriteContext, after *ports.IdentityRecord) (Outcome, error) {
	logger := application.ResolveLogger(h.Logger)
	decision := roles.ValidateTransition(roles.TransitionInput{
		NewRole:    after.Role,
		CallerRole: wctx.CallerRole,
		IsNewUser:  true,
		TargetID:   after.IdentityID,
		CallerID:   wctx.CallerID,
	})

	role := after.Role
	outcome := Outcome{Status: OutcomeApplied}
	if !decision.Valid {
		// Registration never fails outright: the role is forced back to
		// student and the rejection is recorded.
		role = roles.Student
		now := h.now()
		record := *after
		record.Role = roles.Student
		record.RevertedAt = &now
		record.RevertReason = string(decision.Code)
		record.UpdatedAt = now
		if err := h.Identities.UpdateIdentity(ctx, record); err != nil {
			return Outcome{}, err
		}
		logger.Warn("registration role forced to student",
			"event", "identity_registration_role_forced",
			"module", "identity-access/role-service",
			"layer", "application",
			"identity_id", after.IdentityID,
			"requested_role", string(after.Role),
			"code", string(decision.Code),
		)
		outcome = Outcome{Status: OutcomeReverted, Code: decision.Code}
	}

	if err := h.Claims.Sync(ctx, after.IdentityID, role); err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (h IdentityWriteHandler) handleUpdate(ctx context.Context, wctx WriteContext, before, after *ports.IdentityRecord) (Outcome, error) {
	logger := application.ResolveLogger(h.Logger)
	now := h.now()

	if before.Role == after.Role {
		return h.healClaims(ctx, after, now)
	}

	prev := before.Role
	decision := roles.ValidateTransition(roles.TransitionInput{
		NewRole:      after.Role,
		PreviousRole: &prev,
		CallerRole:   wctx.CallerRole,
		IsNewUser:    false,
		TargetID:     after.IdentityID,
		CallerID:     wctx.CallerID,
	})

	if !decision.Valid {
		return h.revert(ctx, before, after, decision.Code, now)
	}

	if alreadyProcessed(ctx, h.Identities, before, after) {
		return Outcome{Status: OutcomeNoop}, nil
	}

	if decision.Elevation {
		logger.Info("role elevated",
			"event", "identity_role_elevated",
			"module", "identity-access/role-service",
			"layer", "application",
			"identity_id", after.IdentityID,
			"previous_role", string(before.Role),
			"new_role", string(after.Role),
		)
	}

	if err := h.Claims.Sync(ctx, after.IdentityID, after.Role); err != nil {
		// Surfaced so the at-least-once dispatcher redelivers; the role
		// write itself stays committed.
		return Outcome{}, err
	}

	record, err := h.Identities.GetIdentity(ctx, after.IdentityID)
	if err != nil {
		return Outcome{}, err
	}
	record.PreviousRole = &prev
	record.RoleChangedAt = &now

	if err := h.Gateway.RevokeRefreshTokens(ctx, after.IdentityID); err != nil {
		// Bounded, not instantaneous, revocation: already-issued access
		// tokens keep working until their own TTL regardless, and fresh
		// claims attach on next sign-in. Record and move on.
		record.TokenRevocationError = err.Error()
		logger.Warn("refresh token revocation failed",
			"event", "identity_token_revocation_failed",
			"module", "identity-access/role-service",
			"layer", "application",
			"identity_id", after.IdentityID,
			"error", err.Error(),
		)
	} else {
		record.TokensRevokedAt = &now
		record.TokenRevocationError = ""
	}
	record.UpdatedAt = now
	if err := h.Identities.UpdateIdentity(ctx, record); err != nil {
		return Outcome{}, err
	}

	logger.Info("role change applied",
		"event", "identity_role_change_applied",
		"module", "identity-access/role-service",
		"layer", "application",
		"identity_id", after.IdentityID,
		"previous_role", string(before.Role),
		"new_role", string(after.Role),
	)
	return Outcome{Status: OutcomeApplied}, nil
}

func (h IdentityWriteHandler) handleDelete(ctx context.Context, before *ports.IdentityRecord) (Outcome, error) {
	logger := application.ResolveLogger(h.Logger)
	if err := h.Claims.Clear(ctx, before.IdentityID); err != nil {
		return Outcome{}, err
	}
	logger.Info("identity deleted, claims cleared",
		"event", "identity_deleted_claims_cleared",
		"module", "identity-access/role-service",
		"layer", "application",
		"identity_id", before.IdentityID,
	)
	return Outcome{Status: OutcomeApplied}, nil
}

// healClaims is the lazy self-healing path for writes that did not touch the
// role: missing, corrupt, stale, or diverged claims are rebuilt.
func (h IdentityWriteHandler) healClaims(ctx context.Context, after *ports.IdentityRecord, now time.Time) (Outcome, error) {
	cached, err := h.Claims.Get(ctx, after.IdentityID)
	if err != nil {
		return Outcome{}, err
	}
	if !h.Claims.NeedsHeal(cached, after.Role, now) {
		return Outcome{Status: OutcomeNoop}, nil
	}
	if err := h.Claims.Sync(ctx, after.IdentityID, after.Role); err != nil {
		return Outcome{}, err
	}
	return Outcome{Status: OutcomeApplied}, nil
}

func (h IdentityWriteHandler) revert(ctx context.Context, before, after *ports.IdentityRecord, code roles.Code, now time.Time) (Outcome, error) {
	logger := application.ResolveLogger(h.Logger)
	record := *after
	record.Role = before.Role
	record.RevertedAt = &now
	record.RevertReason = string(code)
	record.UpdatedAt = now
	if err := h.Identities.UpdateIdentity(ctx, record); err != nil {
		return Outcome{}, err
	}
	logger.Warn("unauthorized role change reverted",
		"event", "identity_role_change_reverted",
		"module", "identity-access/role-service",
		"layer", "application",
		"identity_id", after.IdentityID,
		"attempted_role", string(after.Role),
		"restored_role", string(before.Role),
		"code", string(code),
	)
	return Outcome{Status: OutcomeReverted, Code: code}, nil
}

// alreadyProcessed guards redelivered role-change events: when the stored
// record already carries this change's audit stamps, the revocation and sync
// have happened and the delivery is a duplicate.
func alreadyProcessed(ctx context.Context, repo ports.IdentityRepository, before, after *ports.IdentityRecord) bool {
	stored, err := repo.GetIdentity(ctx, after.IdentityID)
	if err != nil {
		return false
	}
	return stored.Role == after.Role &&
		stored.PreviousRole != nil && *stored.PreviousRole == before.Role &&
		stored.RoleChangedAt != nil &&
		stored.TokensRevokedAt != nil &&
		!stored.TokensRevokedAt.Before(*stored.RoleChangedAt)
}

func (h IdentityWriteHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
