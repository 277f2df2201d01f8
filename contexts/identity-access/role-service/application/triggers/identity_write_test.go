package triggers

import (
	"context"
	"errors"
	"testing"
	"time"

	"lyceum/contexts/identity-access/role-service/adapters/memory"
	"lyceum/contexts/identity-access/role-service/application/claims"
	"lyceum/contexts/identity-access/role-service/domain/roles"
	"lyceum/contexts/identity-access/role-service/ports"
)

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time { return f.now }

func rolePtr(r roles.Role) *roles.Role { return &r }

func newHandler(store *memory.Store, now time.Time) IdentityWriteHandler {
	clock := fixedClock{now: now}
	return IdentityWriteHandler{
		Identities: store,
		Claims: claims.Synchronizer{
			Gateway:    store,
			Identities: store,
			Clock:      clock,
		},
		Gateway: store,
		Clock:   clock,
	}
}

func seed(store *memory.Store, id string, role roles.Role) ports.IdentityRecord {
	record := ports.IdentityRecord{IdentityID: id, Role: role}
	store.SeedIdentity(record)
	return record
}

func TestCreateSyncsClaims(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2026, time.April, 1, 8, 0, 0, 0, time.UTC)
	handler := newHandler(store, now)
	after := seed(store, "user-1", roles.Student)

	outcome, err := handler.Handle(context.Background(), WriteContext{}, nil, &after)
	if err != nil {
		t.Fatalf("create handling failed: %v", err)
	}
	if outcome.Status != OutcomeApplied {
		t.Fatalf("expected applied, got %+v", outcome)
	}
	cached, _ := store.GetClaims(context.Background(), "user-1")
	if cached == nil || cached.Role != "student" {
		t.Fatalf("expected student claims, got %+v", cached)
	}
}

func TestCreateForcesStudentOnUnauthorizedRole(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2026, time.April, 1, 8, 0, 0, 0, time.UTC)
	handler := newHandler(store, now)
	after := seed(store, "user-1", roles.SuperAdmin)

	outcome, err := handler.Handle(context.Background(), WriteContext{}, nil, &after)
	if err != nil {
		t.Fatalf("create handling failed: %v", err)
	}
	if outcome.Status != OutcomeReverted || outcome.Code != roles.CodeSelfRegistrationRestricted {
		t.Fatalf("expected reverted with SELF_REGISTRATION_RESTRICTED, got %+v", outcome)
	}
	record, _ := store.GetIdentity(context.Background(), "user-1")
	if record.Role != roles.Student {
		t.Fatalf("expected stored role forced to student, got %s", record.Role)
	}
	if record.RevertReason != string(roles.CodeSelfRegistrationRestricted) {
		t.Fatalf("expected revert reason recorded, got %q", record.RevertReason)
	}
	cached, _ := store.GetClaims(context.Background(), "user-1")
	if cached == nil || cached.Role != "student" {
		t.Fatalf("expected student claims after forced registration, got %+v", cached)
	}
}

// Scenario: an admin elevates a student to super_admin. The change is
// rejected with SUPER_ADMIN_REQUIRED and the stored role reverted.
func TestAdminElevationRevertedByRewrite(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2026, time.April, 1, 8, 0, 0, 0, time.UTC)
	handler := newHandler(store, now)

	before := seed(store, "user-1", roles.Student)
	after := before
	after.Role = roles.SuperAdmin
	store.SeedIdentity(after) // the unauthorized write already landed

	callerID := "admin-1"
	outcome, err := handler.Handle(context.Background(), WriteContext{
		CallerID:   &callerID,
		CallerRole: rolePtr(roles.Admin),
	}, &before, &after)
	if err != nil {
		t.Fatalf("update handling failed: %v", err)
	}
	if outcome.Status != OutcomeReverted || outcome.Code != roles.CodeSuperAdminRequired {
		t.Fatalf("expected reverted with SUPER_ADMIN_REQUIRED, got %+v", outcome)
	}

	record, _ := store.GetIdentity(context.Background(), "user-1")
	if record.Role != roles.Student {
		t.Fatalf("expected role reverted to student, got %s", record.Role)
	}
	if record.RevertedAt == nil || record.RevertReason != string(roles.CodeSuperAdminRequired) {
		t.Fatalf("expected revert audit fields, got %+v", record)
	}
	if store.RevocationCount("user-1") != 0 {
		t.Fatalf("reverted change must not revoke tokens")
	}
}

func TestValidRoleChangeSyncsAndRevokes(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2026, time.April, 1, 8, 0, 0, 0, time.UTC)
	handler := newHandler(store, now)

	before := seed(store, "user-1", roles.Student)
	after := before
	after.Role = roles.Admin
	store.SeedIdentity(after)

	callerID := "root-1"
	outcome, err := handler.Handle(context.Background(), WriteContext{
		CallerID:   &callerID,
		CallerRole: rolePtr(roles.SuperAdmin),
	}, &before, &after)
	if err != nil {
		t.Fatalf("update handling failed: %v", err)
	}
	if outcome.Status != OutcomeApplied {
		t.Fatalf("expected applied, got %+v", outcome)
	}

	cached, _ := store.GetClaims(context.Background(), "user-1")
	if cached == nil || cached.Role != "admin" {
		t.Fatalf("expected admin claims, got %+v", cached)
	}
	if store.RevocationCount("user-1") != 1 {
		t.Fatalf("expected one revocation, got %d", store.RevocationCount("user-1"))
	}

	record, _ := store.GetIdentity(context.Background(), "user-1")
	if record.TokensRevokedAt == nil || record.RoleChangedAt == nil {
		t.Fatalf("expected revocation audit stamps, got %+v", record)
	}
	if record.PreviousRole == nil || *record.PreviousRole != roles.Student {
		t.Fatalf("expected previousRole student, got %v", record.PreviousRole)
	}
}

func TestRoleChangeRedeliveryIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2026, time.April, 1, 8, 0, 0, 0, time.UTC)
	handler := newHandler(store, now)

	before := seed(store, "user-1", roles.Student)
	after := before
	after.Role = roles.Admin
	store.SeedIdentity(after)

	callerID := "root-1"
	wctx := WriteContext{CallerID: &callerID, CallerRole: rolePtr(roles.SuperAdmin)}
	if _, err := handler.Handle(context.Background(), wctx, &before, &after); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	outcome, err := handler.Handle(context.Background(), wctx, &before, &after)
	if err != nil {
		t.Fatalf("second delivery failed: %v", err)
	}
	if outcome.Status != OutcomeNoop {
		t.Fatalf("expected noop on redelivery, got %+v", outcome)
	}
	if store.RevocationCount("user-1") != 1 {
		t.Fatalf("redelivery must not revoke again, got %d revocations", store.RevocationCount("user-1"))
	}
}

func TestRevocationFailureDoesNotBlockRoleChange(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2026, time.April, 1, 8, 0, 0, 0, time.UTC)
	handler := newHandler(store, now)
	store.FailRevokeTokens = errors.New("auth service timeout")

	before := seed(store, "user-1", roles.Admin)
	after := before
	after.Role = roles.Student
	store.SeedIdentity(after)

	callerID := "root-1"
	outcome, err := handler.Handle(context.Background(), WriteContext{
		CallerID:   &callerID,
		CallerRole: rolePtr(roles.SuperAdmin),
	}, &before, &after)
	if err != nil {
		t.Fatalf("revocation failure must not fail the trigger: %v", err)
	}
	if outcome.Status != OutcomeApplied {
		t.Fatalf("expected applied despite revocation failure, got %+v", outcome)
	}

	record, _ := store.GetIdentity(context.Background(), "user-1")
	if record.TokenRevocationError == "" {
		t.Fatalf("expected tokenRevocationError recorded")
	}
	if record.TokensRevokedAt != nil {
		t.Fatalf("tokensRevokedAt must not be stamped on failure")
	}
	if record.Role != roles.Student {
		t.Fatalf("role change must stand, got %s", record.Role)
	}
}

func TestNoRoleChangeHealsStaleClaims(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2026, time.April, 1, 8, 0, 0, 0, time.UTC)
	handler := newHandler(store, now)

	record := seed(store, "user-1", roles.Admin)
	stale := ports.Claims{
		Role:          "admin",
		RoleSyncedAt:  now.Add(-30 * time.Hour).Format(time.RFC3339),
		ClaimsVersion: claims.CurrentVersion,
	}
	if err := store.SetClaims(context.Background(), "user-1", stale); err != nil {
		t.Fatalf("seed claims failed: %v", err)
	}

	outcome, err := handler.Handle(context.Background(), WriteContext{}, &record, &record)
	if err != nil {
		t.Fatalf("heal handling failed: %v", err)
	}
	if outcome.Status != OutcomeApplied {
		t.Fatalf("expected heal to apply, got %+v", outcome)
	}
	cached, _ := store.GetClaims(context.Background(), "user-1")
	if cached.RoleSyncedAt != now.Format(time.RFC3339) {
		t.Fatalf("expected refreshed sync timestamp, got %s", cached.RoleSyncedAt)
	}

	// Fresh claims: nothing to do.
	outcome, err = handler.Handle(context.Background(), WriteContext{}, &record, &record)
	if err != nil {
		t.Fatalf("second heal handling failed: %v", err)
	}
	if outcome.Status != OutcomeNoop {
		t.Fatalf("expected noop with fresh claims, got %+v", outcome)
	}
}

func TestDeleteClearsClaims(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2026, time.April, 1, 8, 0, 0, 0, time.UTC)
	handler := newHandler(store, now)

	before := seed(store, "user-1", roles.Student)
	if err := store.SetClaims(context.Background(), "user-1", ports.Claims{
		Role:          "student",
		RoleSyncedAt:  now.Format(time.RFC3339),
		ClaimsVersion: claims.CurrentVersion,
	}); err != nil {
		t.Fatalf("seed claims failed: %v", err)
	}

	if _, err := handler.Handle(context.Background(), WriteContext{}, &before, nil); err != nil {
		t.Fatalf("delete handling failed: %v", err)
	}
	cached, _ := store.GetClaims(context.Background(), "user-1")
	if cached != nil {
		t.Fatalf("expected claims cleared on delete, got %+v", cached)
	}
}
