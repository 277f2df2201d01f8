package ports

import (
	"context"
	"time"

	"lyceum/contexts/identity-access/role-service/domain/roles"
)

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// Claims is the small authorization payload cached inside the auth gateway
// and attached to issued tokens. It is derived, disposable state: rebuildable
// from the identity record at any time and never the source of truth.
type Claims struct {
	Role          string `json:"role"`
	RoleSyncedAt  string `json:"roleSyncedAt"` // RFC 3339
	ClaimsVersion int    `json:"claimsVersion"`
}

// IdentityRecord is the stored identity document. Audit fields are written by
// the trigger layer; Role is mutated only through validated transitions.
type IdentityRecord struct {
	IdentityID           string
	Role                 roles.Role
	PreviousRole         *roles.Role
	RoleChangedAt        *time.Time
	TokensRevokedAt      *time.Time
	TokenRevocationError string
	ClaimsSyncedAt       *time.Time
	RevertedAt           *time.Time
	RevertReason         string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type IdentityRepository interface {
	GetIdentity(ctx context.Context, identityID string) (IdentityRecord, error)
	// UpdateIdentity persists the full record; callers stamp audit fields
	// before writing.
	UpdateIdentity(ctx context.Context, record IdentityRecord) error
	// ListIdentities pages through records ordered by identity id, for the
	// claims audit sweep. afterID "" starts from the beginning.
	ListIdentities(ctx context.Context, afterID string, limit int) ([]IdentityRecord, error)
}

// AuthGateway is the external authentication service consumed by this module:
// a per-user claims cache plus refresh-token revocation. One call is one
// external write; retry policy belongs to the caller.
type AuthGateway interface {
	SetClaims(ctx context.Context, identityID string, claims Claims) error
	// GetClaims returns nil with no error when the cache holds nothing for
	// the identity.
	GetClaims(ctx context.Context, identityID string) (*Claims, error)
	ClearClaims(ctx context.Context, identityID string) error
	RevokeRefreshTokens(ctx context.Context, identityID string) error
}
