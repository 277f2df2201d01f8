package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	domainerrors "lyceum/contexts/identity-access/role-service/domain/errors"
	"lyceum/contexts/identity-access/role-service/domain/roles"
	"lyceum/contexts/identity-access/role-service/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Models lists every table this adapter owns, for migration at startup.
func Models() []any {
	return []any{&identityModel{}}
}

func (r *Repository) GetIdentity(ctx context.Context, identityID string) (ports.IdentityRecord, error) {
	var row identityModel
	err := r.db.WithContext(ctx).
		Where("identity_id = ?", strings.TrimSpace(identityID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdentityRecord{}, domainerrors.ErrIdentityNotFound
		}
		return ports.IdentityRecord{}, err
	}
	return row.toRecord(), nil
}

func (r *Repository) UpdateIdentity(ctx context.Context, record ports.IdentityRecord) error {
	row := identityModelFromRecord(record)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "identity_id"}},
			UpdateAll: true,
		}).
		Create(&row).
		Error
}

func (r *Repository) ListIdentities(ctx context.Context, afterID string, limit int) ([]ports.IdentityRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []identityModel
	if err := r.db.WithContext(ctx).
		Where("identity_id > ?", afterID).
		Order("identity_id ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	records := make([]ports.IdentityRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	return records, nil
}

type identityModel struct {
	IdentityID           string     `gorm:"column:identity_id;primaryKey"`
	Role                 string     `gorm:"column:role"`
	PreviousRole         *string    `gorm:"column:previous_role"`
	RoleChangedAt        *time.Time `gorm:"column:role_changed_at"`
	TokensRevokedAt      *time.Time `gorm:"column:tokens_revoked_at"`
	TokenRevocationError string     `gorm:"column:token_revocation_error"`
	ClaimsSyncedAt       *time.Time `gorm:"column:claims_synced_at"`
	RevertedAt           *time.Time `gorm:"column:reverted_at"`
	RevertReason         string     `gorm:"column:revert_reason"`
	CreatedAt            time.Time  `gorm:"column:created_at"`
	UpdatedAt            time.Time  `gorm:"column:updated_at"`
}

func (identityModel) TableName() string {
	return "identities"
}

func identityModelFromRecord(record ports.IdentityRecord) identityModel {
	row := identityModel{
		IdentityID:           strings.TrimSpace(record.IdentityID),
		Role:                 string(record.Role),
		RoleChangedAt:        normalizeOptionalTime(record.RoleChangedAt),
		TokensRevokedAt:      normalizeOptionalTime(record.TokensRevokedAt),
		TokenRevocationError: record.TokenRevocationError,
		ClaimsSyncedAt:       normalizeOptionalTime(record.ClaimsSyncedAt),
		RevertedAt:           normalizeOptionalTime(record.RevertedAt),
		RevertReason:         record.RevertReason,
		CreatedAt:            record.CreatedAt.UTC(),
		UpdatedAt:            record.UpdatedAt.UTC(),
	}
	if record.PreviousRole != nil {
		previous := string(*record.PreviousRole)
		row.PreviousRole = &previous
	}
	return row
}

func (m identityModel) toRecord() ports.IdentityRecord {
	record := ports.IdentityRecord{
		IdentityID:           m.IdentityID,
		Role:                 roles.Role(m.Role),
		RoleChangedAt:        normalizeOptionalTime(m.RoleChangedAt),
		TokensRevokedAt:      normalizeOptionalTime(m.TokensRevokedAt),
		TokenRevocationError: m.TokenRevocationError,
		ClaimsSyncedAt:       normalizeOptionalTime(m.ClaimsSyncedAt),
		RevertedAt:           normalizeOptionalTime(m.RevertedAt),
		RevertReason:         m.RevertReason,
		CreatedAt:            m.CreatedAt.UTC(),
		UpdatedAt:            m.UpdatedAt.UTC(),
	}
	if m.PreviousRole != nil {
		previous := roles.Role(*m.PreviousRole)
		record.PreviousRole = &previous
	}
	return record
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}
