package memory

import (
	"context"
	"sort"
	"sync"

	domainerrors "lyceum/contexts/identity-access/role-service/domain/errors"
	"lyceum/contexts/identity-access/role-service/ports"
)

// Store is an in-memory identity repository plus a fake auth gateway. It
// backs tests and local development; failure injection hooks simulate gateway
// outages.
type Store struct {
	mu sync.RWMutex

	identitiesByID map[string]ports.IdentityRecord
	claimsByID     map[string]ports.Claims
	revokedByID    map[string]int

	// Failure injection for gateway calls.
	FailSetClaims    error
	FailClearClaims  error
	FailGetClaims    error
	FailRevokeTokens error
}

func NewStore() *Store {
	return &Store{
		identitiesByID: make(map[string]ports.IdentityRecord),
		claimsByID:     make(map[string]ports.Claims),
		revokedByID:    make(map[string]int),
	}
}

// SeedIdentity installs a record directly, bypassing validation.
func (s *Store) SeedIdentity(record ports.IdentityRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identitiesByID[record.IdentityID] = record
}

func (s *Store) GetIdentity(_ context.Context, identityID string) (ports.IdentityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.identitiesByID[identityID]
	if !ok {
		return ports.IdentityRecord{}, domainerrors.ErrIdentityNotFound
	}
	return record, nil
}

func (s *Store) UpdateIdentity(_ context.Context, record ports.IdentityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.identitiesByID[record.IdentityID]; !ok {
		return domainerrors.ErrIdentityNotFound
	}
	s.identitiesByID[record.IdentityID] = record
	return nil
}

func (s *Store) ListIdentities(_ context.Context, afterID string, limit int) ([]ports.IdentityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.identitiesByID))
	for id := range s.identitiesByID {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	page := make([]ports.IdentityRecord, 0, len(ids))
	for _, id := range ids {
		page = append(page, s.identitiesByID[id])
	}
	return page, nil
}

func (s *Store) SetClaims(_ context.Context, identityID string, payload ports.Claims) error {
	if s.FailSetClaims != nil {
		return s.FailSetClaims
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claimsByID[identityID] = payload
	return nil
}

func (s *Store) GetClaims(_ context.Context, identityID string) (*ports.Claims, error) {
	if s.FailGetClaims != nil {
		return nil, s.FailGetClaims
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	payload, ok := s.claimsByID[identityID]
	if !ok {
		return nil, nil
	}
	copied := payload
	return &copied, nil
}

func (s *Store) ClearClaims(_ context.Context, identityID string) error {
	if s.FailClearClaims != nil {
		return s.FailClearClaims
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claimsByID, identityID)
	return nil
}

func (s *Store) RevokeRefreshTokens(_ context.Context, identityID string) error {
	if s.FailRevokeTokens != nil {
		return s.FailRevokeTokens
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokedByID[identityID]++
	return nil
}

// RevocationCount reports how many times tokens were revoked for an identity.
func (s *Store) RevocationCount(identityID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revokedByID[identityID]
}
