package redisadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	domainerrors "lyceum/contexts/identity-access/role-service/domain/errors"
	"lyceum/contexts/identity-access/role-service/ports"
)

const (
	claimsKeyPrefix  = "identity:claims:"
	revokedKeyPrefix = "identity:revoked_at:"

	// maxClaimsBytes bounds the cached payload; token claims ride on every
	// issued token and must stay small.
	maxClaimsBytes = 1000
)

// Gateway implements ports.AuthGateway on Redis. Claims live as JSON under a
// per-identity key; revocation is a timestamp mark that the token issuer
// compares against refresh-token mint times. Already-issued access tokens
// keep working until their own TTL, so callers get a bounded, not
// instantaneous, revocation guarantee.
type Gateway struct {
	client *redis.Client
	logger *slog.Logger
}

func NewGateway(client *redis.Client, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{client: client, logger: logger}
}

func (g *Gateway) SetClaims(ctx context.Context, identityID string, payload ports.Claims) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode claims: %w", err)
	}
	if len(raw) > maxClaimsBytes {
		return domainerrors.ErrClaimsTooLarge
	}
	if err := g.client.Set(ctx, claimsKeyPrefix+identityID, raw, 0).Err(); err != nil {
		return fmt.Errorf("set claims: %w", err)
	}
	return nil
}

func (g *Gateway) GetClaims(ctx context.Context, identityID string) (*ports.Claims, error) {
	raw, err := g.client.Get(ctx, claimsKeyPrefix+identityID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get claims: %w", err)
	}
	var payload ports.Claims
	if err := json.Unmarshal(raw, &payload); err != nil {
		// Corrupt cache entries are reported as absent so the caller heals
		// them with a fresh sync.
		g.logger.Warn("cached claims failed to decode",
			"event", "identity_claims_decode_failed",
			"module", "identity-access/role-service",
			"layer", "adapter",
			"identity_id", identityID,
			"error", err.Error(),
		)
		return nil, nil
	}
	return &payload, nil
}

func (g *Gateway) ClearClaims(ctx context.Context, identityID string) error {
	if err := g.client.Del(ctx, claimsKeyPrefix+identityID).Err(); err != nil {
		return fmt.Errorf("clear claims: %w", err)
	}
	return nil
}

func (g *Gateway) RevokeRefreshTokens(ctx context.Context, identityID string) error {
	mark := time.Now().UTC().Format(time.RFC3339)
	if err := g.client.Set(ctx, revokedKeyPrefix+identityID, mark, 0).Err(); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}
