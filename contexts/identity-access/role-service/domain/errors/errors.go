package errors

import "errors"

var (
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidIdentityID  = errors.New("invalid identity id")
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrReasonRequired     = errors.New("revocation reason is required")
	ErrClaimsTooLarge     = errors.New("claims payload exceeds size bound")
	ErrClaimsCorrupt      = errors.New("claims payload failed structural validation")
	ErrGatewayUnavailable = errors.New("auth gateway unavailable")
)
