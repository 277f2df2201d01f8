package roleservice

import (
	"log/slog"
	"time"

	httpadapter "lyceum/contexts/identity-access/role-service/adapters/http"
	"lyceum/contexts/identity-access/role-service/adapters/memory"
	"lyceum/contexts/identity-access/role-service/application/claims"
	"lyceum/contexts/identity-access/role-service/application/commands"
	"lyceum/contexts/identity-access/role-service/application/triggers"
	"lyceum/contexts/identity-access/role-service/application/workers"
	"lyceum/contexts/identity-access/role-service/ports"
)

// Module is the role-service composition root exposed to runtime wiring.
type Module struct {
	Handler       httpadapter.Handler
	IdentityWrite triggers.IdentityWriteHandler
	ClaimsAuditor workers.ClaimsAuditor
	Store         *memory.Store
}

// Dependencies captures all runtime ports/config required by NewModule.
type Dependencies struct {
	Identities       ports.IdentityRepository
	Gateway          ports.AuthGateway
	Clock            ports.Clock
	ClaimsStaleAfter time.Duration
	AuditPageSize    int
	Logger           *slog.Logger
}

// NewModule wires the claims synchronizer, identity trigger, emergency
// revoke, and claims auditor using explicit ports.
func NewModule(deps Dependencies) Module {
	synchronizer := claims.Synchronizer{
		Gateway:    deps.Gateway,
		Identities: deps.Identities,
		Clock:      deps.Clock,
		StaleAfter: deps.ClaimsStaleAfter,
		Logger:     deps.Logger,
	}
	identityWrite := triggers.IdentityWriteHandler{
		Identities: deps.Identities,
		Claims:     synchronizer,
		Gateway:    deps.Gateway,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	}
	emergencyRevoke := commands.EmergencyRevokeUseCase{
		Identities: deps.Identities,
		Gateway:    deps.Gateway,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	}
	auditor := workers.ClaimsAuditor{
		Identities: deps.Identities,
		Claims:     synchronizer,
		Clock:      deps.Clock,
		PageSize:   deps.AuditPageSize,
		Logger:     deps.Logger,
	}

	return Module{
		Handler: httpadapter.Handler{
			Claims:          synchronizer,
			EmergencyRevoke: emergencyRevoke,
			Clock:           deps.Clock,
			Logger:          deps.Logger,
		},
		IdentityWrite: identityWrite,
		ClaimsAuditor: auditor,
	}
}

// NewInMemoryModule builds a development/testing module with the in-memory
// identity store standing in for both the document store and the auth gateway.
func NewInMemoryModule(clock ports.Clock, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Identities:       store,
		Gateway:          store,
		Clock:            clock,
		ClaimsStaleAfter: claims.DefaultStaleAfter,
		Logger:           logger,
	})
	module.Store = store
	return module
}
