package workers

import (
	"context"
	"log/slog"
	"time"

	application "lyceum/contexts/identity-access/role-service/application"
	"lyceum/contexts/identity-access/role-service/application/claims"
	"lyceum/contexts/identity-access/role-service/ports"
)

// ClaimsAuditor reconciles cached claims against stored roles across all
// identities. The lazy per-write healing in the trigger already converges
// active users; this sweep additionally covers identities that never write.
// Disabled by default via config.
type ClaimsAuditor struct {
	Identities ports.IdentityRepository
	Claims     claims.Synchronizer
	Clock      ports.Clock
	PageSize   int
	Logger     *slog.Logger
}

// AuditReport summarizes one reconciliation pass.
type AuditReport struct {
	Scanned  int
	Healed   int
	Failed   int
	Duration time.Duration
}

func (a ClaimsAuditor) RunOnce(ctx context.Context) (AuditReport, error) {
	logger := application.ResolveLogger(a.Logger)
	started := a.now()
	report := AuditReport{}

	afterID := ""
	for {
		page, err := a.Identities.ListIdentities(ctx, afterID, a.pageSize())
		if err != nil {
			return report, err
		}
		if len(page) == 0 {
			break
		}
		for _, record := range page {
			report.Scanned++
			cached, err := a.Claims.Get(ctx, record.IdentityID)
			if err != nil {
				report.Failed++
				continue
			}
			if !a.Claims.NeedsHeal(cached, record.Role, a.now()) {
				continue
			}
			if err := a.Claims.Sync(ctx, record.IdentityID, record.Role); err != nil {
				report.Failed++
				continue
			}
			report.Healed++
		}
		afterID = page[len(page)-1].IdentityID
		if len(page) < a.pageSize() {
			break
		}
	}

	report.Duration = a.now().Sub(started)
	logger.Info("claims audit completed",
		"event", "identity_claims_audit_completed",
		"module", "identity-access/role-service",
		"layer", "worker",
		"scanned", report.Scanned,
		"healed", report.Healed,
		"failed", report.Failed,
		"duration", report.Duration.String(),
	)
	return report, nil
}

func (a ClaimsAuditor) pageSize() int {
	if a.PageSize <= 0 {
		return 200
	}
	return a.PageSize
}

func (a ClaimsAuditor) now() time.Time {
	if a.Clock != nil {
		return a.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
