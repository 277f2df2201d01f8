package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	enrollment "lyceum/contexts/course-access/enrollment-service"
	enrollmentpostgres "lyceum/contexts/course-access/enrollment-service/adapters/postgres"
	enrollmententities "lyceum/contexts/course-access/enrollment-service/domain/entities"
	roleservice "lyceum/contexts/identity-access/role-service"
	identitypostgres "lyceum/contexts/identity-access/role-service/adapters/postgres"
	redisadapter "lyceum/contexts/identity-access/role-service/adapters/redis"
	identitytriggers "lyceum/contexts/identity-access/role-service/application/triggers"
	identityports "lyceum/contexts/identity-access/role-service/ports"
	"lyceum/internal/platform/config"
	"lyceum/internal/platform/db"
	"lyceum/internal/platform/dispatch"
	"lyceum/internal/platform/httpserver"
	platformredis "lyceum/internal/platform/redis"
	"lyceum/internal/shared/change"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const (
	entityTypeIdentity   = "identity"
	entityTypeEnrollment = "enrollment"
)

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres   *db.Postgres
	identity   roleservice.Module
	enrollment enrollment.Module
	dispatcher *dispatch.Dispatcher
	cfg        config.Config
	logger     *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	identityModule, enrollmentModule, pg, err := buildModules(cfg, logger)
	if err != nil {
		return nil, err
	}

	auth := httpserver.JWTAuthenticator{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
	}
	server := httpserver.New(identityModule, enrollmentModule, auth, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	identityModule, enrollmentModule, pg, err := buildModules(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &WorkerApp{
		postgres:   pg,
		identity:   identityModule,
		enrollment: enrollmentModule,
		dispatcher: dispatch.NewDispatcher(dispatch.DefaultMaxAttempts, logger),
		cfg:        cfg,
		logger:     logger,
	}, nil
}

func buildModules(cfg config.Config, logger *slog.Logger) (roleservice.Module, enrollment.Module, *db.Postgres, error) {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return roleservice.Module{}, enrollment.Module{}, nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return roleservice.Module{}, enrollment.Module{}, nil, err
	}
	models := append(identitypostgres.Models(), enrollmentpostgres.Models()...)
	if err := pg.Migrate(models...); err != nil {
		_ = pg.Close()
		return roleservice.Module{}, enrollment.Module{}, nil, err
	}

	redisClient, err := platformredis.Connect(cfg.RedisAddr, cfg.RedisPass)
	if err != nil {
		_ = pg.Close()
		return roleservice.Module{}, enrollment.Module{}, nil, err
	}

	identityRepo := identitypostgres.NewRepository(pg.DB, logger)
	gateway := redisadapter.NewGateway(redisClient, logger)
	identityModule := roleservice.NewModule(roleservice.Dependencies{
		Identities:       identityRepo,
		Gateway:          gateway,
		Clock:            identitypostgres.SystemClock{},
		ClaimsStaleAfter: cfg.ClaimsStaleAfter,
		Logger:           logger,
	})

	enrollmentRepo := enrollmentpostgres.NewRepository(pg.DB, logger)
	enrollmentModule := enrollment.NewModule(enrollment.Dependencies{
		Enrollments:    enrollmentRepo,
		Sweep:          enrollmentRepo,
		Slips:          enrollmentRepo,
		Notifications:  enrollmentRepo,
		Courses:        enrollmentRepo,
		Approvals:      enrollmentRepo,
		Clock:          enrollmentpostgres.SystemClock{},
		IDGenerator:    enrollmentpostgres.UUIDGenerator{},
		SweepBatchSize: cfg.SweepBatchSize,
		WarningWindow:  cfg.ExpiryWarningWindow,
		Logger:         logger,
	})
	return identityModule, enrollmentModule, pg, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

// Dispatcher exposes the change feed so in-process publishers (admin tools,
// import jobs) can route writes through the trigger handlers.
func (w *WorkerApp) Dispatcher() *dispatch.Dispatcher {
	return w.dispatcher
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.subscribeTriggers(ctx)

	ticker := time.NewTicker(w.cfg.AccessSweepInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"sweep_interval", w.cfg.AccessSweepInterval.String(),
		"sweep_enabled", w.cfg.EnableAccessSweep,
		"warnings_enabled", w.cfg.EnableExpiryWarnings,
		"claims_audit_enabled", w.cfg.EnableClaimsAudit,
	)

	for {
		if w.cfg.EnableAccessSweep {
			if _, err := w.enrollment.AccessExpirer.RunOnce(ctx); err != nil {
				return err
			}
		}
		if w.cfg.EnableExpiryWarnings {
			if err := w.enrollment.ExpiryNotifier.RunOnce(ctx); err != nil {
				return err
			}
		}
		if w.cfg.EnableClaimsAudit {
			if _, err := w.identity.ClaimsAuditor.RunOnce(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) subscribeTriggers(ctx context.Context) {
	w.dispatcher.Subscribe(ctx, entityTypeIdentity, func(ctx context.Context, envelope change.Envelope) error {
		before, after := identitySnapshots(envelope)
		_, err := w.identity.IdentityWrite.Handle(ctx, identitytriggers.WriteContext{}, before, after)
		return err
	})
	w.dispatcher.Subscribe(ctx, entityTypeEnrollment, func(ctx context.Context, envelope change.Envelope) error {
		before, after := enrollmentSnapshots(envelope)
		effects := w.enrollment.EnrollmentWrite.Handle(ctx, before, after)
		return w.enrollment.EffectApplier.Apply(ctx, effects)
	})
}

func identitySnapshots(envelope change.Envelope) (*identityports.IdentityRecord, *identityports.IdentityRecord) {
	before, _ := envelope.Before.(*identityports.IdentityRecord)
	after, _ := envelope.After.(*identityports.IdentityRecord)
	return before, after
}

func enrollmentSnapshots(envelope change.Envelope) (*enrollmententities.Enrollment, *enrollmententities.Enrollment) {
	before, _ := envelope.Before.(*enrollmententities.Enrollment)
	after, _ := envelope.After.(*enrollmententities.Enrollment)
	return before, after
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
