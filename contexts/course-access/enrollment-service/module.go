package enrollmentservice

import (
	"log/slog"
	"time"

	httpadapter "lyceum/contexts/course-access/enrollment-service/adapters/http"
	"lyceum/contexts/course-access/enrollment-service/adapters/memory"
	"lyceum/contexts/course-access/enrollment-service/application/commands"
	"lyceum/contexts/course-access/enrollment-service/application/queries"
	"lyceum/contexts/course-access/enrollment-service/application/triggers"
	"lyceum/contexts/course-access/enrollment-service/application/workers"
	"lyceum/contexts/course-access/enrollment-service/ports"
)

// Module is the enrollment-service composition root exposed to runtime wiring.
type Module struct {
	Handler         httpadapter.Handler
	EnrollmentWrite triggers.EnrollmentWriteHandler
	EffectApplier   triggers.EffectApplier
	AccessExpirer   workers.AccessExpirer
	ExpiryNotifier  workers.ExpiryNotifier
	Store           *memory.Store
}

// Dependencies captures all runtime ports/config required by NewModule.
type Dependencies struct {
	Enrollments    ports.EnrollmentRepository
	Sweep          ports.SweepStore
	Slips          ports.PaymentSlipRepository
	Notifications  ports.NotificationOutbox
	Courses        ports.CourseCatalog
	Approvals      ports.ApprovalStore
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	SweepBatchSize int
	WarningWindow  time.Duration
	Logger         *slog.Logger
}

// NewModule wires the payment review commands, the access query, the
// enrollment lifecycle trigger, and the expiry workers using explicit ports.
func NewModule(deps Dependencies) Module {
	submit := commands.SubmitPaymentUseCase{
		Slips:       deps.Slips,
		Enrollments: deps.Enrollments,
		Courses:     deps.Courses,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	approve := commands.ApprovePaymentUseCase{
		Slips:       deps.Slips,
		Enrollments: deps.Enrollments,
		Courses:     deps.Courses,
		Approvals:   deps.Approvals,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
	}
	reject := commands.RejectPaymentUseCase{
		Slips:         deps.Slips,
		Notifications: deps.Notifications,
		Clock:         deps.Clock,
		IDGenerator:   deps.IDGenerator,
		Logger:        deps.Logger,
	}
	deleteSlip := commands.DeletePaymentSlipUseCase{
		Slips:       deps.Slips,
		Enrollments: deps.Enrollments,
		Logger:      deps.Logger,
	}

	return Module{
		Handler: httpadapter.Handler{
			SubmitPayment:  submit,
			ApprovePayment: approve,
			RejectPayment:  reject,
			DeleteSlip:     deleteSlip,
			Access: queries.GetAccessQuery{
				Enrollments: deps.Enrollments,
				Clock:       deps.Clock,
			},
			Logger: deps.Logger,
		},
		EnrollmentWrite: triggers.EnrollmentWriteHandler{
			Clock:  deps.Clock,
			Logger: deps.Logger,
		},
		EffectApplier: triggers.EffectApplier{
			Enrollments: deps.Enrollments,
			Logger:      deps.Logger,
		},
		AccessExpirer: workers.AccessExpirer{
			Store:     deps.Sweep,
			Clock:     deps.Clock,
			BatchSize: deps.SweepBatchSize,
			Logger:    deps.Logger,
		},
		ExpiryNotifier: workers.ExpiryNotifier{
			Store:         deps.Sweep,
			Notifications: deps.Notifications,
			Clock:         deps.Clock,
			IDGenerator:   deps.IDGenerator,
			Window:        deps.WarningWindow,
			BatchSize:     deps.SweepBatchSize,
			Logger:        deps.Logger,
		},
	}
}

// NewInMemoryModule builds a development/testing module with the in-memory
// store standing in for every persistence port.
func NewInMemoryModule(clock ports.Clock, idGenerator ports.IDGenerator, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Enrollments:   store,
		Sweep:         store,
		Slips:         store,
		Notifications: store,
		Courses:       store,
		Approvals:     store,
		Clock:         clock,
		IDGenerator:   idGenerator,
		Logger:        logger,
	})
	module.Store = store
	return module
}
