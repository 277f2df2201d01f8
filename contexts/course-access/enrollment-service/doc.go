// Package enrollmentservice owns paid, time-boxed access to course content:
// the enrollment record with its cached access flag, the manual payment-slip
// review workflow, and the derived revenue/notification records.
//
// Layering:
// - domain: records and the pure access calculator
// - application: lifecycle triggers, approval/rejection/deletion commands,
//   the expiry sweep and warning workers
// - ports: stable boundaries for persistence and the approval transaction
// - adapters: memory (tests) and postgres (gorm, serializable approval)
// - transport: module-private DTOs for HTTP contracts
//
// Boundary notes:
// - accessGranted is a cache of the access calculator, never hand-set except
//   inside the approval transaction; triggers and the sweep converge it.
// - Approval effects are built completely before submission, so a
//   half-applied approval is unrepresentable rather than unlikely.
package enrollmentservice
