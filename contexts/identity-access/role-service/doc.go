// Package roleservice keeps a user's stored role, the auth gateway's cached
// token claims, and outstanding refresh tokens consistent with each other.
//
// Layering:
// - domain: role hierarchy and transition validation (pure)
// - application: claims synchronizer, identity-write trigger, emergency revoke
// - ports: stable boundaries for the identity store and the auth gateway
// - adapters: memory (tests) and redis (claims cache + revocation marks)
// - transport: module-private DTOs for HTTP contracts
//
// Boundary notes:
// - Claims are derived, disposable state; the identity record is the only
//   source of truth and claims are rebuilt from it at any time.
// - Claims/revocation failures are recorded on the identity record, never
//   propagated back into the role write that triggered them.
package roleservice
