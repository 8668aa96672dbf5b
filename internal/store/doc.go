// Package store defines the persistence interfaces consumed by the service
// layer, together with the sentinel errors implementations must return.
// Concrete Postgres implementations live in internal/platform/postgres.
package store
