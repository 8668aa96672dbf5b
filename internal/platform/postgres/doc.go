// Package postgres provides PostgreSQL-backed implementations of the store
// interfaces. All implementations accept a store.DBTX, so they work with
// both *sql.DB connections and *sql.Tx transactions.
package postgres
