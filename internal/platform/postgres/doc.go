// Package postgres implements the job persistence interface on
// PostgreSQL. It owns the schema for job records, payloads and the
// pending-queue log, and maps between domain values and database rows.
package postgres
