// Package api handles incoming HTTP requests, routing, request
// validation, and response formatting for the report service. It acts
// as an adapter between external clients and the job system,
// translating HTTP concerns to job operations.
package api
