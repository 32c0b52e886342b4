// Package api implements the HTTP server (Gin-based) for the CSV mailer:
// shared middleware, health, version and metrics endpoints, and the /api
// group that controllers register into.
package api
