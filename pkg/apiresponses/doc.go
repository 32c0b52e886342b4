// Package apiresponses provides standardized HTTP API response helpers
// (bad request, validation, rate limiting, internal error, multi-status)
// shared between the api and mailer packages without import cycles.
package apiresponses
