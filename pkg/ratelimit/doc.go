// Package ratelimit provides per-IP rate limiting middleware for the mailer
// API, so a single client cannot trigger unbounded send runs.
package ratelimit
