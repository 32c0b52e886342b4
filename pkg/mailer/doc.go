// Package mailer holds the HTTP controllers of the CSV mailer: address
// extraction from uploaded CSV files and batched sending.
package mailer
