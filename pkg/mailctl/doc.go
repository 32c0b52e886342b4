// Package mailctl is the command-line counterpart of the csv-mailer server:
// extract addresses from a CSV file and send to them with the configured
// provider without running the HTTP API.
package mailctl
