// Package cli defines the command-line flags of the csv-mailer server binary.
// Every flag falls back to an environment variable.
package cli
