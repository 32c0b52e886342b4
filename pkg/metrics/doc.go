// Package metrics defines Prometheus metrics for the mailer, covering
// provider sends, dispatch batches and runs, address extraction and API rate
// limiting.
package metrics
