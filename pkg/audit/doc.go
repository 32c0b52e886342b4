// Package audit records one structured event per dispatch run and fans it out
// to the configured sinks (structured log, optionally Kafka).
package audit
