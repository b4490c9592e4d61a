// Package observability provides structured logging, Prometheus metrics and
// OpenTelemetry tracing for the Rosterly client.
package observability
