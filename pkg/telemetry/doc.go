// Package telemetry wires Prometheus metrics and OpenTelemetry tracing for
// the gateway. Both are optional: a nil *Metrics records nothing and an empty
// OTLP endpoint installs no exporter.
package telemetry
