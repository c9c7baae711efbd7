// Package otel exports chainAuth counters and histograms through OpenTelemetry.
//
// [NewOTelExporter] registers an Int64ObservableCounter for each engine
// counter. Each histogram becomes a cumulative "_bucket" gauge carrying an
// "le" attribute plus a "_count" gauge. Sources that can count pending
// registrations, like the Engine, also get a chainauth_incomplete_registrations
// gauge. A single callback reads [chainAuth.Engine.MetricsSnapshot] on each
// collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider; callers supply the Meter.
//   - Mutate engine state.
package otel
