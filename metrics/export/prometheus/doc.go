// Package prometheus renders chainAuth metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] accepts a [chainAuth.Engine] and exposes an
// [http.Handler] serving every counter and the signature latency histogram.
// Counter names are prefixed chainauth_*_total; the histogram is
// chainauth_signature_verify_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the Handler.
//   - Mutate engine state.
package prometheus
