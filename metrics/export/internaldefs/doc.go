// Package internaldefs holds the metric names and bucket boundaries shared by
// the exporter implementations.
//
// Both the Prometheus and OTel exporters read these definitions, so a change
// here renames the metric in every exporter at once.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
