// Package prometheus exposes authclient metrics as a Prometheus collector.
//
// [PrometheusExporter] implements [prometheus.Collector] over
// [authclient.Client.MetricsSnapshot]. Register it with your own registry, or mount
// [PrometheusExporter.Handler], which serves it from a private one. Counter names are
// prefixed authclient_*_total; the single histogram is authclient_remote_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry.
//   - Mutate client state.
package prometheus
