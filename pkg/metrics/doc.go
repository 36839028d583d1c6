/*
Package metrics exposes Prometheus instrumentation for the remote
configuration subsystem: load/save counters and validation pass duration.
Metrics self-register on import; Handler serves the standard scrape endpoint.
*/
package metrics
