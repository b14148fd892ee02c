// Package metrics defines the sinks recording forecast runs. Sinks such as
// the Prometheus textfile exporter and the InfluxDB writer live in
// infra/metrics and register themselves by type name; NewSink builds one sink
// or a MultiSink from configuration.
package metrics
