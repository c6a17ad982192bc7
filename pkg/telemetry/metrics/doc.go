// Package metrics provides Prometheus metrics for archive runs.
//
// # Metrics
//
//   - records_archived_total: records committed by a run
//   - batches_total{stage}: batches that reached extracted, uploaded or purged
//   - failures_total{kind}: failed runs by error kind
//   - step_duration_seconds{step}: time spent in extract, package, upload and purge
//   - last_success_timestamp_seconds: unix time of the last successful run
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.AddRecords(1000)
//	collector.ObserveStep(metrics.StepUpload, time.Since(start))
//
//	// One-shot runs export through the node exporter textfile collector.
//	if err := collector.WriteTextfile(cfg.Telemetry.Metrics.TextfilePath); err != nil {
//	    logger.Warn("failed to write metrics", "error", err)
//	}
//
//	// The schedule command serves them instead.
//	http.Handle("/metrics", collector.Handler())
//
// A collector built from a disabled configuration accepts every call and
// records nothing.
package metrics
