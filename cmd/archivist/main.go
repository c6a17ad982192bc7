// Archivist moves aged documents out of a Solr collection into archive
// storage, batch by batch, and can resume safely after a crash.
//
// Each batch is extracted in (boundary field, id) order, packaged into a
// compressed artifact, uploaded to HDFS, S3, a local directory or another
// collection, and only then purged from the source. An intent ledger in the
// working directory records what is owed so an interrupted run finishes the
// batch before extracting anything new.
//
// Usage:
//
//	# Archive everything older than 30 days into S3
//	archivist archive -s http://solr:8886/solr -c hadoop_logs -f logtime -d 30 \
//	    -t /etc/archivist/s3.key -b archive-bucket -y logs/
//
//	# Upload a copy without purging
//	archivist save --config /etc/archivist/logs.yaml
//
//	# Purge without keeping anything
//	archivist delete -s http://solr:8886/solr -c audit_logs -f evtTime -e 2024-01-01T00:00:00.000Z
//
//	# Run on a cron expression from the config file
//	archivist schedule --config /etc/archivist/logs.yaml
//
//	# Inspect pending work and past batches
//	archivist ledger show --config /etc/archivist/logs.yaml
//	archivist history --config /etc/archivist/logs.yaml
package main

func main() {
	Execute()
}
