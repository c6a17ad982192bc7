// Package config provides configuration management for archivist.
//
// Configuration is layered, later sources overriding earlier ones:
//
//  1. Default values (defined in defaults.go)
//  2. Values from an optional YAML file
//  3. Environment variable overrides (ARCHIVIST_SECTION_FIELD)
//  4. Command-line flags, applied by the CLI
//
// followed by validation, which collects every problem into a single
// ValidationError instead of failing on the first one.
//
// # Loading
//
//	cfg, err := config.LoadConfig("archivist.yaml")
//
// or, when flags still need to be layered on top:
//
//	cfg, err := config.Read(path) // file + environment
//	// ... apply flags ...
//	config.ApplyDefaults(cfg)
//	err = config.Validate(cfg)
//
// # Environment Variable Overrides
//
// For example:
//
//   - ARCHIVIST_INDEX_URL overrides index.url
//   - ARCHIVIST_RANGE_DAYS overrides range.days
//   - ARCHIVIST_DESTINATION_HDFS_PATH overrides destination.hdfs.path
//   - ARCHIVIST_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Example
//
//	mode: archive
//	index:
//	  url: http://solr.example.com:8886/solr
//	  collection: hadoop_logs
//	  filter_field: logtime
//	range:
//	  days: 30
//	output:
//	  compression: tar.gz
//	destination:
//	  hdfs:
//	    user: hdfs
//	    path: /archive/hadoop_logs
//
// The loaded *Config is passed explicitly to the components that need it;
// there is no package level instance.
package config
