// Package logger provides structured logging for etlkit using zerolog.
//
// It supports JSON and console output, writing to stdout, stderr or an
// append-only log file, level configuration, and stage/job scoped loggers
// with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//	  output: "/var/log/etl.log"
//
// # Usage
//
//	log := logger.WithComponent("driver").WithJob("partners")
//	log.Info("partition queued", logger.Fields("offset", 0, "limit", 50))
package logger
