// Package config loads the ETL job file and the service settings around it.
//
// The job file is YAML. Connectors, jobs and pipeline stages are decoded
// as written, so parameter keys keep their case. Service settings (name,
// logging, observability, status) are also read through Viper, which lets
// .env files and environment variables such as ETL_LOGGING_LEVEL override them.
//
//	f, err := config.LoadFile("migrate.yml")
//	for _, job := range f.Jobs { ... }
package config
