// Package storage provides object storage with pluggable backends. The
// file error handler writes one object per failed batch through it.
//
// # Backends
//
//   - storage/local: local filesystem
//   - storage/s3: Amazon S3 and S3-compatible services such as MinIO
//
// Backends register themselves in init, so import the ones you need:
//
//	import _ "github.com/kbukum/etlkit/storage/local"
//
//	s, err := storage.New(ctx, storage.Config{Provider: "local", BasePath: "./errors"}, log)
package storage
