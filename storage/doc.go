// Package storage keeps finished transcripts behind a small object store
// interface.
//
// Backends register themselves from init:
//
//   - storage/local: a directory on disk
//   - storage/s3: Amazon S3 or an S3-compatible service
//
// Configuration:
//
//	storage:
//	  provider: s3
//	  bucket: transcripts
//	  region: eu-west-1
//	  prefix: diarscribe/
package storage
