// Package version reports which diarscribe build is running.
//
//	go build -ldflags "-X github.com/kbukum/diarscribe/version.Version=1.0.0 \
//	  -X github.com/kbukum/diarscribe/version.Commit=$(git rev-parse --short HEAD)"
package version
