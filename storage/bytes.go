package storage

import (
	"bytes"
	"context"
	"io"
)

// WriteBytes uploads data to path.
func WriteBytes(ctx context.Context, s Storage, path string, data []byte) error {
	return s.Upload(ctx, path, bytes.NewReader(data))
}

// ReadBytes downloads the whole object at path.
func ReadBytes(ctx context.Context, s Storage, path string) ([]byte, error) {
	rc, err := s.Download(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
