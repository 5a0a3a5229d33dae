package report

import (
	"context"
	"path"

	"gocloud.dev/blob"

	"github.com/getsentry/kernelplot/internal/storageutil"
)

// Key is where a summary is archived: <source>/<run id>.json.lz4.
func Key(s Summary) string {
	return path.Join(s.Source, s.RunID+".json.lz4")
}

func Archive(ctx context.Context, b *blob.Bucket, s Summary) (string, error) {
	key := Key(s)
	if err := storageutil.CompressedWrite(ctx, b, key, s); err != nil {
		return "", err
	}
	return key, nil
}

// Load reads back an archived summary. A missing key returns
// storageutil.ErrObjectNotFound.
func Load(ctx context.Context, b *blob.Bucket, key string) (Summary, error) {
	var s Summary
	err := storageutil.UnmarshalCompressed(ctx, b, key, &s)
	return s, err
}
