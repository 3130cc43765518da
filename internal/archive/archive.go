package archive

import (
	"context"
	"encoding/json"
	"errors"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/kode4food/twill/pkg/api"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
)

// Store persists completed run results as JSON blobs through
// gocloud.dev/blob, supporting local files, S3, GCS, Azure Blob
// Storage, and S3-compatible stores
type Store struct {
	bucket *blob.Bucket
	prefix string
}

// ErrRunNotArchived is returned when no blob exists for a run ID
var ErrRunNotArchived = errors.New("run not archived")

// New opens the bucket at bucketURL. Keys are prefixed so several
// deployments can share one bucket
func New(ctx context.Context, bucketURL, prefix string) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return &Store{bucket: bucket, prefix: prefix}, nil
}

// Put writes a run result to the bucket, replacing any previous blob
// for the same run ID
func (s *Store) Put(ctx context.Context, res *api.RunResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return s.bucket.WriteAll(ctx, s.keyFor(res.RunID), data, nil)
}

// Get reads a run result back by its ID
func (s *Store) Get(
	ctx context.Context, id api.RunID,
) (*api.RunResult, error) {
	data, err := s.bucket.ReadAll(ctx, s.keyFor(id))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, ErrRunNotArchived
		}
		return nil, err
	}

	var res api.RunResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *Store) Close() error {
	return s.bucket.Close()
}

func (s *Store) keyFor(id api.RunID) string {
	return s.prefix + string(id) + ".json"
}
