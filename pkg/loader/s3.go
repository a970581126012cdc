package loader

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vango-dev/waypoint/pkg/view"
)

// ErrViewNotFound is returned by fetchers that have no source for a view.
var ErrViewNotFound = errors.New("view not found")

// ObjectGetter is the subset of the S3 client used by S3Fetcher.
// *s3.Client satisfies it.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher fetches view templates from an S3 bucket. The view "admin.users"
// is read from the object "<prefix>admin.users.tmpl" and parsed as a
// text/template executed with the view's Props.
//
// Example:
//
//	client := s3.New(s3.Options{Region: "us-east-1"})
//	l := loader.New(loader.NewS3Fetcher(client, "my-bucket", "views/"))
type S3Fetcher struct {
	client  ObjectGetter
	bucket  string
	prefix  string
	maxSize int64
}

// NewS3Fetcher creates a fetcher reading templates from bucket under prefix.
func NewS3Fetcher(client ObjectGetter, bucket, prefix string) *S3Fetcher {
	return &S3Fetcher{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		maxSize: 1 << 20,
	}
}

// WithMaxSize sets the largest template accepted, in bytes.
func (f *S3Fetcher) WithMaxSize(n int64) *S3Fetcher {
	f.maxSize = n
	return f
}

// Key returns the object key holding viewID.
func (f *S3Fetcher) Key(viewID string) string {
	return f.prefix + viewID + ".tmpl"
}

// Fetch implements Fetcher.
func (f *S3Fetcher) Fetch(ctx context.Context, viewID string) (view.Factory, error) {
	key := f.Key(viewID)
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("s3://%s/%s: %w", f.bucket, key, ErrViewNotFound)
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(io.LimitReader(out.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w", key, err)
	}
	if int64(len(body)) > f.maxSize {
		return nil, fmt.Errorf("s3 object %s exceeds %d bytes", key, f.maxSize)
	}

	return view.ParseTemplate(viewID, string(body))
}

// Chain returns a fetcher that tries each fetcher in order, moving to the
// next only when one reports ErrViewNotFound.
func Chain(fetchers ...Fetcher) Fetcher {
	return FetcherFunc(func(ctx context.Context, viewID string) (view.Factory, error) {
		for _, f := range fetchers {
			factory, err := f.Fetch(ctx, viewID)
			if errors.Is(err, ErrViewNotFound) {
				continue
			}
			return factory, err
		}
		return nil, fmt.Errorf("%q: %w", viewID, ErrViewNotFound)
	})
}
