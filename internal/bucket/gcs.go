package bucket

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type GCSBucket struct {
	client *storage.Client
	bucket string
}

// NewGCS opens a Cloud Storage bucket. A non-empty endpoint targets an
// emulator without authentication.
func NewGCS(ctx context.Context, bucketName, endpoint string) (*GCSBucket, error) {
	var opts []option.ClientOption
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSBucket{client: client, bucket: bucketName}, nil
}

func (b *GCSBucket) List(ctx context.Context, prefix, cursor string, limit int) (Page, error) {
	it := b.client.Bucket(b.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	pager := iterator.NewPager(it, limit, cursor)

	var attrs []*storage.ObjectAttrs
	next, err := pager.NextPage(&attrs)
	if err != nil {
		return Page{}, fmt.Errorf("list gs://%s/%s: %w", b.bucket, prefix, err)
	}

	page := Page{Truncated: next != "", Cursor: next}
	for _, a := range attrs {
		page.Objects = append(page.Objects, Object{Key: a.Name, Size: a.Size})
	}
	return page, nil
}

func (b *GCSBucket) Get(ctx context.Context, key string) (string, error) {
	r, err := b.client.Bucket(b.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return "", fmt.Errorf("get gs://%s/%s: %w", b.bucket, key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read gs://%s/%s: %w", b.bucket, key, err)
	}
	return string(data), nil
}

func (b *GCSBucket) Close() error {
	return b.client.Close()
}
