package bucket

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUnknownBucket  = errors.New("bucket binding not found")
)

type Object struct {
	Key  string
	Size int64
}

// Page is one listing page. Cursor resumes the listing when Truncated.
type Page struct {
	Objects   []Object
	Truncated bool
	Cursor    string
}

// Bucket is a read-only view of an object store.
type Bucket interface {
	List(ctx context.Context, prefix, cursor string, limit int) (Page, error)
	Get(ctx context.Context, key string) (string, error)
}

// Registry resolves binding names such as RESEARCH_DOCS to buckets.
type Registry map[string]Bucket

func (r Registry) Bucket(name string) (Bucket, error) {
	b, ok := r[name]
	if !ok || b == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBucket, name)
	}
	return b, nil
}

// IsDocumentKey reports whether key names a markdown or plain-text document.
func IsDocumentKey(key string) bool {
	switch strings.ToLower(path.Ext(key)) {
	case ".md", ".txt":
		return true
	}
	return false
}

// Walk lists every object under prefix, page by page, and calls fn for each
// document key. It stops at the first error from the listing or from fn.
func Walk(ctx context.Context, b Bucket, prefix string, pageSize int, fn func(key string) error) error {
	cursor := ""
	for {
		page, err := b.List(ctx, prefix, cursor, pageSize)
		if err != nil {
			return err
		}
		for _, obj := range page.Objects {
			if !IsDocumentKey(obj.Key) {
				continue
			}
			if err := fn(obj.Key); err != nil {
				return err
			}
		}
		if !page.Truncated || page.Cursor == "" {
			return nil
		}
		cursor = page.Cursor
	}
}
