package bucket

import (
	"context"
	"fmt"
	"strings"

	"github.com/chal0326/researchcms/internal/config"
)

// Open builds a registry from the configured bindings.
func Open(ctx context.Context, bindings map[string]config.BucketConfig) (Registry, error) {
	reg := make(Registry, len(bindings))
	for binding, cfg := range bindings {
		var (
			b   Bucket
			err error
		)
		switch strings.ToLower(cfg.Provider) {
		case "s3", "r2", "":
			b, err = NewS3(ctx, S3Config{
				Bucket:    cfg.Name,
				Region:    cfg.Region,
				Endpoint:  cfg.Endpoint,
				AccessKey: cfg.AccessKey,
				SecretKey: cfg.SecretKey,
			})
		case "gcs":
			b, err = NewGCS(ctx, cfg.Name, cfg.Endpoint)
		case "memory":
			b = NewMemory()
		default:
			err = fmt.Errorf("unsupported provider %q", cfg.Provider)
		}
		if err != nil {
			return nil, fmt.Errorf("bucket %s: %w", binding, err)
		}
		reg[binding] = b
	}
	return reg, nil
}
