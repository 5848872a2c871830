// Package temporalx hosts document extraction on a Temporal cluster.
package temporalx

import (
	"context"
	"fmt"
	"time"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/chal0326/researchcms/internal/config"
	"github.com/chal0326/researchcms/internal/logger"
	"github.com/chal0326/researchcms/internal/retry"
)

const dialTimeout = 5 * time.Second

var dialPolicy = retry.Policy{MaxAttempts: 8, InitialDelay: 250 * time.Millisecond, BackoffMultiplier: 2}

// NewClient dials Temporal, retrying while the frontend comes up. It returns
// a nil client when no address is configured.
func NewClient(ctx context.Context, cfg config.TemporalConfig, log *logger.Logger) (temporalsdkclient.Client, error) {
	if cfg.Address == "" {
		log.Warn("temporal.address not set; Temporal disabled")
		return nil, nil
	}

	opts := temporalsdkclient.Options{
		HostPort:  cfg.Address,
		Namespace: cfg.Namespace,
		Logger:    log,
	}

	var c temporalsdkclient.Client
	err := retry.Do(ctx, dialPolicy, func(ctx context.Context, attempt int) error {
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()

		var err error
		c, err = temporalsdkclient.DialContext(dialCtx, opts)
		if err != nil {
			log.Warn("Temporal not reachable; retrying", "address", cfg.Address, "attempt", attempt, "error", err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("temporal dial failed (address=%s namespace=%s): %w", cfg.Address, cfg.Namespace, err)
	}

	log.Info("Connected to Temporal", "address", cfg.Address, "namespace", cfg.Namespace)
	return c, nil
}
