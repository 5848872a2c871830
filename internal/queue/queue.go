// Package queue carries document references between the enqueue endpoint and
// the workers that start extraction workflows.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/chal0326/researchcms/internal/config"
	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/logger"
)

var ErrNotConfigured = errors.New("queue binding not configured")

// Handler processes one message. The message is acknowledged only when ack
// is true; a returned error is logged and leaves it pending.
type Handler func(ctx context.Context, ref model.DocumentRef) (ack bool, err error)

type Queue interface {
	Send(ctx context.Context, ref model.DocumentRef) error
	// Consume blocks, delivering messages to h until ctx is done.
	Consume(ctx context.Context, h Handler) error
	Close() error
}

// Open connects the configured queue provider.
func Open(cfg config.QueueConfig, log *logger.Logger) (Queue, error) {
	switch strings.ToLower(cfg.Provider) {
	case "redis":
		return NewRedis(cfg.Addr, cfg.Password, cfg.Topic, cfg.Group, log), nil
	case "kafka":
		return NewKafka(cfg.Brokers, cfg.Topic, cfg.Group, log)
	case "":
		return nil, ErrNotConfigured
	default:
		return nil, fmt.Errorf("unsupported queue provider %q", cfg.Provider)
	}
}

func encode(ref model.DocumentRef) ([]byte, error) {
	return json.Marshal(ref)
}

func decode(data []byte) (model.DocumentRef, error) {
	var ref model.DocumentRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return ref, fmt.Errorf("decode message: %w", err)
	}
	if ref.Key == "" {
		return ref, errors.New("decode message: missing key")
	}
	return ref, nil
}
