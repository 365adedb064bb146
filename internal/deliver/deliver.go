// Package deliver hands a rendered digest to an outbound channel.
package deliver

import (
	"context"
	"errors"
	"time"

	"bulletbot/internal/logging"
)

// Digest is one rendered digest and who it is addressed to.
type Digest struct {
	Text      string
	To        []string
	Cc        []string
	CreatedAt time.Time
}

type Sink interface {
	Deliver(ctx context.Context, d Digest) error
}

// LogSink writes the digest to the structured log.
type LogSink struct {
	Log logging.Logger
}

func (s LogSink) Deliver(ctx context.Context, d Digest) error {
	s.Log.Info(ctx, "digest",
		"to", d.To,
		"cc", d.Cc,
		"created_at", d.CreatedAt,
		"text", d.Text,
	)
	return nil
}

// Multi delivers to every sink in order. All sinks are tried; the errors
// of the ones that failed are joined.
type Multi []Sink

func (m Multi) Deliver(ctx context.Context, d Digest) error {
	var errs []error
	for _, s := range m {
		if err := s.Deliver(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
