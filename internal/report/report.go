// Package report holds the sinks a sampling cycle's Report is delivered to.
package report

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Dicklesworthstone/diskpulse/internal/model"
)

// Sink consumes reports. Close flushes and releases whatever the sink holds;
// it is called once when monitoring stops.
type Sink interface {
	Emit(ctx context.Context, r model.Report) error
	Close() error
}

// Multi fans a report out to every sink, in order. A failing sink does not
// stop the others.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, r model.Report) error {
	var first error
	failed := 0
	for _, s := range m {
		if err := s.Emit(ctx, r); err != nil {
			if first == nil {
				first = err
			}
			failed++
		}
	}
	if first != nil {
		return errors.Wrapf(first, "%d of %d sinks failed", failed, len(m))
	}
	return nil
}

func (m Multi) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
