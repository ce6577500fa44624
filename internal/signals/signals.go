package signals

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/styleguess-backend/pkg/types"
)

// Sink receives round signals. Publish is called from the session goroutine
// and must not block for long.
type Sink interface {
	Publish(ctx context.Context, sig types.Signal) error
}

// Fanout publishes to every sink, returning the combined errors.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, sig types.Signal) error {
	var err error
	for _, s := range f {
		err = multierr.Append(err, s.Publish(ctx, sig))
	}
	return err
}

type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(_ context.Context, sig types.Signal) error {
	s.logger.Info("signal",
		zap.String("type", sig.Type),
		zap.String("session", sig.Session),
		zap.Uint64("epoch", sig.Epoch),
		zap.Int("delta", sig.Delta),
	)
	return nil
}
