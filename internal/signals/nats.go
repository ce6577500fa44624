package signals

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/DoyleJ11/styleguess-backend/pkg/types"
)

// NATSSink publishes each signal as JSON on <prefix>.<session>.<signal type>.
type NATSSink struct {
	conn   *nats.Conn
	prefix string
}

func ConnectNATS(url, prefix string, logger *zap.Logger) (*NATSSink, error) {
	conn, err := nats.Connect(url,
		nats.Name("styleguess"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &NATSSink{conn: conn, prefix: prefix}, nil
}

func (s *NATSSink) Publish(_ context.Context, sig types.Signal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("failed to marshal signal: %w", err)
	}
	if err := s.conn.Publish(subjectFor(s.prefix, sig), payload); err != nil {
		return fmt.Errorf("failed to publish %s: %w", sig.Type, err)
	}
	return nil
}

func (s *NATSSink) Close() error {
	return s.conn.Drain()
}

func subjectFor(prefix string, sig types.Signal) string {
	return prefix + "." + sig.Session + "." + sig.Type
}
