package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Open picks a Source for the given catalog URI. Plain paths and file:// read a
// local document, http(s):// fetches one, postgres:// reads the puzzle_entries table.
func Open(ctx context.Context, uri string, logger *zap.Logger) (Source, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog uri: %w", err)
	}

	switch u.Scheme {
	case "", "file":
		path := uri
		if u.Scheme == "file" {
			path = strings.TrimPrefix(uri, "file://")
		}
		return NewFileSource(path, logger), nil
	case "http", "https":
		return NewHTTPSource(uri, nil, logger), nil
	case "postgres", "postgresql":
		return NewPostgresSource(ctx, uri, logger)
	default:
		return nil, fmt.Errorf("unknown catalog scheme %q", u.Scheme)
	}
}

// decodeReported decodes a document, logging entries that had to be skipped.
func decodeReported(data []byte, origin string, logger *zap.Logger) (Catalog, error) {
	cat, err := Decode(data)
	if cat == nil {
		return nil, err
	}
	if err != nil {
		skipped := multierr.Errors(err)
		logger.Warn("skipped malformed catalog entries",
			zap.String("origin", origin),
			zap.Int("skipped", len(skipped)),
			zap.Int("loaded", len(cat)),
			zap.Errors("reasons", skipped),
		)
	}
	return cat, nil
}
