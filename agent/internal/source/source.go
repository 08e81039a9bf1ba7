package source

import (
	"context"
	"fmt"
	"time"

	"github.com/linkpulse/linkpulse/agent/internal/config"
)

// RawRow is one upstream log row before normalization. Neither field is
// validated here.
type RawRow struct {
	TimestampText string
	StatusText    string
}

// Page is the result of one FetchPage call.
type Page struct {
	Rows []RawRow

	// TotalHint is the upstream's claimed total row count for the query, or
	// nil when it was not requested or could not be determined.
	TotalHint *int
}

// Query selects one page of one subscriber's log.
type Query struct {
	Username string
	Start    time.Time
	End      time.Time

	// Offset and Limit select rows [Offset, Offset+Limit).
	Offset int
	Limit  int

	// WantTotal asks the source to report TotalHint.
	WantTotal bool
}

// Source is implemented by every upstream log reader.
type Source interface {
	FetchPage(ctx context.Context, q Query) (*Page, error)
}

// New returns the appropriate Source for the given configuration.
func New(src config.Source) (Source, error) {
	var s Source
	switch src.Type {
	case "http":
		client, err := buildHTTPClient(src)
		if err != nil {
			return nil, fmt.Errorf("source: build http client: %w", err)
		}
		s = &httpSource{endpoint: src.Endpoint, client: client}
	case "file":
		fs, err := newFileSource(src.Path)
		if err != nil {
			return nil, err
		}
		s = fs
	default:
		return nil, fmt.Errorf("source: unsupported type %q", src.Type)
	}

	if src.Breaker.Failures > 0 {
		s = withBreaker(s, src.Breaker)
	}
	return s, nil
}
