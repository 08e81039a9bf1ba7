package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// fileSource serves rows from a JSON document with the same shape as the
// upstream HTTP response. Rows carrying a username only match that
// subscriber; rows without one match everybody. The query window is not
// applied.
type fileSource struct {
	path string
	doc  pageDoc
}

func newFileSource(path string) (*fileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("source: read file: %w", err)
	}
	fs := &fileSource{path: path}
	if err := json.Unmarshal(data, &fs.doc); err != nil {
		return nil, fmt.Errorf("source: parse %s: %w", path, err)
	}
	return fs, nil
}

func (s *fileSource) FetchPage(ctx context.Context, q Query) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var matched []RawRow
	for _, r := range s.doc.Rows {
		if r.Username != "" && r.Username != q.Username {
			continue
		}
		matched = append(matched, RawRow{TimestampText: r.Timestamp, StatusText: r.Status})
	}

	page := &Page{}
	if q.WantTotal {
		n := len(matched)
		page.TotalHint = &n
	}
	if q.Offset >= len(matched) || q.Limit <= 0 {
		page.Rows = []RawRow{}
		return page, nil
	}
	end := q.Offset + q.Limit
	if end > len(matched) {
		end = len(matched)
	}
	page.Rows = append([]RawRow(nil), matched[q.Offset:end]...)
	return page, nil
}
