package paginator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/linkpulse/linkpulse/agent/internal/source"
	"github.com/linkpulse/linkpulse/agent/internal/timeline"
)

const (
	DefaultPageSize = 100
	DefaultMaxPages = 1000
)

// Outcome is how a FetchAll run ended.
type Outcome int

const (
	OutcomeComplete Outcome = iota
	OutcomeCancelled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComplete:
		return "complete"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StopReason records which rule ended a completed run.
type StopReason string

const (
	StopShortPage StopReason = "short_page"
	StopTotal     StopReason = "total_reached"
	StopMaxPages  StopReason = "max_pages"
	StopNone      StopReason = ""
)

// ProgressFunc is called after every page with the number of valid entries
// accumulated so far, the 1-based page number, and the total hint (nil when
// unknown).
type ProgressFunc func(fetched, page int, total *int)

// Options controls one FetchAll run.
type Options struct {
	// Start and End bound the requested window. Zero values are omitted from
	// the upstream query.
	Start time.Time
	End   time.Time

	// PageSize is the number of rows requested per page. Defaults to 100.
	PageSize int

	// MaxPages stops the run after this many pages. Zero means no limit.
	MaxPages int

	// Location is used for timestamps without an explicit offset. Nil means UTC.
	Location *time.Location

	OnProgress ProgressFunc
}

// Result is the outcome of one FetchAll run.
type Result struct {
	// Entries holds every valid entry fetched, newest first.
	Entries []timeline.Entry

	Outcome Outcome
	Stop    StopReason

	// Err is set when Outcome is OutcomeFailed.
	Err error

	Pages int

	// Total is the hint read from the first page, or nil when unknown.
	Total *int

	// Rows is the number of raw rows received, including unparsable ones.
	Rows int
}

// Dropped is the number of raw rows that did not normalize.
func (r *Result) Dropped() int {
	return r.Rows - len(r.Entries)
}

// FetchAll requests pages [offset, offset+PageSize) from src until a page
// comes back short, the accumulated entry count reaches the total hint, or
// ctx is cancelled. A transport error ends the run with OutcomeFailed and the
// entries gathered so far.
func FetchAll(ctx context.Context, src source.Source, username string, opts Options) *Result {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	res := &Result{Entries: []timeline.Entry{}}
	offset := 0

	for page := 1; ; page++ {
		if ctx.Err() != nil {
			res.Outcome = OutcomeCancelled
			break
		}
		if opts.MaxPages > 0 && page > opts.MaxPages {
			slog.Warn("paginator: page limit reached, stopping early",
				"subscriber", username, "max_pages", opts.MaxPages)
			res.Stop = StopMaxPages
			break
		}

		p, err := src.FetchPage(ctx, source.Query{
			Username:  username,
			Start:     opts.Start,
			End:       opts.End,
			Offset:    offset,
			Limit:     pageSize,
			WantTotal: page == 1,
		})
		// A page that lands after cancellation is discarded.
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			res.Outcome = OutcomeCancelled
			break
		}
		if err != nil {
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("paginator: page %d: %w", page, err)
			break
		}

		if page == 1 && p.TotalHint != nil && *p.TotalHint >= 0 {
			total := *p.TotalHint
			res.Total = &total
			if total == 0 {
				res.Pages = 1
				res.Stop = StopTotal
				break
			}
		}

		res.Rows += len(p.Rows)
		for _, row := range p.Rows {
			if e, ok := timeline.Normalize(row.TimestampText, row.StatusText, opts.Location); ok {
				res.Entries = append(res.Entries, e)
			}
		}
		res.Pages = page

		fetched := len(res.Entries)
		slog.Debug("paginator: page fetched", "subscriber", username,
			"page", page, "rows", len(p.Rows), "fetched", fetched)
		if opts.OnProgress != nil {
			opts.OnProgress(fetched, page, res.Total)
		}

		if res.Total != nil && fetched >= *res.Total {
			res.Stop = StopTotal
			break
		}
		if len(p.Rows) < pageSize {
			res.Stop = StopShortPage
			break
		}
		offset += pageSize
	}

	sort.SliceStable(res.Entries, func(i, j int) bool {
		return res.Entries[i].TimestampMs > res.Entries[j].TimestampMs
	})
	return res
}
