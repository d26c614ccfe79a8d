package adapters

import (
	"context"
	"time"

	"polytec-extractor/internal/types"
)

// Lookup identifies one of the two per-row asynchronous lookups.
type Lookup string

const (
	LookupStock Lookup = "stock"
	LookupPrice Lookup = "price"
)

// Result marker values. A lookup that produced no text within its budget
// reports ResultEmpty; a lookup that failed unexpectedly reports
// ResultError. Neither aborts the row or the run.
const (
	ResultEmpty = "EMPTY"
	ResultError = "ERROR"
)

// TabInfo describes one finish tab of a colour page. Fragment is the
// panel id taken from the tab link's href, when present.
type TabInfo struct {
	Label    string `json:"label"`
	Fragment string `json:"fragment"`
}

// RowSpecs is the static content scraped from one catalog row.
type RowSpecs struct {
	SKU   string
	Title string
	Attrs []types.KV
}

// RowResult is the outcome of the per-row interaction protocol.
type RowResult struct {
	Stock string
	Price string
	Qty   int
	Min   int
	Step  int
}

// RowDriver is the capability set the row interaction protocol needs from
// the rendering surface. Every method is bounded and best-effort:
// transient failures surface as zero values, never as panics, so the
// protocol on top stays free of error plumbing for recoverable misses.
type RowDriver interface {
	// ScrollIntoView brings the row into the viewport.
	ScrollIntoView(ctx context.Context, row int)

	// Code returns the row's correlation token, or "" if none is exposed.
	Code(ctx context.Context, row int) string

	// QuantityHints returns the raw min/step attributes of the row's
	// quantity input, empty strings when absent.
	QuantityHints(ctx context.Context, row int) (min, step string)

	// WarningText returns any visible warning/result text scoped to the
	// row, used for text-derived MOQ hints.
	WarningText(ctx context.Context, row int) string

	// SetQuantity submits a quantity into the row's input.
	SetQuantity(ctx context.Context, row int, qty int) bool

	// ClearResult empties a lookup's result region so stale text can
	// never be mistaken for a fresh value.
	ClearResult(ctx context.Context, row int, kind Lookup)

	// Trigger activates a lookup's button, degrading from a forced click
	// to a programmatic one. False means both paths failed.
	Trigger(ctx context.Context, row int, kind Lookup) bool

	// ResultText reads a lookup's result region, waiting up to maxWait
	// for it to become non-empty. A region that never attaches or never
	// populates yields "" and a nil error; only unexpected failures
	// return an error.
	ResultText(ctx context.Context, row int, kind Lookup, maxWait time.Duration) (string, error)

	// Correlate runs act while waiting, up to timeout, for a network
	// response whose URL contains code. An empty code skips the wait
	// entirely; a timeout is not an error. act runs exactly once.
	Correlate(ctx context.Context, code string, timeout time.Duration, act func())

	// DismissOverlays clears modal overlays that could intercept clicks.
	DismissOverlays(ctx context.Context)
}

// PageDriver extends RowDriver with page-level navigation: opening a
// colour page, walking its finish tabs, and enumerating rows inside the
// active panel.
type PageDriver interface {
	RowDriver

	// Open navigates to a colour page and waits for the tab container.
	Open(ctx context.Context, url string) error

	// ColourName reads the page's display name.
	ColourName(ctx context.Context) string

	// Tabs enumerates the finish tabs, in on-screen order.
	Tabs(ctx context.Context) []TabInfo

	// ActivateTab activates a tab and waits for its panel to become the
	// active one.
	ActivateTab(ctx context.Context, tab TabInfo) error

	// PanelFinish reads the active panel's display finish name, "" when
	// the panel carries none.
	PanelFinish(ctx context.Context) string

	// RowFamilies enumerates the rows of the active panel and returns the
	// preceding group heading for each; the slice length is the row count.
	RowFamilies(ctx context.Context) []string

	// RowSpecs extracts identifier, title and attributes from one row.
	RowSpecs(ctx context.Context, row int) *RowSpecs
}

// RecordSink receives finished records. Implemented by the CSV exporter;
// the walker never sees the file layout.
type RecordSink interface {
	Append(rec types.Record) error
}
