package adapters

import (
	"context"
	"sync"
	"time"

	"polytec-extractor/internal/types"
)

// RowChecker runs the full per-row protocol: resolve MOQ hints, submit
// the effective quantity, fire the stock and price lookups, and read
// back both results. Retries are scoped to exactly one escalation beyond
// the first attempt, each gated by a concrete signal (a late MOQ message
// or a fully empty result pair), so a row costs at most three
// interaction rounds.
type RowChecker struct {
	drv    RowDriver
	config *types.Config
	logger types.Logger
}

// NewRowChecker creates a row checker on top of a rendering surface.
func NewRowChecker(drv RowDriver, config *types.Config, logger types.Logger) *RowChecker {
	return &RowChecker{
		drv:    drv,
		config: config,
		logger: logger,
	}
}

// Check runs the interaction protocol for one row and returns the raw
// lookup texts together with the quantity actually submitted and the
// effective MOQ constraint. It never returns an error: recoverable
// failures become EMPTY/ERROR marker texts.
func (r *RowChecker) Check(ctx context.Context, row int, requested int) RowResult {
	r.drv.DismissOverlays(ctx)
	r.drv.ScrollIntoView(ctx, row)

	// Per-row correlation token; empty when the site exposes none.
	code := r.drv.Code(ctx, row)

	// MOQ hints are a per-SKU property, resolved scoped to this row only.
	min, step := r.rowHints(ctx, row)

	used := Bump(requested, min, step)
	if used != requested {
		r.logger.Infof("row %d: qty bumped %d -> %d (min=%d step=%d)", row, requested, used, min, step)
	}
	if !r.drv.SetQuantity(ctx, row, used) {
		r.logger.Warnf("row %d: quantity input rejected value %d", row, used)
	}

	stock, price := r.attempt(ctx, row, code, r.config.ResultWait)

	// A lookup answering with an MOQ message means the constraint was only
	// discoverable after submission: re-scan, merge by max, retry once if
	// the effective quantity actually changed.
	if NeedsRetry(stock, price) {
		m, s := ParseHints(stock, price, r.drv.WarningText(ctx, row))
		min, step = maxInt(min, m), maxInt(step, s)
		if bumped := Bump(requested, min, step); bumped != used {
			used = bumped
			r.logger.Infof("row %d: MOQ message detected, retrying with qty %d", row, used)
			if !r.drv.SetQuantity(ctx, row, used) {
				r.logger.Warnf("row %d: quantity input rejected value %d", row, used)
			}
			stock, price = r.attempt(ctx, row, code, r.config.ResultWait)
		}
	}

	// Both lookups empty usually means a missed click. One last round with
	// a shorter wait after clearing whatever swallowed the click.
	if stock == ResultEmpty && price == ResultEmpty {
		r.logger.Debugf("row %d: both results empty, last-chance retry", row)
		r.drv.DismissOverlays(ctx)
		stock, price = r.attempt(ctx, row, code, r.config.RetryResultWait)
	}

	return RowResult{Stock: stock, Price: price, Qty: used, Min: min, Step: step}
}

// rowHints merges attribute-derived and text-derived MOQ hints, larger
// value winning per field.
func (r *RowChecker) rowHints(ctx context.Context, row int) (min, step int) {
	minAttr, stepAttr := r.drv.QuantityHints(ctx, row)
	am, as := ParseAttrHints(minAttr, stepAttr)
	tm, ts := ParseHints(r.drv.WarningText(ctx, row))
	return maxInt(am, tm), maxInt(as, ts)
}

// attempt runs one clear -> trigger -> read round for both lookups. The
// two lookups progress concurrently, but both result regions are cleared
// before either trigger fires so one lookup's response can never land in
// a region the other is about to clear.
func (r *RowChecker) attempt(ctx context.Context, row int, code string, wait time.Duration) (stock, price string) {
	r.drv.ClearResult(ctx, row, LookupStock)
	r.drv.ClearResult(ctx, row, LookupPrice)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		stock = r.lookup(ctx, row, LookupStock, code, wait)
	}()
	go func() {
		defer wg.Done()
		price = r.lookup(ctx, row, LookupPrice, code, wait)
	}()
	wg.Wait()
	return stock, price
}

// lookup fires one button and settles its result text. The trigger is
// issued exactly once; the correlation wait only makes the read that
// follows less likely to race a request still in flight.
func (r *RowChecker) lookup(ctx context.Context, row int, kind Lookup, code string, wait time.Duration) string {
	r.drv.Correlate(ctx, code, r.config.CorrelateTimeout, func() {
		if !r.drv.Trigger(ctx, row, kind) {
			r.logger.Debugf("row %d: %s trigger failed on both paths", row, kind)
		}
	})

	text, err := r.drv.ResultText(ctx, row, kind, wait)
	if err != nil {
		r.logger.Warnf("row %d: %s lookup failed: %v", row, kind, err)
		return ResultError
	}
	if text == "" {
		return ResultEmpty
	}
	return text
}
