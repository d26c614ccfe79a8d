package adapters

import (
	"context"
	"strconv"
	"time"

	"polytec-extractor/internal/types"
)

// Walker drives one colour page end to end: activate each finish tab,
// enumerate rows grouped by their preceding family heading, run the row
// interaction protocol, and emit one record per unique (finish, sku) to
// the sink. The seen set is owned by the run loop and shared across
// colours; the walker only ever adds to it.
type Walker struct {
	drv     PageDriver
	checker *RowChecker
	sink    RecordSink
	seen    map[string]bool
	config  *types.Config
	logger  types.Logger
}

// NewWalker creates a walker. seen deduplicates rows by (finish, sku)
// across the whole run; pass a shared map when processing many colours.
func NewWalker(drv PageDriver, sink RecordSink, seen map[string]bool, config *types.Config, logger types.Logger) *Walker {
	if seen == nil {
		seen = make(map[string]bool)
	}
	return &Walker{
		drv:     drv,
		checker: NewRowChecker(drv, config, logger),
		sink:    sink,
		seen:    seen,
		config:  config,
		logger:  logger,
	}
}

// ProcessColour walks one colour page and returns the number of records
// emitted. Navigation and panel-activation failures are returned to the
// caller; row-level failures are absorbed into marker texts and the walk
// continues.
func (w *Walker) ProcessColour(ctx context.Context, colour types.Colour) (int, error) {
	w.logger.Infof("run start colour=%s", colour.URL)
	if err := w.drv.Open(ctx, colour.URL); err != nil {
		return 0, err
	}

	colourName := w.drv.ColourName(ctx)
	if colourName == "" {
		colourName = colour.Name
	}
	w.logger.Infof("colour name: %s", colourName)

	tabs := w.drv.Tabs(ctx)
	synthetic := len(tabs) == 0
	if synthetic {
		// Some pages render a single unlabeled panel with no tab strip.
		tabs = []TabInfo{{Label: "Default"}}
	}
	w.logger.Infof("finish tabs: %d", len(tabs))

	written := 0
	for i, tab := range tabs {
		w.logger.Infof("tab %d/%d -> %s", i+1, len(tabs), tab.Label)
		if !synthetic {
			if err := w.drv.ActivateTab(ctx, tab); err != nil {
				return written, err
			}
		}

		finish := w.drv.PanelFinish(ctx)
		if finish == "" {
			finish = tab.Label
		}

		families := w.drv.RowFamilies(ctx)
		w.logger.Infof("items in finish '%s': %d", finish, len(families))

		currentFamily := ""
		for row, family := range families {
			if family != currentFamily {
				currentFamily = family
				w.logger.Infof("range -> %s", displayFamily(currentFamily))
			}

			specs := w.drv.RowSpecs(ctx, row)
			if specs == nil {
				w.logger.Warnf("row %d: spec extraction failed, skipping", row)
				continue
			}

			if specs.SKU != "" {
				key := finish + "|" + specs.SKU
				if w.seen[key] {
					w.logger.Debugf("row %d: duplicate %s, skipping", row, key)
					continue
				}
				w.seen[key] = true
			}

			started := time.Now()
			res := w.checker.Check(ctx, row, w.config.Quantity)

			core := map[string]string{
				"colour_name":         colourName,
				"finish":              finish,
				"product_family":      family,
				"sku_code":            specs.SKU,
				"title_raw":           specs.Title,
				"qty_used_for_checks": strconv.Itoa(res.Qty),
				"stock_result_raw":    res.Stock,
				"price_result_raw":    res.Price,
				"product_url":         colour.URL,
				"checked_at_iso":      time.Now().UTC().Format("2006-01-02T15:04:05Z"),
			}
			rec := types.Record{
				Family: displayFamily(family),
				Core:   core,
				Specs:  NormalizeSpecs(specs.Attrs, core, res.Min, res.Step),
			}
			if err := w.sink.Append(rec); err != nil {
				return written, err
			}
			written++

			w.logger.Infof("row %d: sku=%s stock=%s price=%s time=%.2fs",
				row+1, specs.SKU, flagOf(res.Stock), flagOf(res.Price), time.Since(started).Seconds())
		}
	}

	w.logger.Infof("run end rows=%d", written)
	return written, nil
}

func displayFamily(family string) string {
	if family == "" {
		return "Unknown"
	}
	return family
}

// flagOf compresses a raw result into a log flag, keeping marker values
// visible as-is.
func flagOf(text string) string {
	switch text {
	case "", ResultEmpty:
		return ResultEmpty
	case ResultError:
		return ResultError
	default:
		return "OK"
	}
}
