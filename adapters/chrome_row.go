package adapters

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Row-scoped selectors, relative to a tagged row.
const (
	selRowInputs    = " .item-inputs"
	selQtyInput     = " input[name='truck-item-qty']"
	selStockButton  = " button.check-stock"
	selStockResult  = " div.check-stock-result"
	selPriceButton  = " button.get-price"
	selPriceResult  = " div.get-price-result"
	selRowWarnings  = " div.check-stock-result, div.get-price-result, .alert, .warning"
)

func (d *ChromeDriver) buttonSel(row int, kind Lookup) string {
	if kind == LookupStock {
		return rowSel(row) + selStockButton
	}
	return rowSel(row) + selPriceButton
}

func (d *ChromeDriver) resultSel(row int, kind Lookup) string {
	if kind == LookupStock {
		return rowSel(row) + selStockResult
	}
	return rowSel(row) + selPriceResult
}

// ScrollIntoView centers the row in the viewport. Best-effort.
func (d *ChromeDriver) ScrollIntoView(ctx context.Context, row int) {
	expr := `(function(){ const el = document.querySelector(` + strconv.Quote(rowSel(row)) + `); if (el) el.scrollIntoView({block:"center"}); })()`
	_ = d.eval(ctx, d.config.HandleTimeout, expr, nil)
}

// Code returns the row's data-code, the token the site puts into its
// stock/price request URLs.
func (d *ChromeDriver) Code(ctx context.Context, row int) string {
	var code string
	expr := `(function(){ const el = document.querySelector(` + strconv.Quote(rowSel(row)+selRowInputs) + `); return el ? (el.getAttribute("data-code") || "") : ""; })()`
	if err := d.eval(ctx, d.config.HandleTimeout, expr, &code); err != nil {
		return ""
	}
	return strings.TrimSpace(code)
}

// QuantityHints reads the raw min/step attributes of the quantity input.
func (d *ChromeDriver) QuantityHints(ctx context.Context, row int) (min, step string) {
	var attrs []string
	expr := `(function(){
		const el = document.querySelector(` + strconv.Quote(rowSel(row)+selQtyInput) + `);
		if (!el) return ["", ""];
		return [el.getAttribute("min") || "", el.getAttribute("step") || ""];
	})()`
	if err := d.eval(ctx, d.config.HandleTimeout, expr, &attrs); err != nil || len(attrs) != 2 {
		return "", ""
	}
	return attrs[0], attrs[1]
}

// WarningText joins any visible warning or result text scoped to the row.
func (d *ChromeDriver) WarningText(ctx context.Context, row int) string {
	var text string
	expr := `(function(){
		const root = document.querySelector(` + strconv.Quote(rowSel(row)) + `);
		if (!root) return "";
		const parts = [];
		root.querySelectorAll(` + strconv.Quote(strings.TrimSpace(selRowWarnings)) + `).forEach(function(el){
			const t = (el.textContent || "").trim();
			if (t) parts.push(t);
		});
		return parts.join(" ");
	})()`
	if err := d.eval(ctx, d.config.ReadTimeout, expr, &text); err != nil {
		return ""
	}
	return text
}

// SetQuantity assigns the value directly and fires synthetic input/change
// events, which is what the site's own handlers listen for. Keystroke
// entry is the fallback when the direct path fails.
func (d *ChromeDriver) SetQuantity(ctx context.Context, row int, qty int) bool {
	sel := rowSel(row) + selQtyInput
	var ok bool
	expr := `(function(){
		const el = document.querySelector(` + strconv.Quote(sel) + `);
		if (!el) return false;
		el.value = ` + strconv.Quote(strconv.Itoa(qty)) + `;
		el.dispatchEvent(new Event("input", {bubbles: true}));
		el.dispatchEvent(new Event("change", {bubbles: true}));
		return true;
	})()`
	if err := d.eval(ctx, d.config.HandleTimeout, expr, &ok); err == nil && ok {
		return true
	}

	tctx, cancel := context.WithTimeout(ctx, d.config.ClickTimeout)
	defer cancel()
	err := chromedp.Run(tctx,
		chromedp.Clear(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, strconv.Itoa(qty), chromedp.ByQuery),
	)
	return err == nil
}

// ClearResult wipes a result region so a stale value from a previous
// interaction can never read as fresh. Also unhides it, matching the
// site's own toggle.
func (d *ChromeDriver) ClearResult(ctx context.Context, row int, kind Lookup) {
	expr := `(function(){
		const el = document.querySelector(` + strconv.Quote(d.resultSel(row, kind)) + `);
		if (el) { el.textContent = ""; el.classList.remove("hide"); }
	})()`
	_ = d.eval(ctx, d.config.ReadTimeout, expr, nil)
}

// Trigger activates a lookup button: forced click first, programmatic
// click when overlapping UI defeats hit testing.
func (d *ChromeDriver) Trigger(ctx context.Context, row int, kind Lookup) bool {
	return d.forcedClick(ctx, d.buttonSel(row, kind))
}

// forcedClick attempts a native click within a short budget, then falls
// back to el.click(), which bypasses hit testing entirely.
func (d *ChromeDriver) forcedClick(ctx context.Context, sel string) bool {
	tctx, cancel := context.WithTimeout(ctx, d.config.ClickTimeout)
	err := chromedp.Run(tctx, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible))
	cancel()
	if err == nil {
		return true
	}

	var clicked bool
	expr := `(function(){
		const el = document.querySelector(` + strconv.Quote(sel) + `);
		if (!el) return false;
		el.click();
		return true;
	})()`
	if err := d.eval(ctx, d.config.ClickTimeout, expr, &clicked); err == nil && clicked {
		return true
	}
	return false
}

// ResultText is the settle reader: if the region is currently attached,
// poll up to maxWait for it to carry non-empty text, then do one bounded
// read either way. A region that never attaches or never populates reads
// as ""; the caller substitutes its marker.
func (d *ChromeDriver) ResultText(ctx context.Context, row int, kind Lookup, maxWait time.Duration) (string, error) {
	sel := d.resultSel(row, kind)

	var attached bool
	probe := `(function(){ return !!document.querySelector(` + strconv.Quote(sel) + `); })()`
	if err := d.eval(ctx, d.config.HandleTimeout, probe, &attached); err != nil {
		attached = false
	}

	if attached {
		nonEmpty := `(function(){
			const el = document.querySelector(` + strconv.Quote(sel) + `);
			return !!(el && el.textContent && el.textContent.trim().length > 0);
		})()`
		pctx, cancel := context.WithTimeout(ctx, maxWait+100*time.Millisecond)
		_ = chromedp.Run(pctx, chromedp.Poll(nonEmpty, nil,
			chromedp.WithPollingInterval(50*time.Millisecond),
			chromedp.WithPollingTimeout(maxWait),
		))
		cancel()
	}

	var text string
	read := `(function(){
		const el = document.querySelector(` + strconv.Quote(sel) + `);
		return el && el.textContent ? el.textContent.trim() : "";
	})()`
	if err := d.eval(ctx, d.config.ReadTimeout, read, &text); err != nil {
		if ctx.Err() != nil {
			// The session itself is going away; this is not a row fault.
			return "", ctx.Err()
		}
		// Timed-out or detached mid-read: a transient miss, not an error.
		return "", nil
	}
	return strings.TrimSpace(text), nil
}

// Correlate races "a network response whose URL contains code" against a
// bounded timer while act runs. The action runs exactly once; only the
// waiting is optional. With no token there is nothing to latch onto, so
// the action just runs.
func (d *ChromeDriver) Correlate(ctx context.Context, code string, timeout time.Duration, act func()) {
	if code == "" {
		act()
		return
	}

	lctx, cancel := context.WithCancel(ctx)
	defer cancel()

	matched := make(chan struct{}, 1)
	chromedp.ListenTarget(lctx, func(ev interface{}) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Response != nil {
			if strings.Contains(e.Response.URL, code) {
				select {
				case matched <- struct{}{}:
				default:
				}
			}
		}
	})

	act()

	select {
	case <-matched:
	case <-time.After(timeout):
	case <-ctx.Done():
	}
}
