package adapters

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"polytec-extractor/internal/types"
)

// Page structure of a colour page. Tabs and rows are tagged with data
// attributes during enumeration so every later operation can address them
// with a plain CSS selector instead of re-walking the DOM.
const (
	selTabContainer = "#product-tabs"
	selTabLinks     = "#product-tabs li.tabs-title a"
	selColourName   = ".product-hero h1"
	selActivePanel  = "div.tabs-panel.content.is-active"
	selPanelItems   = "div.tabs-panel.content.is-active div.items > div.item"
)

// ChromeDriver implements PageDriver on top of a chromedp session. All
// methods expect a chromedp-derived context and bound every wait with a
// budget from Config.
type ChromeDriver struct {
	config *types.Config
	logger types.Logger
}

// NewChromeDriver creates a driver for one browser session.
func NewChromeDriver(config *types.Config, logger types.Logger) *ChromeDriver {
	return &ChromeDriver{config: config, logger: logger}
}

// eval evaluates a JS expression with a bounded budget. res may be nil
// when the result is irrelevant.
func (d *ChromeDriver) eval(ctx context.Context, timeout time.Duration, expr string, res interface{}) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return chromedp.Run(tctx, chromedp.Evaluate(expr, res))
}

// Open navigates to a colour page and waits for the tab container to
// exist. A page that never renders it is an entry-level failure.
func (d *ChromeDriver) Open(ctx context.Context, url string) error {
	tctx, cancel := context.WithTimeout(ctx, d.config.NavTimeout)
	defer cancel()
	if err := chromedp.Run(tctx,
		chromedp.Navigate(url),
		chromedp.WaitReady(selTabContainer),
	); err != nil {
		return fmt.Errorf("open colour page %s: %w", url, err)
	}
	return nil
}

// ColourName reads the page hero heading.
func (d *ChromeDriver) ColourName(ctx context.Context) string {
	var name string
	expr := fmt.Sprintf(
		`(function(){ const el = document.querySelector(%s); return el ? el.textContent.trim() : ""; })()`,
		strconv.Quote(selColourName))
	if err := d.eval(ctx, d.config.ReadTimeout, expr, &name); err != nil {
		return ""
	}
	return strings.TrimSpace(name)
}

// Tabs enumerates the finish tabs in on-screen order, tagging each link
// with data-poly-tab so activation can click it by selector later.
func (d *ChromeDriver) Tabs(ctx context.Context) []TabInfo {
	var tabs []TabInfo
	expr := fmt.Sprintf(`(function(){
		return Array.from(document.querySelectorAll(%s)).map(function(a, i){
			a.setAttribute("data-poly-tab", String(i));
			var href = a.getAttribute("href") || "";
			return {
				label: (a.textContent || "").trim(),
				fragment: href.charAt(0) === "#" ? href.slice(1) : ""
			};
		});
	})()`, strconv.Quote(selTabLinks))
	if err := d.eval(ctx, d.config.ReadTimeout, expr, &tabs); err != nil {
		d.logger.Warnf("tab enumeration failed: %v", err)
		return nil
	}
	return tabs
}

// ActivateTab clicks a tab and waits for its panel to become the active
// one. The control is located by case-insensitive label match, falling
// back to the first tab; the click is retried a bounded number of times
// with overlay mitigation in between.
func (d *ChromeDriver) ActivateTab(ctx context.Context, tab TabInfo) error {
	d.DismissOverlays(ctx)

	idx := d.tabIndexByLabel(ctx, tab.Label)
	sel := fmt.Sprintf(`#product-tabs a[data-poly-tab=%q]`, strconv.Itoa(idx))

	clicked := false
	for attempt := 0; attempt < d.config.TabRetries; attempt++ {
		if d.forcedClick(ctx, sel) {
			clicked = true
			break
		}
		d.DismissOverlays(ctx)
	}
	if !clicked {
		d.logger.Warnf("tab '%s': all click attempts failed, waiting for panel anyway", tab.Label)
	}

	// Prefer the panel named by the tab's fragment; fall back to any
	// panel carrying the active marker.
	if tab.Fragment != "" {
		if d.waitReady(ctx, "#"+tab.Fragment+".is-active", d.config.PanelTimeout) {
			return nil
		}
	}
	if d.waitReady(ctx, selActivePanel, d.config.PanelTimeout) {
		return nil
	}
	return fmt.Errorf("tab '%s': panel never became active", tab.Label)
}

// tabIndexByLabel resolves a tab label to its tagged index, 0 when no tab
// matches.
func (d *ChromeDriver) tabIndexByLabel(ctx context.Context, label string) int {
	idx := 0
	expr := fmt.Sprintf(`(function(){
		var links = document.querySelectorAll(%s);
		var want = %s.trim().toLowerCase();
		for (var i = 0; i < links.length; i++) {
			if ((links[i].textContent || "").trim().toLowerCase() === want) return i;
		}
		return 0;
	})()`, strconv.Quote(selTabLinks), strconv.Quote(label))
	if err := d.eval(ctx, d.config.ReadTimeout, expr, &idx); err != nil {
		return 0
	}
	return idx
}

// waitReady waits up to timeout for a selector to match, reporting
// success instead of returning a timeout error.
func (d *ChromeDriver) waitReady(ctx context.Context, sel string, timeout time.Duration) bool {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return chromedp.Run(tctx, chromedp.WaitReady(sel)) == nil
}

// PanelFinish reads the active panel's display finish name.
func (d *ChromeDriver) PanelFinish(ctx context.Context) string {
	var finish string
	expr := fmt.Sprintf(
		`(function(){ const el = document.querySelector(%s); return el ? (el.getAttribute("data-finish") || "") : ""; })()`,
		strconv.Quote(selActivePanel))
	if err := d.eval(ctx, d.config.ReadTimeout, expr, &finish); err != nil {
		return ""
	}
	return strings.TrimSpace(finish)
}

// RowFamilies enumerates the rows of the active panel, tags each with
// data-poly-row, and returns the nearest preceding H4 heading text per
// row (the row's family, "" when a row has no preceding heading).
func (d *ChromeDriver) RowFamilies(ctx context.Context) []string {
	var families []string
	expr := fmt.Sprintf(`(function(){
		var items = document.querySelectorAll(%s);
		var fams = [];
		items.forEach(function(el, i){
			el.setAttribute("data-poly-row", String(i));
			var fam = "";
			var p = el.previousElementSibling;
			while (p) {
				if (p.tagName === "H4") { fam = (p.textContent || "").trim(); break; }
				p = p.previousElementSibling;
			}
			fams.push(fam);
		});
		return fams;
	})()`, strconv.Quote(selPanelItems))
	if err := d.eval(ctx, d.config.PanelTimeout, expr, &families); err != nil {
		d.logger.Warnf("row enumeration failed: %v", err)
		return nil
	}
	return families
}

// RowSpecs snapshots one row's HTML and parses identifier, title and
// attribute list out of it. One round trip to the browser, then goquery
// does the rest.
func (d *ChromeDriver) RowSpecs(ctx context.Context, row int) *RowSpecs {
	var html string
	tctx, cancel := context.WithTimeout(ctx, d.config.HandleTimeout)
	err := chromedp.Run(tctx, chromedp.OuterHTML(rowSel(row), &html, chromedp.ByQuery))
	cancel()
	if err != nil {
		d.logger.Warnf("row %d: outerHTML failed: %v", row, err)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		d.logger.Warnf("row %d: parse failed: %v", row, err)
		return nil
	}
	return parseRowSpecs(doc)
}

// parseRowSpecs extracts the static row content from a parsed snapshot.
func parseRowSpecs(doc *goquery.Document) *RowSpecs {
	specs := &RowSpecs{
		SKU:   strings.TrimSpace(doc.Find("span.label").First().Text()),
		Title: strings.TrimSpace(doc.Find("h5").First().Text()),
	}

	doc.Find("ul.item-attributes li").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		key, val, ok := cutAttr(text)
		if ok {
			specs.Attrs = append(specs.Attrs, types.KV{Key: key, Value: val})
		}
	})

	if info := doc.Find("h5.info").First().Text(); strings.Contains(info, "Pack Size:") {
		parts := strings.SplitN(info, "Pack Size:", 2)
		if val := strings.TrimSpace(parts[1]); val != "" {
			specs.Attrs = append(specs.Attrs, types.KV{Key: "Pack Size", Value: val})
		}
	}
	return specs
}

// cutAttr splits an "Key: Value" attribute line.
func cutAttr(text string) (key, val string, ok bool) {
	i := strings.Index(text, ":")
	if i < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(text[:i])
	val = strings.TrimSpace(text[i+1:])
	return key, val, key != "" && val != ""
}

// rowSel addresses a tagged row inside the active panel.
func rowSel(row int) string {
	return fmt.Sprintf(`%s div.item[data-poly-row=%q]`, selActivePanel, strconv.Itoa(row))
}
