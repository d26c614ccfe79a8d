package adapters

import (
	"context"
	"strconv"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// Overlay selectors seen on the site: Foundation reveal modals plus the
// generic alert panel. Close controls are clicked first; whatever is
// left gets removed from the document outright.
const (
	overlayCloseSelector = ".reveal .close-button, .reveal button[aria-label='Close'], #alert-panel .close-button"
	overlayRootSelector  = ".reveal-overlay, .reveal, #alert-panel:not(.hide)"
	overlayCloseLimit    = 3
)

// DismissOverlays clears modal overlays that could intercept clicks:
// Escape first, then a bounded number of clicks on visible close
// controls, then forcible removal of any remaining overlay roots. Every
// step is independently best-effort; the interaction paths that follow
// are resilient to a dismissal that did not take.
func (d *ChromeDriver) DismissOverlays(ctx context.Context) {
	kctx, cancel := context.WithTimeout(ctx, d.config.ReadTimeout)
	_ = chromedp.Run(kctx, chromedp.KeyEvent(kb.Escape))
	cancel()

	expr := `(function(){
		var clicked = 0;
		document.querySelectorAll("` + overlayCloseSelector + `").forEach(function(el){
			if (clicked >= ` + strconv.Itoa(overlayCloseLimit) + `) return;
			if (el.offsetParent !== null) {
				try { el.click(); clicked++; } catch (e) {}
			}
		});
		document.querySelectorAll("` + overlayRootSelector + `").forEach(function(el){
			try { el.remove(); } catch (e) {}
		});
	})()`
	_ = d.eval(ctx, d.config.ReadTimeout, expr, nil)
}
