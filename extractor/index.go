package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"polytec-extractor/internal/types"
	"polytec-extractor/utils"
)

const colourTileSelector = "ul.colour-thumbs li"

// IndexCollector gathers the colour list in on-screen order. The colours
// page lazy-loads its tiles, so the browser path scrolls until the tile
// count stops growing; the HTTP fallback just fetches whatever the
// server renders statically.
type IndexCollector struct {
	session    *utils.Session
	httpClient *utils.HTTPClient
	config     *types.Config
	logger     types.Logger
}

// NewIndexCollector creates a collector. session may be nil when the
// configuration disables the headless browser.
func NewIndexCollector(session *utils.Session, config *types.Config, logger types.Logger) *IndexCollector {
	return &IndexCollector{
		session:    session,
		httpClient: utils.NewHTTPClient(config, logger),
		config:     config,
		logger:     logger,
	}
}

// Collect returns the colour index.
func (c *IndexCollector) Collect(ctx context.Context) ([]types.Colour, error) {
	var html string
	var err error
	if c.config.UseHeadlessBrowser && c.session != nil {
		html, err = c.collectViaBrowser(ctx)
	} else {
		html, err = c.collectViaHTTP(ctx)
	}
	if err != nil {
		return nil, err
	}

	colours, err := ParseColourIndex(html, c.config.BaseURL)
	if err != nil {
		return nil, err
	}
	c.logger.Infof("Collected %d colours", len(colours))
	return colours, nil
}

// collectViaBrowser scrolls the colours page until the tile count is
// stable for two rounds, then snapshots the page.
func (c *IndexCollector) collectViaBrowser(ctx context.Context) (string, error) {
	if err := c.session.Navigate(c.config.ColoursURL); err != nil {
		return "", err
	}

	tctx, cancel := context.WithTimeout(ctx, c.config.NavTimeout)
	err := chromedp.Run(tctx, chromedp.WaitReady(colourTileSelector))
	cancel()
	if err != nil {
		return "", fmt.Errorf("colour tiles never appeared: %w", err)
	}

	lastCount, stable := 0, 0
	countExpr := fmt.Sprintf(`document.querySelectorAll(%q).length`, colourTileSelector)
	for round := 0; round < 20 && stable < 2; round++ {
		var count int
		sctx, cancel := context.WithTimeout(ctx, c.config.PanelTimeout)
		err := chromedp.Run(sctx,
			chromedp.Evaluate(countExpr, &count),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(300*time.Millisecond),
		)
		cancel()
		if err != nil {
			return "", fmt.Errorf("failed to scroll colours page: %w", err)
		}
		if count == lastCount {
			stable++
		} else {
			stable = 0
			lastCount = count
		}
	}
	c.logger.Infof("Colour tiles detected: %d", lastCount)

	var html string
	hctx, cancel := context.WithTimeout(ctx, c.config.NavTimeout)
	defer cancel()
	if err := chromedp.Run(hctx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("failed to snapshot colours page: %w", err)
	}
	return html, nil
}

func (c *IndexCollector) collectViaHTTP(ctx context.Context) (string, error) {
	body, err := c.httpClient.Get(ctx, c.config.ColoursURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch colours page: %w", err)
	}
	return string(body), nil
}

// Save writes the index to disk as JSON.
func (c *IndexCollector) Save(colours []types.Colour, path string) error {
	data, err := json.MarshalIndent(colours, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal colour index: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write colour index: %w", err)
	}
	c.logger.Infof("Wrote %d colours to %s", len(colours), path)
	return nil
}

// Close releases the HTTP client.
func (c *IndexCollector) Close() {
	c.httpClient.Close()
}

// ParseColourIndex extracts the colour tiles from the colours page HTML,
// in document order. Tiles without a link are skipped.
func ParseColourIndex(html, baseURL string) ([]types.Colour, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse colours page: %w", err)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %s: %w", baseURL, err)
	}

	var colours []types.Colour
	doc.Find(colourTileSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Find("a").First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		colours = append(colours, types.Colour{
			Name: strings.TrimSpace(s.Find("h5").First().Text()),
			URL:  abs.String(),
			Slug: slugFromPath(abs.Path),
		})
	})

	if len(colours) == 0 {
		return nil, fmt.Errorf("no colour tiles found")
	}
	return colours, nil
}

// slugFromPath pulls the colour slug out of a tile URL path, e.g.
// /colours/some-colour/ -> some-colour.
func slugFromPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 2 && strings.HasPrefix(parts[0], "colour") {
		return parts[1]
	}
	return parts[len(parts)-1]
}
