package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"polytec-extractor/internal/types"
)

// Session owns one authenticated Chrome instance for the whole run. All
// page and row operations run against its context; it is the single
// shared resource of the extractor.
type Session struct {
	config  *types.Config
	logger  types.Logger
	ctx     context.Context
	cancels []context.CancelFunc
}

// NewSession launches a browser with the configured user agent and
// headless mode, and enables network events so response correlation can
// listen for them.
func NewSession(config *types.Config, logger types.Logger) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Headless),
		chromedp.UserAgent(config.UserAgent),
		chromedp.WindowSize(1440, 900),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx)

	s := &Session{
		config:  config,
		logger:  logger,
		ctx:     ctx,
		cancels: []context.CancelFunc{cancelCtx, cancelAlloc},
	}

	if err := chromedp.Run(ctx, network.Enable()); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return s, nil
}

// Ctx returns the chromedp context all driver operations run against.
func (s *Session) Ctx() context.Context {
	return s.ctx
}

// Navigate loads a URL, bounded by the navigation budget.
func (s *Session) Navigate(url string) error {
	tctx, cancel := context.WithTimeout(s.ctx, s.config.NavTimeout)
	defer cancel()
	if err := chromedp.Run(tctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// LoadCookies restores a previously saved session from disk.
func (s *Session) LoadCookies(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read cookie file: %w", err)
	}
	var cookies []*network.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return fmt.Errorf("failed to parse cookie file: %w", err)
	}

	err = chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			p := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithHTTPOnly(c.HTTPOnly).
				WithSecure(c.Secure)
			if c.Expires > 0 {
				exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
				p = p.WithExpires(&exp)
			}
			if err := p.Do(ctx); err != nil {
				return fmt.Errorf("failed to set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	}))
	if err != nil {
		return err
	}

	s.logger.Debugf("Restored %d cookies from %s", len(cookies), path)
	return nil
}

// SaveCookies persists the current session to disk for later runs.
func (s *Session) SaveCookies(path string) error {
	var cookies []*network.Cookie
	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return fmt.Errorf("failed to read cookies: %w", err)
	}

	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}

	s.logger.Infof("Saved %d cookies to %s", len(cookies), path)
	return nil
}

// Close tears down the browser.
func (s *Session) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
}
