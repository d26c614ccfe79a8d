package extractor

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"polytec-extractor/internal/types"
	"polytec-extractor/utils"
)

// loginWait bounds the whole post-submit settle: the site submits via JS
// and posts a hidden form, so the URL can stay on the login page for a
// beat before redirecting.
const loginWait = 20 * time.Second

// Login drives the login form with credentials from the environment and
// saves the resulting session cookies for later runs. Missing
// credentials are a configuration error, not a runtime fault.
func Login(session *utils.Session, config *types.Config, logger types.Logger) error {
	email := os.Getenv("POLYTEC_EMAIL")
	password := os.Getenv("POLYTEC_PASSWORD")
	if email == "" || password == "" {
		return fmt.Errorf("POLYTEC_EMAIL and POLYTEC_PASSWORD must be set")
	}

	if err := session.Navigate(config.LoginURL); err != nil {
		return err
	}

	ctx := session.Ctx()
	fctx, cancel := context.WithTimeout(ctx, config.NavTimeout)
	err := chromedp.Run(fctx,
		chromedp.WaitVisible("#UserName"),
		chromedp.SendKeys("#UserName", email),
		// Tab out so any client hooks watching the username field fire.
		chromedp.SendKeys("#UserName", "\t"),
		chromedp.SendKeys("#password", password),
		chromedp.Click(`//button[contains(normalize-space(.), "Login")]`, chromedp.BySearch),
	)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to submit login form: %w", err)
	}

	// Wait for the URL to leave the login page; a timeout here is not
	// conclusive, the cookie save below decides.
	wctx, cancel := context.WithTimeout(ctx, loginWait)
	_ = chromedp.Run(wctx, chromedp.Poll(
		`!window.location.pathname.includes("/login")`,
		nil,
		chromedp.WithPollingInterval(250*time.Millisecond),
		chromedp.WithPollingTimeout(loginWait-time.Second),
	))
	cancel()

	if alert := readAlertPanel(ctx, config); alert != "" {
		logger.Warnf("Login alert panel showed content: %s", alert)
	}

	if err := session.SaveCookies(config.CookieFile); err != nil {
		return err
	}
	logger.Infof("Login complete, session saved to %s", config.CookieFile)
	return nil
}

// readAlertPanel returns any visible error banner text.
func readAlertPanel(ctx context.Context, config *types.Config) string {
	var text string
	tctx, cancel := context.WithTimeout(ctx, config.ReadTimeout)
	defer cancel()
	err := chromedp.Run(tctx, chromedp.Evaluate(
		`(function(){ const el = document.querySelector("#alert-panel:not(.hide)"); return el ? el.textContent.trim() : ""; })()`,
		&text,
	))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
