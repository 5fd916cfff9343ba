package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// Scripts return JSON strings so results decode into typed Go values instead
// of nested interface{} maps.
const (
	computedStylesScript = `([limit, props]) => JSON.stringify(
		Array.from(document.querySelectorAll('*')).slice(0, limit).map(el => {
			const cs = window.getComputedStyle(el);
			const row = {};
			for (const p of props) row[p] = cs.getPropertyValue(p);
			return row;
		})
	)`

	firstMatchStylesScript = `([selectors, props]) => {
		const out = {};
		for (const sel of selectors) {
			let el = null;
			try { el = document.querySelector(sel); } catch (e) { el = null; }
			if (!el) continue;
			const cs = window.getComputedStyle(el);
			const row = {};
			for (const p of props) row[p] = cs.getPropertyValue(p);
			out[sel] = row;
		}
		return JSON.stringify(out);
	}`

	matchingStylesScript = `([selector, props]) => JSON.stringify(
		Array.from(document.querySelectorAll(selector)).map(el => {
			const cs = window.getComputedStyle(el);
			const row = {};
			for (const p of props) row[p] = cs.getPropertyValue(p);
			return row;
		})
	)`
)

type playwrightInstance struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    Options
}

func launchPlaywright(opts Options) (instance, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     launchArgs,
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launching chromium: %w", err)
	}

	return &playwrightInstance{pw: pw, browser: browser, opts: opts}, nil
}

func (i *playwrightInstance) newPage(ctx context.Context) (Page, error) {
	browserCtx, err := i.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  i.opts.ViewportWidth,
			Height: i.opts.ViewportHeight,
		},
		UserAgent: playwright.String(i.opts.UserAgent),
	})
	if err != nil {
		return nil, fmt.Errorf("creating browser context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		return nil, fmt.Errorf("creating page: %w", err)
	}

	return &playwrightPage{page: page, browserCtx: browserCtx, opts: i.opts}, nil
}

func (i *playwrightInstance) connected() bool {
	return i.browser != nil && i.browser.IsConnected()
}

func (i *playwrightInstance) close() error {
	if i.browser != nil {
		i.browser.Close()
	}
	if i.pw != nil {
		return i.pw.Stop()
	}
	return nil
}

type playwrightPage struct {
	page       playwright.Page
	browserCtx playwright.BrowserContext
	opts       Options
}

func (p *playwrightPage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	resp, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(p.opts.NavTimeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}

	if resp != nil && resp.Status() >= 400 {
		return fmt.Errorf("page returned status %d", resp.Status())
	}

	// Late-rendering frameworks keep mutating styles after network idle
	if p.opts.SettleDelay > 0 {
		p.page.WaitForTimeout(float64(p.opts.SettleDelay.Milliseconds()))
	}
	return ctx.Err()
}

func (p *playwrightPage) ComputedStyles(ctx context.Context, limit int, props []string) ([]map[string]string, error) {
	var rows []map[string]string
	if err := p.evaluateJSON(ctx, computedStylesScript, &rows, limit, props); err != nil {
		return nil, fmt.Errorf("reading computed styles: %w", err)
	}
	return rows, nil
}

func (p *playwrightPage) FirstMatchStyles(ctx context.Context, selectors []string, props []string) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string)
	if err := p.evaluateJSON(ctx, firstMatchStylesScript, &out, selectors, props); err != nil {
		return nil, fmt.Errorf("reading selector styles: %w", err)
	}
	return out, nil
}

func (p *playwrightPage) MatchingStyles(ctx context.Context, selector string, props []string) ([]map[string]string, error) {
	var rows []map[string]string
	if err := p.evaluateJSON(ctx, matchingStylesScript, &rows, selector, props); err != nil {
		return nil, fmt.Errorf("reading styles for %q: %w", selector, err)
	}
	return rows, nil
}

func (p *playwrightPage) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	html, err := p.page.Content()
	if err != nil {
		return "", fmt.Errorf("getting page content: %w", err)
	}
	return html, nil
}

func (p *playwrightPage) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(false),
		Type:     playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	return data, nil
}

func (p *playwrightPage) Close() error {
	p.page.Close()
	return p.browserCtx.Close()
}

func (p *playwrightPage) evaluateJSON(ctx context.Context, script string, dst interface{}, args ...interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	result, err := p.page.Evaluate(script, args)
	if err != nil {
		return err
	}

	raw, ok := result.(string)
	if !ok {
		return fmt.Errorf("unexpected evaluate result %T", result)
	}
	return json.Unmarshal([]byte(raw), dst)
}
