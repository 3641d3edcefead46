package kobo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/lepinkainen/pricenest/internal/catalog"
	"github.com/lepinkainen/pricenest/internal/ratelimit"
)

const defaultBrowserTimeout = 45 * time.Second

var (
	chromedpExecAllocator = chromedp.NewExecAllocator
	chromedpContext       = chromedp.NewContext
	chromedpRunner        = chromedp.Run
)

// Fetcher loads the HTML of a storefront page.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// HTTPFetcher downloads pages with a plain GET.
type HTTPFetcher struct {
	transport *catalog.Transport
}

// NewHTTPFetcher creates the default fetcher.
func NewHTTPFetcher(opts ...catalog.Option) *HTTPFetcher {
	defaults := catalog.Options{RateLimiter: ratelimit.New("Kobo", 1)}
	return &HTTPFetcher{transport: catalog.NewTransport(sourceName, defaults, opts...)}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	body, err := f.transport.Get(ctx, pageURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// BrowserFetcher renders pages in headless Chrome, for storefronts that
// build their result list client-side.
type BrowserFetcher struct {
	headless bool
	timeout  time.Duration
	limiter  *ratelimit.Limiter
}

// NewBrowserFetcher creates a chromedp backed fetcher.
func NewBrowserFetcher(headless bool, timeout time.Duration) *BrowserFetcher {
	if timeout <= 0 {
		timeout = defaultBrowserTimeout
	}
	return &BrowserFetcher{
		headless: headless,
		timeout:  timeout,
		limiter:  ratelimit.Every("Kobo browser", 2*time.Second),
	}
}

func (f *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	allocCtx, cancelAllocator := chromedpExecAllocator(ctx, buildExecAllocatorOptions(f.headless)...)
	defer cancelAllocator()

	browserCtx, cancelBrowser := chromedpContext(allocCtx)
	defer cancelBrowser()

	slog.Debug("Rendering Kobo page", "url", pageURL, "headless", f.headless)

	var page string
	err := chromedpRunner(browserCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "en-GB,en;q=0.9"}),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &page, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", pageURL, err)
	}
	return page, nil
}

func buildExecAllocatorOptions(headless bool) []chromedp.ExecAllocatorOption {
	return []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.UserAgent("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"),
	}
}
