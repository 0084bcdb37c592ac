package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/gpumon/internal/domain"
)

// Browser fetches documents through a headless Chrome. The exec allocator is
// created lazily and shared; each fetch runs in a fresh browser context.
type Browser struct {
	timeout time.Duration
	logger  *zap.Logger

	once        sync.Once
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

func NewBrowser(timeout time.Duration, logger *zap.Logger) *Browser {
	return &Browser{timeout: timeout, logger: logger}
}

func (b *Browser) allocator() context.Context {
	b.once.Do(func() {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	})
	return b.allocCtx
}

func (b *Browser) Fetch(ctx context.Context, url, userAgent string) domain.Outcome[[]byte] {
	tabCtx, cancelTab := chromedp.NewContext(b.allocator())
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
	defer cancelTimeout()

	// Tie the tab to the caller's context as well.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	resp, err := chromedp.RunResponse(tabCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetUserAgentOverride(userAgent).Do(ctx)
		}),
		chromedp.Navigate(url),
	)
	if err != nil {
		b.logger.Warn("browser fetch failed", zap.String("url", url), zap.Error(err))
		return domain.Retry[[]byte](ClassifyError(err), 0)
	}
	status := int(resp.Status)
	if kind, _ := ClassifyStatus(status); kind != domain.Success {
		return outcomeFor(nil, status)
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return domain.Retry[[]byte](ClassifyError(err), status)
	}
	return domain.Succeeded([]byte(html), status)
}

// Close shuts the browser down.
func (b *Browser) Close() {
	if b.allocCancel != nil {
		b.allocCancel()
	}
}
