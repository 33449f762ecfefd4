// Package capture drives the headless rendering surface and the external
// video encoder: it turns a rendered card document into a pixel buffer and,
// when the post carries a composable video, overlays that video into the
// detected media box.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/chromedp/chromedp"

	"github.com/iconidentify/tweetframe/internal/config"
)

// Pool owns the browser allocator and one browser context per device-scale
// factor. Contexts are reused across requests to amortize browser startup;
// each request gets its own tab.
type Pool struct {
	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
	scales      map[string]*scaleContext
	logger      *slog.Logger
}

type scaleContext struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool creates the allocator. Browsers are launched lazily per scale.
func NewPool(cfg config.CaptureConfig, logger *slog.Logger) *Pool {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Pool{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		scales:      make(map[string]*scaleContext),
		logger:      logger,
	}
}

// page opens a fresh tab off the pooled browser context for scale. The
// returned cancel closes only the tab; the browser context persists.
func (p *Pool) page(scale float64) (context.Context, context.CancelFunc, error) {
	p.mu.Lock()
	key := strconv.FormatFloat(scale, 'g', -1, 64)
	sc, ok := p.scales[key]
	if !ok {
		ctx, cancel := chromedp.NewContext(p.allocCtx)
		sc = &scaleContext{ctx: ctx, cancel: cancel}
		p.scales[key] = sc
		p.logger.Info("launching browser context", "scale", scale)
	}
	p.mu.Unlock()

	tabCtx, tabCancel := chromedp.NewContext(sc.ctx)
	// An empty Run starts the browser on first use and surfaces launch
	// failures here instead of mid-capture.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, nil, fmt.Errorf("start rendering surface: %w", err)
	}
	return tabCtx, tabCancel, nil
}

// Shutdown drains all pooled browser contexts, then the allocator.
// Contexts persist across requests and are only torn down here.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	scales := p.scales
	p.scales = make(map[string]*scaleContext)
	p.mu.Unlock()

	for key, sc := range scales {
		p.logger.Info("closing browser context", "scale", key)
		sc.cancel()
	}
	p.allocCancel()
}
