package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/iconidentify/tweetframe/internal/config"
	"github.com/iconidentify/tweetframe/internal/domain"
)

// readinessScript waits for every image to finish loading (bounded per
// image, %d milliseconds) and for font readiness. Never blocks indefinitely.
const readinessScript = `(async () => {
	await Promise.all(Array.from(document.images).map((image) => new Promise((resolve) => {
		if (image.complete) { resolve(); return; }
		image.addEventListener("load", resolve, { once: true });
		image.addEventListener("error", resolve, { once: true });
		setTimeout(resolve, %d);
	})));
	if (document.fonts && document.fonts.ready) { await document.fonts.ready; }
	return true;
})()`

// geometryScript measures the capture root and, when %t, the bounding box
// of the media item that carries the primary video badge, in layout units
// relative to the root's origin.
const geometryScript = `(() => {
	const root = document.querySelector("#capture-root");
	if (!root) { return null; }
	const rootRect = root.getBoundingClientRect();
	let mediaBox = null;
	if (%t) {
		const primaryCard = root.querySelector("#tweet-card");
		const badge = (primaryCard || root).querySelector(".video-badge");
		const mediaItem = badge ? badge.closest(".media-item") : null;
		if (mediaItem) {
			const rect = mediaItem.getBoundingClientRect();
			mediaBox = {
				x: rect.left - rootRect.left,
				y: rect.top - rootRect.top,
				width: rect.width,
				height: rect.height
			};
		}
	}
	return { width: rootRect.width, height: rootRect.height, mediaBox };
})()`

// Snapshot is one captured card: the raster buffer, its size in destination
// pixels, and the detected media box when video detection was requested.
type Snapshot struct {
	PNG         []byte
	PixelWidth  int
	PixelHeight int
	MediaBox    *domain.MediaBox
}

type cardGeometry struct {
	Width    float64      `json:"width"`
	Height   float64      `json:"height"`
	MediaBox *domain.Rect `json:"mediaBox"`
}

// Snapshotter renders card documents into pixel buffers using a pooled
// rendering surface.
type Snapshotter struct {
	pool   *Pool
	cfg    config.CaptureConfig
	logger *slog.Logger
}

// NewSnapshotter creates a snapshotter over the given pool.
func NewSnapshotter(pool *Pool, cfg config.CaptureConfig, logger *slog.Logger) *Snapshotter {
	return &Snapshotter{pool: pool, cfg: cfg, logger: logger}
}

// Snapshot loads html into a fresh tab, waits for readiness, and screenshots
// the capture root element.
//
// Content load and capture-root visibility misses are fatal and surface as
// domain.ErrRenderTimeout. Image and font waits are bounded but non-fatal:
// exceeding them only ends that waiting phase.
func (s *Snapshotter) Snapshot(ctx context.Context, html string, width int, scale float64, detectVideoBox bool) (*Snapshot, error) {
	tabCtx, tabCancel, err := s.pool.page(scale)
	if err != nil {
		return nil, err
	}
	defer tabCancel()

	loadCtx, loadCancel := context.WithTimeout(tabCtx, s.cfg.ContentLoadTimeout)
	defer loadCancel()
	err = chromedp.Run(loadCtx,
		chromedp.EmulateViewport(
			int64(width+s.cfg.ViewportMargin),
			int64(s.cfg.ViewportHeight),
			chromedp.EmulateScale(scale),
		),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
	)
	if err != nil {
		return nil, renderError("load document", err)
	}

	selCtx, selCancel := context.WithTimeout(tabCtx, s.cfg.SelectorTimeout)
	defer selCancel()
	if err := chromedp.Run(selCtx, chromedp.WaitVisible("#capture-root", chromedp.ByID)); err != nil {
		return nil, renderError("wait for capture root", err)
	}

	readyCtx, readyCancel := context.WithTimeout(tabCtx, s.cfg.ReadinessTimeout)
	err = chromedp.Run(readyCtx, chromedp.Evaluate(
		fmt.Sprintf(readinessScript, s.cfg.ImageWaitMillis),
		nil,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		},
	))
	readyCancel()
	if err != nil {
		s.logger.Warn("readiness wait ended early", "error", err)
	}

	shotCtx, shotCancel := context.WithTimeout(tabCtx, s.cfg.ContentLoadTimeout)
	defer shotCancel()

	var geo cardGeometry
	if err := chromedp.Run(shotCtx, chromedp.Evaluate(fmt.Sprintf(geometryScript, detectVideoBox), &geo)); err != nil {
		return nil, renderError("measure layout", err)
	}

	var buf []byte
	if err := chromedp.Run(shotCtx, chromedp.Screenshot("#capture-root", &buf, chromedp.NodeVisible, chromedp.ByID)); err != nil {
		return nil, renderError("screenshot", err)
	}

	snap := &Snapshot{
		PNG:         buf,
		PixelWidth:  pixelDim(geo.Width, float64(width), scale),
		PixelHeight: pixelDim(geo.Height, 1, scale),
	}
	if geo.MediaBox != nil {
		box := domain.NormalizedBox(geo.MediaBox.Scaled(scale))
		snap.MediaBox = &box
	}
	return snap, nil
}

func pixelDim(measured, fallback, scale float64) int {
	v := measured
	if v <= 0 {
		v = fallback
	}
	px := int(math.Round(v * scale))
	if px < 2 {
		px = 2
	}
	return px
}

func renderError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, domain.ErrRenderTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}
