package capture

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iconidentify/tweetframe/internal/domain"
)

type cardSnapshotter interface {
	Snapshot(ctx context.Context, html string, width int, scale float64, detectVideoBox bool) (*Snapshot, error)
}

type videoComposer interface {
	Compose(ctx context.Context, cardPNG []byte, mediaURL string, box domain.MediaBox, fit domain.FitMode) ([]byte, error)
}

// Selection mirrors the render options that decide which of the tree's
// videos are visible on the card and therefore composable.
type Selection struct {
	IncludeShared         bool
	IncludeSharedMedia    bool
	IncludeReplyChain     bool
	MediaSelectionEnabled bool
	SelectedMediaKeys     []string
}

// Request is one capture invocation.
type Request struct {
	HTML       string
	Tree       *domain.PostTree
	Width      int
	Scale      float64
	WantsVideo bool
	Fit        domain.FitMode
	Selection  Selection
}

// Result is the captured artifact.
type Result struct {
	Bytes        []byte
	ContentType  string
	FilenameHint string
	Kind         string // "video" or "image"
}

// Pipeline orchestrates snapshot and composition with still-image fallback.
type Pipeline struct {
	snapshots cardSnapshotter
	composer  videoComposer
	logger    *slog.Logger
}

// NewPipeline creates the capture pipeline.
func NewPipeline(snapshots cardSnapshotter, composer videoComposer, logger *slog.Logger) *Pipeline {
	return &Pipeline{snapshots: snapshots, composer: composer, logger: logger}
}

// Capture renders the document and returns either a composed video or a
// still image.
//
// Composition errors are never fatal: the still captured for box detection
// is returned instead. Only render failures propagate.
func (p *Pipeline) Capture(ctx context.Context, req Request) (*Result, error) {
	var video *domain.Video
	if req.WantsVideo {
		video = PickComposableVideo(req.Tree, req.Selection)
	}

	if video != nil {
		snap, err := p.snapshots.Snapshot(ctx, req.HTML, req.Width, req.Scale, true)
		if err != nil {
			return nil, err
		}
		box := snap.MediaBox
		if box == nil {
			fallback := domain.CenteredBox(snap.PixelWidth, snap.PixelHeight)
			box = &fallback
		}
		out, err := p.composer.Compose(ctx, snap.PNG, video.URL, *box, req.Fit)
		if err == nil {
			return &Result{
				Bytes:        out,
				ContentType:  "video/mp4",
				FilenameHint: filenameHint(req.Tree, "mp4"),
				Kind:         "video",
			}, nil
		}
		p.logger.Warn("composition failed, falling back to still image",
			"post_id", req.Tree.ID, "error", err)
		return stillResult(req.Tree, snap.PNG), nil
	}

	snap, err := p.snapshots.Snapshot(ctx, req.HTML, req.Width, req.Scale, false)
	if err != nil {
		return nil, err
	}
	return stillResult(req.Tree, snap.PNG), nil
}

func stillResult(tree *domain.PostTree, png []byte) *Result {
	return &Result{
		Bytes:        png,
		ContentType:  "image/png",
		FilenameHint: filenameHint(tree, "png"),
		Kind:         "image",
	}
}

func filenameHint(tree *domain.PostTree, ext string) string {
	id := tree.ID.String()
	if id == "" {
		id = "capture"
	}
	return fmt.Sprintf("tweet-%s.%s", id, ext)
}

// PickComposableVideo walks the tree in card order (root media, shared
// media when included, reply-chain media when included) and returns the
// first video the current selection leaves visible.
func PickComposableVideo(tree *domain.PostTree, sel Selection) *domain.Video {
	if tree == nil {
		return nil
	}
	var selected map[string]bool
	if sel.MediaSelectionEnabled {
		selected = make(map[string]bool, len(sel.SelectedMediaKeys))
		for _, key := range sel.SelectedMediaKeys {
			selected[key] = true
		}
	}

	if v := pickFrom(tree.Videos, "main", selected); v != nil {
		return v
	}
	if tree.Shared != nil && sel.IncludeShared && sel.IncludeSharedMedia {
		if v := pickFrom(tree.Shared.Post.Videos, "shared", selected); v != nil {
			return v
		}
	}
	if sel.IncludeReplyChain {
		for i := range tree.ReplyChain {
			contextKey := fmt.Sprintf("reply-%d", i)
			if v := pickFrom(tree.ReplyChain[i].Videos, contextKey, selected); v != nil {
				return v
			}
		}
	}
	return nil
}

func pickFrom(videos []domain.Video, contextKey string, selected map[string]bool) *domain.Video {
	for i := range videos {
		if selected != nil && !selected[fmt.Sprintf("%s-video-%d", contextKey, i)] {
			continue
		}
		if videos[i].URL != "" {
			return &videos[i]
		}
	}
	return nil
}
