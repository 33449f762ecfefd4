package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/iconidentify/tweetframe/internal/capture"
	"github.com/iconidentify/tweetframe/internal/render"
	"github.com/iconidentify/tweetframe/internal/service"
)

// CaptureHandler serves the rendered card document and the captured
// image/video artifact.
type CaptureHandler struct {
	posts    *service.PostService
	renderer render.Renderer
	pipeline *capture.Pipeline
	logger   *slog.Logger
}

// NewCaptureHandler creates a new capture handler.
func NewCaptureHandler(posts *service.PostService, renderer render.Renderer, pipeline *capture.Pipeline, logger *slog.Logger) *CaptureHandler {
	return &CaptureHandler{
		posts:    posts,
		renderer: renderer,
		pipeline: pipeline,
		logger:   logger,
	}
}

// Card handles GET /api/card - returns the card HTML for inspection.
func (h *CaptureHandler) Card(w http.ResponseWriter, r *http.Request) {
	params := paramsFromQuery(r.URL.Query())
	if params.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	tree, err := h.posts.Lookup(r.Context(), params.URL)
	if err != nil {
		h.logger.Warn("card lookup failed", "input", params.URL, "error", err)
		writeDomainError(w, err)
		return
	}

	html, err := h.renderer.Render(render.Input{
		Tree:         tree,
		Width:        params.Width,
		BodyFontSize: params.BodyFontSize,
		UIFontSize:   params.UIFontSize,
		Theme:        params.Theme,
		Locale:       params.Locale,
		Options:      params.Options,
	})
	if err != nil {
		h.logger.Error("card render failed", "post_id", tree.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "card rendering failed")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

// Capture handles POST /api/capture - returns an mp4 when the post carries
// a composable video and composition succeeds, a png otherwise.
func (h *CaptureHandler) Capture(w http.ResponseWriter, r *http.Request) {
	var body captureRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	params := paramsFromBody(body)
	if params.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	tree, err := h.posts.Lookup(r.Context(), params.URL)
	if err != nil {
		h.logger.Warn("capture lookup failed", "input", params.URL, "error", err)
		writeDomainError(w, err)
		return
	}

	html, err := h.renderer.Render(render.Input{
		Tree:         tree,
		Width:        params.Width,
		BodyFontSize: params.BodyFontSize,
		UIFontSize:   params.UIFontSize,
		Theme:        params.Theme,
		Locale:       params.Locale,
		Options:      params.Options,
	})
	if err != nil {
		h.logger.Error("capture render failed", "post_id", tree.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "card rendering failed")
		return
	}

	result, err := h.pipeline.Capture(r.Context(), capture.Request{
		HTML:       html,
		Tree:       tree,
		Width:      params.Width,
		Scale:      params.Scale,
		WantsVideo: params.ComposeVideo && params.Options.IncludeMedia,
		Fit:        params.Fit,
		Selection: capture.Selection{
			IncludeShared:         params.Options.IncludeShared,
			IncludeSharedMedia:    params.Options.IncludeSharedMedia,
			IncludeReplyChain:     params.Options.IncludeReplyChain,
			MediaSelectionEnabled: params.Options.MediaSelectionEnabled,
			SelectedMediaKeys:     params.Options.SelectedMediaKeys,
		},
	})
	if err != nil {
		h.logger.Error("capture failed", "post_id", tree.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "capture failed")
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FilenameHint))
	w.Header().Set("X-Tweet-ID", tree.ID.String())
	w.Header().Set("X-Capture-Kind", result.Kind)
	w.Write(result.Bytes)
}
