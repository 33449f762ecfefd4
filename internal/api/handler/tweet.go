package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/iconidentify/tweetframe/internal/domain"
	"github.com/iconidentify/tweetframe/internal/service"
)

// TweetHandler serves resolved post trees as JSON.
type TweetHandler struct {
	posts  *service.PostService
	logger *slog.Logger
}

// NewTweetHandler creates a new tweet handler.
func NewTweetHandler(posts *service.PostService, logger *slog.Logger) *TweetHandler {
	return &TweetHandler{posts: posts, logger: logger}
}

// TweetResponse wraps a resolved tree.
type TweetResponse struct {
	OK    bool             `json:"ok"`
	Tweet *domain.PostTree `json:"tweet"`
}

// Get handles GET /api/tweet?url=.
func (h *TweetHandler) Get(w http.ResponseWriter, r *http.Request) {
	input := strings.TrimSpace(r.URL.Query().Get("url"))
	if input == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	tree, err := h.posts.Lookup(r.Context(), input)
	if err != nil {
		h.logger.Warn("tweet lookup failed", "input", input, "error", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TweetResponse{OK: true, Tweet: tree})
}
