package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iconidentify/tweetframe/internal/api/handler"
	"github.com/iconidentify/tweetframe/internal/cache"
	"github.com/iconidentify/tweetframe/internal/capture"
	"github.com/iconidentify/tweetframe/internal/config"
	"github.com/iconidentify/tweetframe/internal/domain"
	"github.com/iconidentify/tweetframe/internal/render"
	"github.com/iconidentify/tweetframe/internal/service"
	"github.com/iconidentify/tweetframe/pkg/statusref"
)

type stubResolver struct {
	tree *domain.PostTree
}

func (s *stubResolver) Resolve(ctx context.Context, ref statusref.Ref) (*domain.PostTree, error) {
	return s.tree, nil
}

type stubSnapshotter struct{}

func (s *stubSnapshotter) Snapshot(ctx context.Context, html string, width int, scale float64, detectVideoBox bool) (*capture.Snapshot, error) {
	return &capture.Snapshot{PNG: []byte("png bytes"), PixelWidth: width, PixelHeight: 1500}, nil
}

type stubComposer struct{}

func (s *stubComposer) Compose(ctx context.Context, cardPNG []byte, mediaURL string, box domain.MediaBox, fit domain.FitMode) ([]byte, error) {
	return []byte("mp4 bytes"), nil
}

func testRouter(t *testing.T, tree *domain.PostTree) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	treeCache := cache.New(config.CacheConfig{
		TTL:            time.Minute,
		GraceTTL:       20 * time.Second,
		MaxEntries:     10,
		ResolveTimeout: 5 * time.Second,
	}, logger)
	posts := service.NewPostService(&stubResolver{tree: tree}, treeCache, logger)

	renderer, err := render.NewCardRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	pipeline := capture.NewPipeline(&stubSnapshotter{}, &stubComposer{}, logger)

	return NewRouter(
		handler.NewHealthHandler("tweetframe", "test"),
		handler.NewTweetHandler(posts, logger),
		handler.NewCaptureHandler(posts, renderer, pipeline, logger),
		logger,
	)
}

func sampleTree() *domain.PostTree {
	return &domain.PostTree{
		Post: domain.Post{
			ID:     "1234567890123456789",
			Text:   "hello from the router test",
			Author: domain.Author{Name: "Someone", Handle: "someone"},
		},
	}
}

func TestRouterHealth(t *testing.T) {
	router := testRouter(t, sampleTree())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp handler.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.OK || resp.Service != "tweetframe" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestRouterCard(t *testing.T) {
	router := testRouter(t, sampleTree())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/card?url=1234567890123456789", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	for _, marker := range []string{`id="capture-root"`, `id="tweet-card"`} {
		if !strings.Contains(body, marker) {
			t.Errorf("card html missing %s", marker)
		}
	}
	if !strings.Contains(body, "hello from the router test") {
		t.Error("card html missing the post text")
	}
}

func TestRouterCaptureStill(t *testing.T) {
	router := testRouter(t, sampleTree())

	body := strings.NewReader(`{"url":"1234567890123456789"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/capture", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png for a post without video", ct)
	}
	if got := rec.Header().Get("X-Capture-Kind"); got != "image" {
		t.Errorf("X-Capture-Kind = %q", got)
	}
	if got := rec.Header().Get("X-Tweet-ID"); got != "1234567890123456789" {
		t.Errorf("X-Tweet-ID = %q", got)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "tweet-1234567890123456789.png") {
		t.Errorf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
	}
}

func TestRouterCaptureVideo(t *testing.T) {
	tree := sampleTree()
	tree.Videos = []domain.Video{{URL: "https://video.example/clip.mp4"}}
	router := testRouter(t, tree)

	req := httptest.NewRequest(http.MethodPost, "/api/capture", strings.NewReader(`{"url":"1234567890123456789"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "video/mp4" {
		t.Errorf("Content-Type = %q, want video/mp4", ct)
	}
	if got := rec.Header().Get("X-Capture-Kind"); got != "video" {
		t.Errorf("X-Capture-Kind = %q", got)
	}
}

func TestRouterCaptureInvalidBody(t *testing.T) {
	router := testRouter(t, sampleTree())

	req := httptest.NewRequest(http.MethodPost, "/api/capture", strings.NewReader(`{`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRouterLogsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	treeCache := cache.New(config.CacheConfig{
		TTL:            time.Minute,
		GraceTTL:       20 * time.Second,
		MaxEntries:     10,
		ResolveTimeout: 5 * time.Second,
	}, logger)
	posts := service.NewPostService(&stubResolver{tree: sampleTree()}, treeCache, logger)

	renderer, err := render.NewCardRenderer()
	if err != nil {
		t.Fatal(err)
	}
	pipeline := capture.NewPipeline(&stubSnapshotter{}, &stubComposer{}, logger)
	router := NewRouter(
		handler.NewHealthHandler("tweetframe", "test"),
		handler.NewTweetHandler(posts, logger),
		handler.NewCaptureHandler(posts, renderer, pipeline, logger),
		logger,
	)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	var record struct {
		Msg       string `json:"msg"`
		RequestID string `json:"request_id"`
		Status    int    `json:"status"`
	}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	if record.Msg != "http request" {
		t.Errorf("msg = %q", record.Msg)
	}
	if record.RequestID == "" {
		t.Error("request log missing the request id")
	}
	if record.Status != http.StatusOK {
		t.Errorf("status = %d", record.Status)
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	router := testRouter(t, sampleTree())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/tweet", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS headers missing")
	}
}
