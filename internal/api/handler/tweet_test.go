package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iconidentify/tweetframe/internal/cache"
	"github.com/iconidentify/tweetframe/internal/config"
	"github.com/iconidentify/tweetframe/internal/domain"
	"github.com/iconidentify/tweetframe/internal/service"
	"github.com/iconidentify/tweetframe/pkg/statusref"
)

type stubResolver struct {
	tree *domain.PostTree
	err  error
}

func (s *stubResolver) Resolve(ctx context.Context, ref statusref.Ref) (*domain.PostTree, error) {
	return s.tree, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(resolver service.Resolver) *service.PostService {
	treeCache := cache.New(config.CacheConfig{
		TTL:            time.Minute,
		GraceTTL:       20 * time.Second,
		MaxEntries:     10,
		ResolveTimeout: 5 * time.Second,
	}, testLogger())
	return service.NewPostService(resolver, treeCache, testLogger())
}

func TestTweetGet(t *testing.T) {
	resolver := &stubResolver{tree: &domain.PostTree{
		Post: domain.Post{ID: "1234567890123456789", Text: "hello"},
	}}
	h := NewTweetHandler(newTestService(resolver), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/tweet?url=1234567890123456789", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp TweetResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK || resp.Tweet == nil || resp.Tweet.Text != "hello" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestTweetGetMissingURL(t *testing.T) {
	h := NewTweetHandler(newTestService(&stubResolver{}), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/tweet", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestTweetGetInvalidReference(t *testing.T) {
	h := NewTweetHandler(newTestService(&stubResolver{}), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/tweet?url=https%3A%2F%2Fexample.com%2Fx%2Fstatus%2F1234567890", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unsupported host", rec.Code)
	}
}

func TestTweetGetUpstreamUnavailable(t *testing.T) {
	h := NewTweetHandler(newTestService(&stubResolver{err: domain.ErrUpstreamUnavailable}), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/tweet?url=1234567890123456789", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}
