// Package service ties the identifier parser, the upstream resolver, and
// the stale-while-revalidate cache into the lookup the HTTP layer calls.
package service

import (
	"context"
	"log/slog"

	"github.com/iconidentify/tweetframe/internal/cache"
	"github.com/iconidentify/tweetframe/internal/domain"
	"github.com/iconidentify/tweetframe/pkg/statusref"
)

// Resolver resolves a parsed status reference into a post tree.
type Resolver interface {
	Resolve(ctx context.Context, ref statusref.Ref) (*domain.PostTree, error)
}

// PostService is the single entry point for post lookups. Concurrent
// lookups of the same status share one upstream resolution through the
// cache.
type PostService struct {
	resolver Resolver
	cache    *cache.Cache
	logger   *slog.Logger
}

// NewPostService creates the lookup service.
func NewPostService(resolver Resolver, treeCache *cache.Cache, logger *slog.Logger) *PostService {
	return &PostService{resolver: resolver, cache: treeCache, logger: logger}
}

// Lookup parses input as a status reference and returns the cached or
// freshly resolved post tree.
func (s *PostService) Lookup(ctx context.Context, input string) (*domain.PostTree, error) {
	ref, err := statusref.Parse(input)
	if err != nil {
		return nil, err
	}
	return s.cache.GetOrResolve(ctx, ref.ID, func(ctx context.Context) (*domain.PostTree, error) {
		s.logger.Debug("resolving post", "post_id", ref.ID)
		return s.resolver.Resolve(ctx, ref)
	})
}
