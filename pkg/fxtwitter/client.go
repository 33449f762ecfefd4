// Package fxtwitter resolves post references into full post trees using the
// fxtwitter metadata API, with the official oEmbed endpoint as a degraded
// fallback when every primary path fails.
package fxtwitter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/iconidentify/tweetframe/internal/config"
	"github.com/iconidentify/tweetframe/internal/domain"
	"github.com/iconidentify/tweetframe/pkg/statusref"
)

// Client fetches post metadata and resolves post trees.
type Client struct {
	httpClient    *http.Client
	apiBase       string
	oembedBase    string
	userAgent     string
	maxReplyDepth int
	logger        *slog.Logger
}

// NewClient creates a resolver client from configuration.
func NewClient(cfg config.ResolverConfig, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiBase:       strings.TrimRight(cfg.APIBase, "/"),
		oembedBase:    strings.TrimRight(cfg.OEmbedBase, "/"),
		userAgent:     cfg.UserAgent,
		maxReplyDepth: cfg.MaxReplyDepth,
		logger:        logger,
	}
}

// Resolve fetches the referenced post and recursively resolves its shared
// post and reply-ancestor chain into one immutable tree.
//
// The primary API is tried on several path variants; when all of them miss,
// the oEmbed fallback produces a reduced tree (text and author only). Only
// a fallback failure surfaces as domain.ErrUpstreamUnavailable.
func (c *Client) Resolve(ctx context.Context, ref statusref.Ref) (*domain.PostTree, error) {
	payload := c.fetchPrimary(ctx, ref)
	if payload != nil {
		return c.buildTree(ctx, payload.Tweet, ref), nil
	}

	oembed, err := c.fetchOEmbed(ctx, ref.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	return degradedTree(oembed, ref), nil
}

// fetchPrimary tries the primary API path variants in order and returns the
// first successful payload, or nil when every variant missed. Network errors
// and non-2xx responses are equivalent to "try next".
func (c *Client) fetchPrimary(ctx context.Context, ref statusref.Ref) *statusPayload {
	var paths []string
	if ref.Handle != "" {
		paths = append(paths, url.PathEscape(ref.Handle)+"/status/"+ref.ID)
	}
	paths = append(paths, "status/"+ref.ID, "i/status/"+ref.ID)

	for _, path := range paths {
		payload, err := c.fetchStatus(ctx, path)
		if err != nil {
			c.logger.Debug("primary metadata path missed", "path", path, "error", err)
			continue
		}
		return payload
	}
	return nil
}

// fetchByID fetches a post through the primary API by id alone. Used by the
// reply-chain walker, where a miss terminates the walk rather than failing
// the resolution.
func (c *Client) fetchByID(ctx context.Context, id string) *tweetPayload {
	if !postIDPattern.MatchString(id) {
		return nil
	}
	payload, err := c.fetchStatus(ctx, "status/"+id)
	if err != nil || payload.Tweet == nil {
		return nil
	}
	return payload.Tweet
}

func (c *Client) fetchStatus(ctx context.Context, path string) (*statusPayload, error) {
	endpoint := c.apiBase + "/" + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var payload statusPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if payload.Code != 200 || payload.Tweet == nil {
		return nil, fmt.Errorf("payload code %d without post body", payload.Code)
	}
	return &payload, nil
}

func (c *Client) fetchOEmbed(ctx context.Context, canonicalURL string) (*oembedPayload, error) {
	endpoint := fmt.Sprintf("%s?url=%s&omit_script=true&dnt=true&theme=light",
		c.oembedBase, url.QueryEscape(canonicalURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var payload oembedPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &payload, nil
}

// buildTree assembles the full tree from a primary payload.
func (c *Client) buildTree(ctx context.Context, tweet *tweetPayload, ref statusref.Ref) *domain.PostTree {
	tree := &domain.PostTree{
		Post:       normalizePost(tweet, ref),
		Shared:     normalizeShared(tweet),
		ReplyChain: c.walkReplyChain(ctx, tweet),
	}
	return tree
}

// degradedTree builds the reduced tree an oEmbed response can support:
// text and author only, no media, no shared post, no reply chain.
func degradedTree(oembed *oembedPayload, ref statusref.Ref) *domain.PostTree {
	handle := ref.Handle
	if segments := strings.Split(strings.Trim(oembed.AuthorURL, "/"), "/"); len(segments) > 0 {
		if last := segments[len(segments)-1]; last != "" && !strings.Contains(last, ":") {
			handle = last
		}
	}
	postURL := oembed.URL
	if postURL == "" {
		postURL = ref.URL
	}
	name := oembed.AuthorName
	if name == "" {
		name = "Unknown"
	}
	return &domain.PostTree{
		Post: domain.Post{
			ID:       domain.PostID(ref.ID),
			URL:      postURL,
			Text:     textFromOEmbedHTML(oembed.HTML),
			Provider: domain.ProviderOEmbed,
			Author: domain.Author{
				Name:   name,
				Handle: handle,
			},
			Photos: []domain.Photo{},
			Videos: []domain.Video{},
		},
		ReplyChain: []domain.Post{},
	}
}
