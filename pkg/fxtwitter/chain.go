package fxtwitter

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"

	"github.com/iconidentify/tweetframe/internal/domain"
)

var statusIDInURL = regexp.MustCompile(`(?i)status/(\d{8,25})`)

// walkReplyChain collects the reply ancestors of a post, oldest-first.
//
// The walk is iterative with an explicit visited set so depth bounds and
// cycle detection stay auditable. An embedded parent object is preferred
// over re-fetching; a fetch miss terminates the chain, it never fails the
// resolution.
func (c *Client) walkReplyChain(ctx context.Context, root *tweetPayload) []domain.Post {
	chain := []domain.Post{}
	visited := map[string]bool{}
	if id := root.postIDString(); id != "" {
		visited[id] = true
	}

	current := root
	for depth := 0; depth < c.maxReplyDepth; depth++ {
		if embedded := embeddedParent(current); embedded != nil {
			marker := postMarker(embedded)
			if visited[marker] {
				break
			}
			visited[marker] = true
			chain = append(chain, normalizeContextPost(embedded))
			current = embedded
			continue
		}

		parentID := parentStatusID(current)
		if parentID == "" || visited[parentID] {
			break
		}

		parent := c.fetchByID(ctx, parentID)
		if parent == nil {
			break
		}
		marker := postMarker(parent)
		if visited[marker] {
			break
		}
		visited[marker] = true
		visited[parentID] = true
		chain = append(chain, normalizeContextPost(parent))
		current = parent
	}

	reverse(chain)
	return chain
}

// postMarker identifies a post for cycle detection: the id when present,
// otherwise a deterministic marker from timestamp and text prefix.
func postMarker(tweet *tweetPayload) string {
	if id := tweet.postIDString(); id != "" {
		return id
	}
	stamp := tweet.CreatedAt
	if tweet.CreatedTimestamp != nil {
		stamp = strconv.FormatInt(*tweet.CreatedTimestamp, 10)
	}
	text := tweet.Text
	if len(text) > 80 {
		text = text[:80]
	}
	return stamp + ":" + text
}

// embeddedParentFields lists, in precedence order, the payload fields that
// may carry a fully embedded parent post object.
func embeddedParentFields(t *tweetPayload) []json.RawMessage {
	return []json.RawMessage{
		t.ReplyingToStatus,
		t.InReplyToStatus,
		t.ParentTweet,
		t.ParentStatus,
	}
}

// embeddedParent returns the first field carrying a decodable parent post.
func embeddedParent(tweet *tweetPayload) *tweetPayload {
	for _, raw := range embeddedParentFields(tweet) {
		if resolved := postFromCandidate(raw); resolved != nil {
			return resolved
		}
	}
	return nil
}

// postFromCandidate decodes a raw candidate into a post object. Candidates
// may be a post, an array of posts, or a {tweet: ...} wrapper.
func postFromCandidate(raw json.RawMessage) *tweetPayload {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, item := range list {
			if resolved := postFromCandidate(item); resolved != nil {
				return resolved
			}
		}
		return nil
	}

	var candidate tweetPayload
	if err := json.Unmarshal(raw, &candidate); err != nil {
		return nil
	}

	var wrapper struct {
		Tweet json.RawMessage `json:"tweet"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && len(wrapper.Tweet) > 0 && string(wrapper.Tweet) != "null" {
		if resolved := postFromCandidate(wrapper.Tweet); resolved != nil {
			return resolved
		}
	}

	if looksLikePost(&candidate) {
		return &candidate
	}
	return nil
}

// looksLikePost applies the structural duck test: an author plus any of the
// content-bearing fields.
func looksLikePost(t *tweetPayload) bool {
	if t.Author == nil {
		return false
	}
	return t.Text != "" || t.RawText != nil || t.Media != nil ||
		t.CreatedAt != "" || t.CreatedTimestamp != nil
}

// directParentIDFields lists, in precedence order, the payload fields that
// may carry a bare parent status id.
func directParentIDFields(t *tweetPayload) []json.RawMessage {
	return []json.RawMessage{
		t.InReplyToStatusID,
		t.InReplyToStatusIDStr,
		t.ReplyingToStatusID,
		t.ReplyToStatusID,
		t.ParentTweetID,
		t.ParentStatusID,
	}
}

// nestedParentFields lists, in precedence order, the payload fields whose
// nested objects may reference a parent status id.
func nestedParentFields(t *tweetPayload) []json.RawMessage {
	return []json.RawMessage{
		t.ReplyingToStatus,
		t.InReplyToStatus,
		t.ParentTweet,
		t.ParentStatus,
		t.ReplyingTo,
	}
}

// parentStatusID extracts a parent post id from the known reference fields:
// direct ids first, then nested objects.
func parentStatusID(tweet *tweetPayload) string {
	for _, raw := range directParentIDFields(tweet) {
		if id := normalizeID(raw); id != "" {
			return id
		}
	}
	for _, raw := range nestedParentFields(tweet) {
		if id := parentIDFromCandidate(raw); id != "" {
			return id
		}
	}
	return ""
}

// parentRef covers the explicit id aliases a nested parent reference can use.
type parentRef struct {
	StatusID           json.RawMessage `json:"status_id"`
	StatusIDCamel      json.RawMessage `json:"statusId"`
	TweetID            json.RawMessage `json:"tweet_id"`
	TweetIDCamel       json.RawMessage `json:"tweetId"`
	InReplyToStatusID  json.RawMessage `json:"in_reply_to_status_id"`
	ReplyingToStatusID json.RawMessage `json:"replying_to_status_id"`
	ParentStatusID     json.RawMessage `json:"parent_status_id"`
	ParentTweetID      json.RawMessage `json:"parent_tweet_id"`
	URL                string          `json:"url"`
	Tweet              json.RawMessage `json:"tweet"`
}

func (r *parentRef) idFields() []json.RawMessage {
	return []json.RawMessage{
		r.StatusID,
		r.StatusIDCamel,
		r.TweetID,
		r.TweetIDCamel,
		r.InReplyToStatusID,
		r.ReplyingToStatusID,
		r.ParentStatusID,
		r.ParentTweetID,
	}
}

// parentIDFromCandidate resolves a parent id out of an arbitrarily shaped
// candidate: a bare id, an array, an object with explicit id fields, a URL
// containing a status segment, a {tweet: ...} wrapper, or a post object
// whose own id applies.
func parentIDFromCandidate(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	if id := normalizeID(raw); id != "" {
		return id
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, item := range list {
			if id := parentIDFromCandidate(item); id != "" {
				return id
			}
		}
		return ""
	}

	var ref parentRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		return ""
	}
	for _, field := range ref.idFields() {
		if id := normalizeID(field); id != "" {
			return id
		}
	}
	if ref.URL != "" {
		if match := statusIDInURL.FindStringSubmatch(ref.URL); match != nil {
			return match[1]
		}
	}
	if len(ref.Tweet) > 0 && string(ref.Tweet) != "null" {
		if id := parentIDFromCandidate(ref.Tweet); id != "" {
			return id
		}
	}

	var candidate tweetPayload
	if err := json.Unmarshal(raw, &candidate); err == nil && looksLikePost(&candidate) {
		return candidate.postIDString()
	}
	return ""
}

func reverse(posts []domain.Post) {
	for i, j := 0, len(posts)-1; i < j; i, j = i+1, j-1 {
		posts[i], posts[j] = posts[j], posts[i]
	}
}
