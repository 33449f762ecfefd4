// Package domain holds the resolved post model and the error taxonomy
// shared by the resolver, cache, render, and capture layers.
package domain

import "time"

// PostID is a status identifier: 8 to 25 decimal digits.
type PostID string

func (id PostID) String() string { return string(id) }

// Provider records which upstream produced a post.
type Provider string

const (
	// ProviderPrimary marks posts resolved through the full status API.
	ProviderPrimary Provider = "fxtwitter"
	// ProviderOEmbed marks degraded posts built from the oEmbed fallback.
	ProviderOEmbed Provider = "oembed"
)

// SharedKind distinguishes the two ways a post can carry another post.
type SharedKind string

const (
	SharedRepost SharedKind = "repost"
	SharedQuote  SharedKind = "quote"
)

// Author is the display identity of a post's writer.
type Author struct {
	Name      string `json:"name"`
	Handle    string `json:"handle,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Stats are engagement counters. Nil means the upstream did not report the
// counter, which is distinct from an explicit zero.
type Stats struct {
	Replies   *int64 `json:"replies,omitempty"`
	Reposts   *int64 `json:"reposts,omitempty"`
	Likes     *int64 `json:"likes,omitempty"`
	Bookmarks *int64 `json:"bookmarks,omitempty"`
	Views     *int64 `json:"views,omitempty"`
}

// Photo is one image attachment.
type Photo struct {
	URL    string `json:"url"`
	Width  *int64 `json:"width,omitempty"`
	Height *int64 `json:"height,omitempty"`
}

// Video is one playable attachment, animated GIFs included.
type Video struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	IsGif        bool   `json:"is_gif,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
}

// Article is a long-form attachment rendered as a preview card.
type Article struct {
	Title       string `json:"title,omitempty"`
	PreviewText string `json:"preview_text,omitempty"`
	CoverImage  string `json:"cover_image,omitempty"`
}

// Post is one normalized post.
type Post struct {
	ID        PostID     `json:"id"`
	URL       string     `json:"url,omitempty"`
	Text      string     `json:"text,omitempty"`
	Author    Author     `json:"author"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	Source    string     `json:"source,omitempty"`
	Provider  Provider   `json:"provider"`
	Stats     Stats      `json:"stats"`
	Photos    []Photo    `json:"photos"`
	Videos    []Video    `json:"videos"`
	Article   *Article   `json:"article,omitempty"`
}

// HasPhotos reports whether the post carries at least one image.
func (p *Post) HasPhotos() bool { return len(p.Photos) > 0 }

// HasVideo reports whether the post carries at least one playable attachment.
func (p *Post) HasVideo() bool { return len(p.Videos) > 0 }

// SharedPost is a repost or quote embedded in another post.
type SharedPost struct {
	Kind SharedKind `json:"kind"`
	Post Post       `json:"post"`
}

// PostTree is the fully resolved view of a status: the post itself, its
// shared post when present, and its reply ancestors oldest-first.
type PostTree struct {
	Post
	Shared     *SharedPost `json:"shared,omitempty"`
	ReplyChain []Post      `json:"reply_chain"`
}
