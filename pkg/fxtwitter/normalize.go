package fxtwitter

import (
	"regexp"
	"strings"
	"time"

	"github.com/iconidentify/tweetframe/internal/domain"
	"github.com/iconidentify/tweetframe/pkg/statusref"
)

var (
	trailingTrackingLink = regexp.MustCompile(`(?i)\s*https?://t\.co/[a-zA-Z0-9]+\s*$`)
	trailingLineSpace    = regexp.MustCompile(`[ \t]+\n`)
	excessNewlines       = regexp.MustCompile(`\n{3,}`)
	gifURL               = regexp.MustCompile(`(?i)\.gif(\?|$)`)
	manifestURL          = regexp.MustCompile(`(?i)\.m3u8(\?|$)`)
	webmURL              = regexp.MustCompile(`(?i)\.webm(\?|$)`)
)

// normalizePost converts a primary payload into the root post of a tree.
func normalizePost(tweet *tweetPayload, ref statusref.Ref) domain.Post {
	post := normalizeContextPost(tweet)
	if post.ID == "" {
		post.ID = domain.PostID(ref.ID)
	}
	if post.URL == "" {
		post.URL = ref.URL
	}
	if post.Author.Handle == "" {
		post.Author.Handle = ref.Handle
	}
	return post
}

// normalizeContextPost converts a payload into a reduced post, as used for
// reply-chain ancestors and shared posts. All payload variants go through
// the same text cleanup and media extraction.
func normalizeContextPost(tweet *tweetPayload) domain.Post {
	author := domain.Author{Name: "Unknown"}
	if tweet.Author != nil {
		if tweet.Author.Name != "" {
			author.Name = tweet.Author.Name
		}
		author.Handle = tweet.Author.ScreenName
		author.AvatarURL = tweet.Author.AvatarURL
	}

	return domain.Post{
		ID:        domain.PostID(tweet.postIDString()),
		URL:       tweet.URL,
		Text:      primaryText(tweet),
		Author:    author,
		CreatedAt: normalizeDate(tweet.CreatedTimestamp, tweet.CreatedAt),
		Source:    tweet.Source,
		Provider:  domain.ProviderPrimary,
		Stats: domain.Stats{
			Replies:   normalizeCount(tweet.Replies),
			Reposts:   normalizeCount(tweet.Retweets),
			Likes:     normalizeCount(tweet.Likes),
			Bookmarks: normalizeCount(tweet.Bookmarks),
			Views:     normalizeCount(tweet.Views),
		},
		Photos:  extractPhotos(tweet.Media),
		Videos:  extractVideos(tweet.Media, tweet.Video),
		Article: normalizeArticle(tweet.Article),
	}
}

// normalizeShared picks the shared post: repost aliases are checked before
// the quote field, so a repost wins when both are structurally present.
func normalizeShared(tweet *tweetPayload) *domain.SharedPost {
	repostCandidates := []*tweetPayload{
		tweet.RetweetedTweet,
		tweet.RetweetedStatus,
		tweet.Retweet,
		tweet.Repost,
	}
	for _, candidate := range repostCandidates {
		if candidate != nil {
			return &domain.SharedPost{Kind: domain.SharedRepost, Post: normalizeContextPost(candidate)}
		}
	}
	if tweet.Quote != nil {
		return &domain.SharedPost{Kind: domain.SharedQuote, Post: normalizeContextPost(tweet.Quote)}
	}
	return nil
}

// primaryText prefers the structured rich-text field over the plain one and
// applies the uniform cleanup pass.
func primaryText(tweet *tweetPayload) string {
	text := tweet.Text
	var facets []facetPayload
	if tweet.RawText != nil {
		facets = tweet.RawText.Facets
		if strings.TrimSpace(text) == "" {
			text = tweet.RawText.Text
		}
	}
	return cleanupText(text, facets)
}

// cleanupText strips facet-annotated media tokens, one trailing tracking
// link, line-trailing whitespace, and collapses 3+ newlines to exactly 2.
func cleanupText(text string, facets []facetPayload) string {
	out := text
	for _, facet := range facets {
		if facet.Type == "media" && strings.TrimSpace(facet.Original) != "" {
			out = strings.Replace(out, facet.Original, "", 1)
		}
	}
	out = trailingTrackingLink.ReplaceAllString(out, " ")
	out = trailingLineSpace.ReplaceAllString(out, "\n")
	out = excessNewlines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// photoURLExtractors is the ordered alias table for a photo's URL.
var photoURLExtractors = []func(*mediaItem) string{
	func(m *mediaItem) string { return m.URL },
	func(m *mediaItem) string { return m.MediaURL },
	func(m *mediaItem) string { return m.MediaURLHTTPS },
	func(m *mediaItem) string { return m.ImageURL },
}

func extractPhotos(media *mediaPayload) []domain.Photo {
	photos := []domain.Photo{}
	if media == nil {
		return photos
	}
	seen := map[string]bool{}
	push := func(item *mediaItem) {
		url := firstNonEmpty(item, photoURLExtractors)
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		photos = append(photos, domain.Photo{
			URL:    url,
			Width:  normalizeCount(item.Width),
			Height: normalizeCount(item.Height),
		})
	}
	for i := range media.Photos {
		push(&media.Photos[i])
	}
	for i := range media.All {
		if media.All[i].Type == "photo" {
			push(&media.All[i])
		}
	}
	return photos
}

// videoURLExtractors is the ordered alias table for a video's playable URL.
// Bitrate-ranked variants are appended after the direct aliases.
var videoURLExtractors = []func(*mediaItem) string{
	func(m *mediaItem) string { return m.URL },
	func(m *mediaItem) string { return m.VideoURL },
	func(m *mediaItem) string { return m.VideoURLCamel },
	func(m *mediaItem) string { return m.VideoURLHD },
	func(m *mediaItem) string { return m.VideoURLSD },
	func(m *mediaItem) string { return m.SDURL },
	func(m *mediaItem) string { return m.HDURL },
	func(m *mediaItem) string { return m.PlaybackURL },
	func(m *mediaItem) string { return m.PlaybackCamel },
	func(m *mediaItem) string { return m.DownloadURL },
	func(m *mediaItem) string { return m.DownloadCamel },
}

// thumbnailExtractors is the ordered alias table for a video's poster frame.
var thumbnailExtractors = []func(*mediaItem) string{
	func(m *mediaItem) string { return m.ThumbnailURL },
	func(m *mediaItem) string { return m.PreviewImageURL },
	func(m *mediaItem) string { return m.Thumbnail },
	func(m *mediaItem) string { return m.Poster },
}

func extractVideos(media *mediaPayload, topLevel *mediaItem) []domain.Video {
	videos := []domain.Video{}
	seen := map[string]bool{}
	push := func(item *mediaItem) {
		url := pickVideoURL(item)
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		itemType := strings.ToLower(item.Type)
		videos = append(videos, domain.Video{
			URL:          url,
			ThumbnailURL: firstNonEmpty(item, thumbnailExtractors),
			IsGif:        item.IsGif || itemType == "gif" || gifURL.MatchString(url),
			MimeType:     pickVideoMimeType(item, url),
		})
	}
	if media != nil {
		for i := range media.Videos {
			push(&media.Videos[i])
		}
		for i := range media.All {
			if t := media.All[i].Type; t == "video" || t == "gif" {
				push(&media.All[i])
			}
		}
	}
	if topLevel != nil {
		push(topLevel)
	}
	return videos
}

// pickVideoURL returns the first direct alias that is set, falling back to
// the variant list sorted by descending bitrate.
func pickVideoURL(item *mediaItem) string {
	if url := firstNonEmpty(item, videoURLExtractors); url != "" {
		return url
	}
	best := ""
	bestBitrate := int64(-1)
	for _, variant := range item.Variants {
		url := strings.TrimSpace(variant.URL)
		if url == "" {
			continue
		}
		bitrate := int64(0)
		if b := normalizeCount(variant.Bitrate); b != nil {
			bitrate = *b
		}
		if bitrate > bestBitrate {
			best = url
			bestBitrate = bitrate
		}
	}
	return best
}

func pickVideoMimeType(item *mediaItem, url string) string {
	if t := strings.TrimSpace(item.ContentType); t != "" {
		return t
	}
	if t := strings.TrimSpace(item.MimeType); t != "" {
		return t
	}
	switch {
	case gifURL.MatchString(url):
		return "image/gif"
	case manifestURL.MatchString(url):
		return "application/vnd.apple.mpegurl"
	case webmURL.MatchString(url):
		return "video/webm"
	default:
		return "video/mp4"
	}
}

func normalizeArticle(article *articlePayload) *domain.Article {
	if article == nil {
		return nil
	}
	cover := ""
	if cm := article.CoverMedia; cm != nil {
		if cm.MediaInfo != nil {
			if cm.MediaInfo.OriginalImgURL != "" {
				cover = cm.MediaInfo.OriginalImgURL
			} else {
				cover = cm.MediaInfo.URL
			}
		}
		if cover == "" {
			cover = cm.URL
		}
	}
	if article.Title == "" && article.PreviewText == "" && cover == "" {
		return nil
	}
	return &domain.Article{
		Title:       article.Title,
		PreviewText: article.PreviewText,
		CoverImage:  cover,
	}
}

// normalizeDate prefers the epoch timestamp over the textual creation date.
func normalizeDate(timestamp *int64, createdAt string) *time.Time {
	if timestamp != nil {
		t := time.Unix(*timestamp, 0).UTC()
		return &t
	}
	createdAt = strings.TrimSpace(createdAt)
	if createdAt == "" {
		return nil
	}
	layouts := []string{
		time.RFC3339,
		time.RubyDate,
		time.RFC1123,
		"2006-01-02 15:04:05 -0700",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, createdAt); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func firstNonEmpty(item *mediaItem, extractors []func(*mediaItem) string) string {
	for _, extract := range extractors {
		if v := strings.TrimSpace(extract(item)); v != "" {
			return v
		}
	}
	return ""
}

// textFromOEmbedHTML pulls plain text out of the embedded markup the oEmbed
// endpoint returns: the first paragraph block, tags stripped, entities
// decoded.
func textFromOEmbedHTML(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	raw := html
	if match := paragraphBlock.FindStringSubmatch(html); match != nil {
		raw = match[1]
	}
	raw = lineBreakTag.ReplaceAllString(raw, "\n")
	raw = anchorTag.ReplaceAllString(raw, "")
	raw = anyTag.ReplaceAllString(raw, "")
	return strings.TrimSpace(decodeEntities(raw))
}

var (
	paragraphBlock = regexp.MustCompile(`(?is)<p[^>]*>(.*?)</p>`)
	lineBreakTag   = regexp.MustCompile(`(?i)<br\s*/?>`)
	anchorTag      = regexp.MustCompile(`(?i)</?a[^>]*>`)
	anyTag         = regexp.MustCompile(`<[^>]+>`)
)

func decodeEntities(text string) string {
	replacer := strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&amp;", "&",
	)
	return replacer.Replace(text)
}
