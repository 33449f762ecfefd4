package fxtwitter

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var postIDPattern = regexp.MustCompile(`^\d{8,25}$`)

// statusPayload is the envelope returned by the primary metadata API.
// A response only counts as a hit when Code == 200 and Tweet is present.
type statusPayload struct {
	Code  int           `json:"code"`
	Tweet *tweetPayload `json:"tweet"`
}

// tweetPayload is the loosely-typed post object. The upstream has gone
// through several field renames, so reply-parent references are kept as raw
// JSON and interpreted by the extractor tables in chain.go.
type tweetPayload struct {
	ID               json.RawMessage  `json:"id"`
	URL              string           `json:"url"`
	Text             string           `json:"text"`
	RawText          *rawTextPayload  `json:"raw_text"`
	CreatedAt        string           `json:"created_at"`
	CreatedTimestamp *int64           `json:"created_timestamp"`
	Source           string           `json:"source"`
	Author           *authorPayload   `json:"author"`
	Replies          json.RawMessage  `json:"replies"`
	Retweets         json.RawMessage  `json:"retweets"`
	Likes            json.RawMessage  `json:"likes"`
	Bookmarks        json.RawMessage  `json:"bookmarks"`
	Views            json.RawMessage  `json:"views"`
	Media            *mediaPayload    `json:"media"`
	Video            *mediaItem       `json:"video"`
	Article          *articlePayload  `json:"article"`

	// Shared-post relations. Repost aliases are checked before the quote.
	RetweetedTweet  *tweetPayload `json:"retweeted_tweet"`
	RetweetedStatus *tweetPayload `json:"retweeted_status"`
	Retweet         *tweetPayload `json:"retweet"`
	Repost          *tweetPayload `json:"repost"`
	Quote           *tweetPayload `json:"quote"`

	// Reply-parent references, direct id forms.
	InReplyToStatusID    json.RawMessage `json:"in_reply_to_status_id"`
	InReplyToStatusIDStr json.RawMessage `json:"in_reply_to_status_id_str"`
	ReplyingToStatusID   json.RawMessage `json:"replying_to_status_id"`
	ReplyToStatusID      json.RawMessage `json:"reply_to_status_id"`
	ParentTweetID        json.RawMessage `json:"parent_tweet_id"`
	ParentStatusID       json.RawMessage `json:"parent_status_id"`

	// Reply-parent references, nested object forms.
	ReplyingToStatus json.RawMessage `json:"replying_to_status"`
	InReplyToStatus  json.RawMessage `json:"in_reply_to_status"`
	ParentTweet      json.RawMessage `json:"parent_tweet"`
	ParentStatus     json.RawMessage `json:"parent_status"`
	ReplyingTo       json.RawMessage `json:"replying_to"`
}

type rawTextPayload struct {
	Text   string         `json:"text"`
	Facets []facetPayload `json:"facets"`
}

type facetPayload struct {
	Type     string `json:"type"`
	Original string `json:"original"`
}

type authorPayload struct {
	Name       string `json:"name"`
	ScreenName string `json:"screen_name"`
	AvatarURL  string `json:"avatar_url"`
}

type articlePayload struct {
	Title       string `json:"title"`
	PreviewText string `json:"preview_text"`
	CoverMedia  *struct {
		URL       string `json:"url"`
		MediaInfo *struct {
			OriginalImgURL string `json:"original_img_url"`
			URL            string `json:"url"`
		} `json:"media_info"`
	} `json:"cover_media"`
}

type mediaPayload struct {
	Photos []mediaItem `json:"photos"`
	Videos []mediaItem `json:"videos"`
	All    []mediaItem `json:"all"`
}

// mediaItem covers every attachment shape the upstream emits; which fields
// are populated depends on the payload generation.
type mediaItem struct {
	Type            string           `json:"type"`
	URL             string           `json:"url"`
	MediaURL        string           `json:"media_url"`
	MediaURLHTTPS   string           `json:"media_url_https"`
	ImageURL        string           `json:"image_url"`
	Width           json.RawMessage  `json:"width"`
	Height          json.RawMessage  `json:"height"`
	ThumbnailURL    string           `json:"thumbnail_url"`
	PreviewImageURL string           `json:"preview_image_url"`
	Thumbnail       string           `json:"thumbnail"`
	Poster          string           `json:"poster"`
	IsGif           bool             `json:"is_gif"`
	ContentType     string           `json:"content_type"`
	MimeType        string           `json:"mime_type"`
	VideoURL        string           `json:"video_url"`
	VideoURLCamel   string           `json:"videoUrl"`
	VideoURLHD      string           `json:"video_url_hd"`
	VideoURLSD      string           `json:"video_url_sd"`
	SDURL           string           `json:"sd_url"`
	HDURL           string           `json:"hd_url"`
	PlaybackURL     string           `json:"playback_url"`
	PlaybackCamel   string           `json:"playbackUrl"`
	DownloadURL     string           `json:"download_url"`
	DownloadCamel   string           `json:"downloadUrl"`
	Variants        []variantPayload `json:"variants"`
}

type variantPayload struct {
	URL     string          `json:"url"`
	Bitrate json.RawMessage `json:"bitrate"`
}

// oembedPayload is the embed-metadata fallback response.
type oembedPayload struct {
	HTML       string `json:"html"`
	AuthorName string `json:"author_name"`
	AuthorURL  string `json:"author_url"`
	URL        string `json:"url"`
}

// postIDString returns the payload's own id when it is a valid post id.
func (t *tweetPayload) postIDString() string {
	return normalizeID(t.ID)
}

// normalizeID accepts a raw JSON number or string and returns it as a
// canonical post id, or "" when it does not look like one.
func normalizeID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if postIDPattern.MatchString(s) {
			return s
		}
		return ""
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		text := strconv.FormatInt(int64(n), 10)
		if postIDPattern.MatchString(text) {
			return text
		}
	}
	return ""
}

// normalizeCount parses a permissive numeric field (number or numeric
// string) into a count. Absent or malformed values stay nil, never zero.
func normalizeCount(raw json.RawMessage) *int64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		v := int64(n)
		return &v
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			v := int64(f)
			return &v
		}
	}
	return nil
}
