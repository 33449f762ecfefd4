// Package render turns a resolved post tree into the HTML document the
// capture pipeline screenshots. The visual templating itself is a
// collaborator of the core; this implementation is intentionally small but
// honors the capture contract: the document exposes #capture-root,
// #tweet-card, .media-item and .video-badge markers.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/iconidentify/tweetframe/internal/domain"
)

// Options are the card layout toggles.
type Options struct {
	IncludeMedia          bool
	IncludeShared         bool
	IncludeSharedMedia    bool
	SeparateShared        bool
	StackMultiPhoto       bool
	StackPhotoGap         bool
	IncludeReplyChain     bool
	SelectedMediaKeys     []string
	MediaSelectionEnabled bool
	ManualText            string
}

// Input is one render invocation.
type Input struct {
	Tree         *domain.PostTree
	Width        int
	BodyFontSize int
	UIFontSize   int
	Theme        string
	Locale       string
	Options      Options
}

// Renderer produces the card document for a post tree.
type Renderer interface {
	Render(input Input) (string, error)
}

// CardRenderer is the built-in html/template implementation.
type CardRenderer struct {
	tmpl *template.Template
}

// NewCardRenderer parses the card template.
func NewCardRenderer() (*CardRenderer, error) {
	tmpl, err := template.New("card").Parse(cardTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse card template: %w", err)
	}
	return &CardRenderer{tmpl: tmpl}, nil
}

// Render builds the card document.
func (r *CardRenderer) Render(input Input) (string, error) {
	if input.Tree == nil {
		return "", fmt.Errorf("render: nil post tree")
	}
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, buildViewModel(input)); err != nil {
		return "", fmt.Errorf("execute card template: %w", err)
	}
	return buf.String(), nil
}

// maxPhotosPerPost bounds the photo grid like the client UI does.
const maxPhotosPerPost = 4

type mediaView struct {
	Key      string
	URL      string
	IsVideo  bool
	IsGif    bool
	Thumb    string
	HasThumb bool
}

type postView struct {
	Name           string
	Handle         string
	AvatarURL      string
	Text           string
	Timestamp      string
	Source         string
	Photos         []mediaView
	PhotoGridClass string
	Videos         []mediaView
	Article        *domain.Article
	Kind           string
}

type cardView struct {
	Width          int
	BodyFontSize   int
	UIFontSize     int
	Dark           bool
	Root           postView
	Shared         *postView
	SeparateShared bool
	ReplyChain     []postView
	Stats          domain.Stats
}

// viewBuilder carries the per-render state shared by every post block.
type viewBuilder struct {
	opts       Options
	selected   map[string]bool
	dateLayout string
}

func buildViewModel(input Input) cardView {
	opts := input.Options
	tree := input.Tree

	b := viewBuilder{opts: opts, dateLayout: localeDateLayout(input.Locale)}
	if opts.MediaSelectionEnabled {
		b.selected = make(map[string]bool, len(opts.SelectedMediaKeys))
		for _, key := range opts.SelectedMediaKeys {
			b.selected[key] = true
		}
	}

	view := cardView{
		Width:        input.Width,
		BodyFontSize: input.BodyFontSize,
		UIFontSize:   input.UIFontSize,
		Dark:         input.Theme == "slate",
		Root:         b.postView(&tree.Post, "main", opts.IncludeMedia),
		Stats:        tree.Stats,
	}
	if opts.ManualText != "" {
		view.Root.Text = opts.ManualText
	}
	if tree.Shared != nil && opts.IncludeShared {
		shared := b.postView(&tree.Shared.Post, "shared", opts.IncludeMedia && opts.IncludeSharedMedia)
		shared.Kind = string(tree.Shared.Kind)
		view.Shared = &shared
		view.SeparateShared = opts.SeparateShared
	}
	if opts.IncludeReplyChain {
		for i := range tree.ReplyChain {
			contextKey := fmt.Sprintf("reply-%d", i)
			view.ReplyChain = append(view.ReplyChain, b.postView(&tree.ReplyChain[i], contextKey, opts.IncludeMedia))
		}
	}
	return view
}

func (b viewBuilder) postView(post *domain.Post, contextKey string, includeMedia bool) postView {
	view := postView{
		Name:      post.Author.Name,
		Handle:    post.Author.Handle,
		AvatarURL: post.Author.AvatarURL,
		Text:      post.Text,
		Source:    post.Source,
		Article:   post.Article,
	}
	if post.CreatedAt != nil {
		view.Timestamp = post.CreatedAt.Format(b.dateLayout)
	}
	if !includeMedia {
		return view
	}
	for i, photo := range post.Photos {
		key := fmt.Sprintf("%s-photo-%d", contextKey, i)
		if b.selected != nil && !b.selected[key] {
			continue
		}
		view.Photos = append(view.Photos, mediaView{Key: key, URL: photo.URL})
		if len(view.Photos) >= maxPhotosPerPost {
			break
		}
	}
	view.PhotoGridClass = b.photoGridClass(len(view.Photos))
	for i, video := range post.Videos {
		key := fmt.Sprintf("%s-video-%d", contextKey, i)
		if b.selected != nil && !b.selected[key] {
			continue
		}
		thumb := video.ThumbnailURL
		view.Videos = append(view.Videos, mediaView{
			Key:      key,
			URL:      video.URL,
			IsVideo:  true,
			IsGif:    video.IsGif,
			Thumb:    thumb,
			HasThumb: strings.TrimSpace(thumb) != "",
		})
	}
	return view
}

// photoGridClass picks the photo layout: a vertical stack when requested for
// multi-photo posts (tight when the gap is off), a count-sized grid otherwise.
func (b viewBuilder) photoGridClass(count int) string {
	if b.opts.StackMultiPhoto && count >= 2 {
		if b.opts.StackPhotoGap {
			return "media-grid-vertical"
		}
		return "media-grid-vertical media-grid-vertical-tight"
	}
	if count > maxPhotosPerPost {
		count = maxPhotosPerPost
	}
	return fmt.Sprintf("count-%d", count)
}

// localeDateLayout maps a BCP 47 tag onto a timestamp layout. The corpus has
// no date localization library, so this covers the locales the client offers
// and falls back to English.
func localeDateLayout(locale string) string {
	lang := strings.ToLower(locale)
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	switch lang {
	case "ko":
		return "2006년 1월 2일 15:04"
	case "ja":
		return "2006年1月2日 15:04"
	case "zh":
		return "2006年1月2日 15:04"
	default:
		return "Jan 2, 2006 15:04"
	}
}
