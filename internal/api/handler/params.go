package handler

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/iconidentify/tweetframe/internal/domain"
	"github.com/iconidentify/tweetframe/internal/render"
)

const (
	defaultWidth        = 1080
	defaultBodyFontSize = 105
	defaultUIFontSize   = 95
	defaultLegacyFont   = 100
	defaultScale        = 2
	defaultLocale       = "ko-KR"

	maxManualTextLen = 2000
	maxMediaKeys     = 300
)

var mediaKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9-]{3,120}$`)

// renderParams carries everything the card and capture endpoints share.
type renderParams struct {
	URL          string
	Width        int
	BodyFontSize int
	UIFontSize   int
	Scale        float64
	Locale       string
	Theme        string
	Fit          domain.FitMode
	ComposeVideo bool
	Options      render.Options
}

// paramsFromQuery parses the card endpoint's query string. Out-of-range
// numbers clamp, unparseable values fall back to defaults, and unknown
// theme/fit values normalize to the default rather than erroring.
func paramsFromQuery(q url.Values) renderParams {
	legacy := 0.0
	hasLegacy := false
	if q.Has("fontSize") {
		legacy = clampNumber(parseQueryNumber(q.Get("fontSize"), defaultLegacyFont), 60, 180)
		hasLegacy = true
	}
	bodyFallback, uiFallback := float64(defaultBodyFontSize), float64(defaultUIFontSize)
	if hasLegacy {
		bodyFallback, uiFallback = legacy, legacy
	}

	return renderParams{
		URL:          strings.TrimSpace(q.Get("url")),
		Width:        int(clampNumber(parseQueryNumber(q.Get("width"), defaultWidth), 420, 1080)),
		BodyFontSize: int(clampNumber(parseQueryNumber(q.Get("bodyFontSize"), bodyFallback), 60, 180)),
		UIFontSize:   int(clampNumber(parseQueryNumber(q.Get("uiFontSize"), uiFallback), 60, 180)),
		Scale:        clampNumber(parseQueryNumber(q.Get("scale"), defaultScale), 1, 3),
		Locale:       parseLocale(q.Get("locale")),
		Theme:        parseTheme(q.Get("theme")),
		Fit:          parseFit(q.Get("mediaFit")),
		ComposeVideo: parseQueryBool(q, "composeVideo", true),
		Options: render.Options{
			IncludeMedia:          parseQueryBool(q, "includeMedia", true),
			IncludeShared:         parseQueryBool(q, "includeRetweet", true),
			IncludeSharedMedia:    parseQueryBool(q, "includeRetweetMedia", true),
			SeparateShared:        parseQueryBool(q, "separateShared", false),
			StackMultiPhoto:       parseQueryBool(q, "stackMultiPhoto", false),
			StackPhotoGap:         parseQueryBool(q, "stackPhotoGap", true),
			IncludeReplyChain:     parseQueryBool(q, "includeReplyThread", false),
			SelectedMediaKeys:     sanitizeMediaKeys(strings.Split(q.Get("selectedMediaKeys"), ",")),
			MediaSelectionEnabled: parseQueryBool(q, "mediaSelectionEnabled", false),
			ManualText:            parseManualText(q.Get("manualText")),
		},
	}
}

// captureRequest is the capture endpoint's JSON body. Numeric and boolean
// fields are raw because clients send them as numbers, strings, or booleans
// interchangeably.
type captureRequest struct {
	URL                   string          `json:"url"`
	Width                 json.RawMessage `json:"width"`
	FontSize              json.RawMessage `json:"fontSize"`
	BodyFontSize          json.RawMessage `json:"bodyFontSize"`
	UIFontSize            json.RawMessage `json:"uiFontSize"`
	Scale                 json.RawMessage `json:"scale"`
	Locale                string          `json:"locale"`
	Theme                 string          `json:"theme"`
	MediaFit              string          `json:"mediaFit"`
	ComposeVideo          json.RawMessage `json:"composeVideo"`
	IncludeMedia          json.RawMessage `json:"includeMedia"`
	IncludeRetweet        json.RawMessage `json:"includeRetweet"`
	IncludeRetweetMedia   json.RawMessage `json:"includeRetweetMedia"`
	SeparateShared        json.RawMessage `json:"separateShared"`
	StackMultiPhoto       json.RawMessage `json:"stackMultiPhoto"`
	StackPhotoGap         json.RawMessage `json:"stackPhotoGap"`
	IncludeReplyThread    json.RawMessage `json:"includeReplyThread"`
	SelectedMediaKeys     json.RawMessage `json:"selectedMediaKeys"`
	MediaSelectionEnabled json.RawMessage `json:"mediaSelectionEnabled"`
	ManualText            string          `json:"manualText"`
}

func paramsFromBody(body captureRequest) renderParams {
	bodyFallback, uiFallback := float64(defaultBodyFontSize), float64(defaultUIFontSize)
	if legacy, ok := flexNumber(body.FontSize); ok {
		clamped := clampNumber(legacy, 60, 180)
		bodyFallback, uiFallback = clamped, clamped
	}

	return renderParams{
		URL:          strings.TrimSpace(body.URL),
		Width:        int(clampNumber(flexNumberOr(body.Width, defaultWidth), 420, 1080)),
		BodyFontSize: int(clampNumber(flexNumberOr(body.BodyFontSize, bodyFallback), 60, 180)),
		UIFontSize:   int(clampNumber(flexNumberOr(body.UIFontSize, uiFallback), 60, 180)),
		Scale:        clampNumber(flexNumberOr(body.Scale, defaultScale), 1, 3),
		Locale:       parseLocale(body.Locale),
		Theme:        parseTheme(body.Theme),
		Fit:          parseFit(body.MediaFit),
		ComposeVideo: flexBool(body.ComposeVideo, true),
		Options: render.Options{
			IncludeMedia:          flexBool(body.IncludeMedia, true),
			IncludeShared:         flexBool(body.IncludeRetweet, true),
			IncludeSharedMedia:    flexBool(body.IncludeRetweetMedia, true),
			SeparateShared:        flexBool(body.SeparateShared, false),
			StackMultiPhoto:       flexBool(body.StackMultiPhoto, false),
			StackPhotoGap:         flexBool(body.StackPhotoGap, true),
			IncludeReplyChain:     flexBool(body.IncludeReplyThread, false),
			SelectedMediaKeys:     sanitizeMediaKeys(flexKeyList(body.SelectedMediaKeys)),
			MediaSelectionEnabled: flexBool(body.MediaSelectionEnabled, false),
			ManualText:            parseManualText(body.ManualText),
		},
	}
}

func clampNumber(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func parseQueryNumber(s string, fallback float64) float64 {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseQueryBool(q url.Values, key string, fallback bool) bool {
	if !q.Has(key) {
		return fallback
	}
	return boolFromString(q.Get(key), fallback)
}

func boolFromString(s string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}

// flexNumber accepts a JSON number or a numeric string.
func flexNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

func flexNumberOr(raw json.RawMessage, fallback float64) float64 {
	if v, ok := flexNumber(raw); ok {
		return v
	}
	return fallback
}

// flexBool accepts a JSON bool, the numbers 1/0, or a truthy/falsy string.
func flexBool(raw json.RawMessage, fallback bool) bool {
	if len(raw) == 0 {
		return fallback
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		switch n {
		case 1:
			return true
		case 0:
			return false
		}
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return boolFromString(s, fallback)
	}
	return fallback
}

// flexKeyList accepts a JSON string array or a comma-separated string.
func flexKeyList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
		return strings.Split(s, ",")
	}
	return nil
}

// sanitizeMediaKeys trims, validates, dedupes, and caps the key list.
func sanitizeMediaKeys(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if !mediaKeyPattern.MatchString(key) || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
		if len(out) >= maxMediaKeys {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseTheme(theme string) string {
	if theme == "slate" {
		return "slate"
	}
	return "paper"
}

func parseFit(fit string) domain.FitMode {
	if strings.ToLower(strings.TrimSpace(fit)) == "contain" {
		return domain.FitContain
	}
	return domain.FitCover
}

func parseLocale(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return defaultLocale
	}
	return locale
}

func parseManualText(text string) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if runes := []rune(text); len(runes) > maxManualTextLen {
		text = string(runes[:maxManualTextLen])
	}
	return text
}
