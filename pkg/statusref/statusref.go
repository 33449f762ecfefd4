// Package statusref extracts canonical post identifiers from free-form
// input: a bare numeric id, or a status URL on any accepted platform host.
// It performs no I/O.
package statusref

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/iconidentify/tweetframe/internal/domain"
)

var (
	idPattern     = regexp.MustCompile(`^\d{8,25}$`)
	handlePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)
	leadingDigits = regexp.MustCompile(`^\d+`)
)

// acceptedHosts are the canonical platform domains plus known mirrors.
var acceptedHosts = map[string]bool{
	"x.com":              true,
	"twitter.com":        true,
	"mobile.twitter.com": true,
	"m.twitter.com":      true,
	"fxtwitter.com":      true,
	"fixupx.com":         true,
	"vxtwitter.com":      true,
}

// reservedSegments are path segments that look like handles but never are.
var reservedSegments = map[string]bool{
	"i":   true,
	"web": true,
}

// Ref is a canonical post reference.
type Ref struct {
	// ID is the platform-native numeric post id.
	ID string
	// Handle is the author handle preceding the status segment, when present.
	Handle string
	// URL is the canonicalized original URL.
	URL string
}

// Parse extracts a Ref from free-form input. It accepts a bare numeric id
// (8-25 digits) or a status URL on an accepted host. Failures are reported
// as *domain.RefError carrying the specific rule that failed.
func Parse(input string) (Ref, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Ref{}, domain.NewRefError(domain.RefEmpty, input)
	}

	if idPattern.MatchString(raw) {
		return Ref{
			ID:  raw,
			URL: "https://x.com/i/status/" + raw,
		}, nil
	}

	normalized := raw
	if !strings.HasPrefix(strings.ToLower(normalized), "http://") &&
		!strings.HasPrefix(strings.ToLower(normalized), "https://") {
		normalized = "https://" + normalized
	}

	parsed, err := url.Parse(normalized)
	if err != nil || parsed.Hostname() == "" {
		return Ref{}, domain.NewRefError(domain.RefNotURL, input)
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	if !acceptedHosts[host] {
		return Ref{}, domain.NewRefError(domain.RefBadHost, input)
	}

	segments := splitPath(parsed.Path)
	statusIndex := -1
	for i, segment := range segments {
		if strings.EqualFold(segment, "status") {
			statusIndex = i
			break
		}
	}
	if statusIndex == -1 || statusIndex+1 >= len(segments) {
		return Ref{}, domain.NewRefError(domain.RefNoStatusID, input)
	}

	// The id segment may carry trailing junk ("12345/photo" has already been
	// split; "12345abc" has not) so only the leading digit run counts.
	id := leadingDigits.FindString(segments[statusIndex+1])
	if !idPattern.MatchString(id) {
		return Ref{}, domain.NewRefError(domain.RefBadID, input)
	}

	handle := ""
	if statusIndex > 0 {
		candidate := segments[statusIndex-1]
		if handlePattern.MatchString(candidate) && !reservedSegments[strings.ToLower(candidate)] {
			handle = candidate
		}
	}

	return Ref{
		ID:     id,
		Handle: handle,
		URL:    parsed.String(),
	}, nil
}

func splitPath(path string) []string {
	var out []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			out = append(out, segment)
		}
	}
	return out
}
