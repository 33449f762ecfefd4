package statusref

import (
	"errors"
	"testing"

	"github.com/iconidentify/tweetframe/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantID     string
		wantHandle string
		wantURL    string
	}{
		{
			name:    "bare numeric id",
			input:   "1234567890123456789",
			wantID:  "1234567890123456789",
			wantURL: "https://x.com/i/status/1234567890123456789",
		},
		{
			name:    "bare id with surrounding whitespace",
			input:   "  12345678  ",
			wantID:  "12345678",
			wantURL: "https://x.com/i/status/12345678",
		},
		{
			name:       "canonical x.com url",
			input:      "https://x.com/someuser/status/1234567890123456789",
			wantID:     "1234567890123456789",
			wantHandle: "someuser",
			wantURL:    "https://x.com/someuser/status/1234567890123456789",
		},
		{
			name:       "twitter.com url",
			input:      "https://twitter.com/someuser/status/1234567890",
			wantID:     "1234567890",
			wantHandle: "someuser",
			wantURL:    "https://twitter.com/someuser/status/1234567890",
		},
		{
			name:       "scheme omitted",
			input:      "x.com/someuser/status/1234567890",
			wantID:     "1234567890",
			wantHandle: "someuser",
			wantURL:    "https://x.com/someuser/status/1234567890",
		},
		{
			name:       "www prefix stripped",
			input:      "https://www.twitter.com/someuser/status/1234567890",
			wantID:     "1234567890",
			wantHandle: "someuser",
			wantURL:    "https://www.twitter.com/someuser/status/1234567890",
		},
		{
			name:       "mobile host",
			input:      "https://mobile.twitter.com/someuser/status/1234567890",
			wantID:     "1234567890",
			wantHandle: "someuser",
		},
		{
			name:       "fxtwitter mirror",
			input:      "https://fxtwitter.com/someuser/status/1234567890",
			wantID:     "1234567890",
			wantHandle: "someuser",
		},
		{
			name:       "vxtwitter mirror",
			input:      "https://vxtwitter.com/someuser/status/1234567890",
			wantID:     "1234567890",
			wantHandle: "someuser",
		},
		{
			name:   "i status path carries no handle",
			input:  "https://x.com/i/status/1234567890",
			wantID: "1234567890",
		},
		{
			name:   "web status path carries no handle",
			input:  "https://twitter.com/i/web/status/1234567890",
			wantID: "1234567890",
		},
		{
			name:       "trailing photo segment",
			input:      "https://x.com/someuser/status/1234567890/photo/1",
			wantID:     "1234567890",
			wantHandle: "someuser",
		},
		{
			name:       "id with trailing junk in the same segment",
			input:      "https://x.com/someuser/status/1234567890abc",
			wantID:     "1234567890",
			wantHandle: "someuser",
		},
		{
			name:       "query string preserved in canonical url",
			input:      "https://x.com/someuser/status/1234567890?s=20",
			wantID:     "1234567890",
			wantHandle: "someuser",
			wantURL:    "https://x.com/someuser/status/1234567890?s=20",
		},
		{
			name:   "overlong handle segment ignored",
			input:  "https://x.com/thishandleiswaytoolongtobevalid/status/1234567890",
			wantID: "1234567890",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if ref.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", ref.ID, tt.wantID)
			}
			if ref.Handle != tt.wantHandle {
				t.Errorf("Handle = %q, want %q", ref.Handle, tt.wantHandle)
			}
			if tt.wantURL != "" && ref.URL != tt.wantURL {
				t.Errorf("URL = %q, want %q", ref.URL, tt.wantURL)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantReason domain.RefReason
	}{
		{"empty input", "", domain.RefEmpty},
		{"whitespace only", "   ", domain.RefEmpty},
		{"unsupported host", "https://example.com/user/status/1234567890", domain.RefBadHost},
		{"no status segment", "https://x.com/someuser", domain.RefNoStatusID},
		{"status without id", "https://x.com/someuser/status", domain.RefNoStatusID},
		{"id too short", "https://x.com/someuser/status/1234", domain.RefBadID},
		{"id not numeric", "https://x.com/someuser/status/abcdef12345", domain.RefBadID},
		{"bare id too short", "1234567", domain.RefBadHost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tt.input)
			}
			var refErr *domain.RefError
			if !errors.As(err, &refErr) {
				t.Fatalf("Parse(%q) error = %T, want *domain.RefError", tt.input, err)
			}
			if refErr.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", refErr.Reason, tt.wantReason)
			}
		})
	}
}
