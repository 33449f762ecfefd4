package downloader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iconidentify/tweetframe/internal/domain"
)

func testFetcher() *HTTPFetcher {
	f := NewHTTPFetcher(5*time.Second, "test-agent", slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.retry.InitialDelay = time.Millisecond
	f.retry.MaxDelay = time.Millisecond
	return f
}

func TestFetchToFile(t *testing.T) {
	payload := []byte("not really an mp4 but bytes nonetheless")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "test-agent" {
			t.Errorf("User-Agent = %q", got)
		}
		if got := r.Header.Get("Referer"); got == "" {
			t.Error("Referer header missing")
		}
		w.Header().Set("Content-Type", "video/mp4")
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path, err := testFetcher().FetchToFile(context.Background(), srv.URL+"/clip", dir)
	if err != nil {
		t.Fatalf("FetchToFile: %v", err)
	}
	if filepath.Ext(path) != ".mp4" {
		t.Errorf("path = %q, want .mp4 extension", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(payload) {
		t.Error("downloaded bytes do not match")
	}
}

func TestFetchToFileRetriesTransientFailure(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("second try"))
	}))
	defer srv.Close()

	path, err := testFetcher().FetchToFile(context.Background(), srv.URL, t.TempDir())
	if err != nil {
		t.Fatalf("FetchToFile: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second try" {
		t.Error("downloaded bytes do not match the retried response")
	}
}

func TestFetchToFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-2xx status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := testFetcher().FetchToFile(context.Background(), srv.URL, t.TempDir())
			if !errors.Is(err, domain.ErrMediaDownloadFailed) {
				t.Fatalf("err = %v, want ErrMediaDownloadFailed", err)
			}
		})
	}
}

func TestGuessExtension(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		contentType string
		want        string
	}{
		{"content type wins", "https://e/x.gif", "video/mp4", ".mp4"},
		{"gif content type", "https://e/x", "image/gif", ".gif"},
		{"webm content type", "https://e/x", "video/webm; codecs=vp9", ".webm"},
		{"quicktime", "https://e/x", "video/quicktime", ".mov"},
		{"url sniff gif", "https://e/anim.gif?tag=1", "application/octet-stream", ".gif"},
		{"url sniff webm", "https://e/clip.webm", "", ".webm"},
		{"default", "https://e/clip", "", ".mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := guessExtension(tt.url, tt.contentType); got != tt.want {
				t.Errorf("guessExtension(%q, %q) = %q, want %q", tt.url, tt.contentType, got, tt.want)
			}
		})
	}
}
