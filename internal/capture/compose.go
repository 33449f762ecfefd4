package capture

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"

	"github.com/iconidentify/tweetframe/internal/config"
	"github.com/iconidentify/tweetframe/internal/domain"
	"github.com/iconidentify/tweetframe/internal/downloader"
)

const stderrTailBytes = 5000

var streamingManifestURL = regexp.MustCompile(`(?i)\.m3u8(\?|$)`)

// Composer overlays a video asset onto a captured still using the external
// ffmpeg encoder.
type Composer struct {
	ffmpegPath string
	fetcher    downloader.MediaFetcher
	logger     *slog.Logger
}

// NewComposer creates a composer. When no explicit binary path is
// configured, ffmpeg must be present in PATH.
func NewComposer(cfg config.CaptureConfig, fetcher downloader.MediaFetcher, logger *slog.Logger) (*Composer, error) {
	ffmpegPath := cfg.FFmpegPath
	if ffmpegPath == "" {
		resolved, err := exec.LookPath("ffmpeg")
		if err != nil {
			return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
		}
		ffmpegPath = resolved
	}
	return &Composer{
		ffmpegPath: ffmpegPath,
		fetcher:    fetcher,
		logger:     logger,
	}, nil
}

// Compose overlays the video at mediaURL into box on the captured still and
// returns the encoded MP4. All working files live in a request-scoped
// temporary directory that is removed regardless of outcome.
//
// Streaming-manifest URLs are handed to the encoder directly; anything else
// is downloaded first. Encoder failure surfaces as domain.ErrCompositionFailed
// so the caller can fall back to the plain still.
func (c *Composer) Compose(ctx context.Context, cardPNG []byte, mediaURL string, box domain.MediaBox, fit domain.FitMode) ([]byte, error) {
	tempDir := filepath.Join(os.TempDir(), "tweetframe-compose-"+uuid.NewString())
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	cardPath := filepath.Join(tempDir, "card.png")
	if err := os.WriteFile(cardPath, cardPNG, 0o644); err != nil {
		return nil, fmt.Errorf("write card still: %w", err)
	}

	mediaInput := mediaURL
	if !streamingManifestURL.MatchString(mediaURL) {
		path, err := c.fetcher.FetchToFile(ctx, mediaURL, tempDir)
		if err != nil {
			return nil, err
		}
		mediaInput = path
	}

	outputPath := filepath.Join(tempDir, "output.mp4")
	args := composeArgs(cardPath, mediaInput, outputPath, box, fit)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.ffmpegPath, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg: %v: %s", domain.ErrCompositionFailed, err, stderrTail(stderr.Bytes()))
	}

	out, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read output: %v", domain.ErrCompositionFailed, err)
	}
	c.logger.Info("composed video", "bytes", len(out), "box_width", box.Width, "box_height", box.Height)
	return out, nil
}

// composeArgs builds the full encoder invocation: loop the still at 30fps,
// transform the video into the box per the fit mode, overlay at the box
// offset, copy audio when present, stop at the shorter stream.
func composeArgs(cardPath, mediaInput, outputPath string, box domain.MediaBox, fit domain.FitMode) []string {
	return []string{
		"-y",
		"-loop", "1",
		"-framerate", "30",
		"-i", cardPath,
		"-i", mediaInput,
		"-filter_complex", composeFilter(box, fit),
		"-map", "[v]",
		"-map", "1:a?",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-movflags", "+faststart",
		"-shortest",
		outputPath,
	}
}

// composeFilter builds the filter graph: pad the still to even dimensions,
// scale/crop (cover) or scale/pad (contain) the video into exactly the box,
// then overlay at the box's top-left offset.
func composeFilter(box domain.MediaBox, fit domain.FitMode) string {
	var transform string
	if fit == domain.FitContain {
		transform = fmt.Sprintf(
			"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black",
			box.Width, box.Height, box.Width, box.Height)
	} else {
		transform = fmt.Sprintf(
			"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
			box.Width, box.Height, box.Width, box.Height)
	}
	return fmt.Sprintf(
		"[0:v]pad=ceil(iw/2)*2:ceil(ih/2)*2:0:0[card];[1:v]%s[vid];[card][vid]overlay=%d:%d:format=auto:shortest=1[v]",
		transform, box.X, box.Y)
}

func stderrTail(b []byte) []byte {
	if len(b) > stderrTailBytes {
		return b[len(b)-stderrTailBytes:]
	}
	return b
}
