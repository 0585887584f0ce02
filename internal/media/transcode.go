package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/citywatch-app/citywatch/internal/model"
)

// Transcoder normalizes a staged upload into the canonical output format
// for its media class. Implementations are black boxes: they read inPath,
// write outPath, and fail otherwise.
type Transcoder interface {
	Transcode(ctx context.Context, class model.MediaType, inPath, outPath string) error
}

// CLITranscoder shells out to ImageMagick for images and FFmpeg for
// videos. The caller bounds execution through ctx; on cancellation the
// subprocess is killed.
type CLITranscoder struct {
	ImageMaxWidth  int
	ImageMaxHeight int
	ImageQuality   int
	VideoMaxWidth  int
	VideoMaxHeight int
	VideoBitrate   string
}

// Transcode runs the tool for the media class.
func (t *CLITranscoder) Transcode(ctx context.Context, class model.MediaType, inPath, outPath string) error {
	switch class {
	case model.MediaImage:
		// Fit within the bound (shrink only), re-encode, strip metadata.
		return t.run(ctx, "convert", inPath,
			"-resize", fmt.Sprintf("%dx%d>", t.ImageMaxWidth, t.ImageMaxHeight),
			"-quality", fmt.Sprintf("%d", t.ImageQuality),
			"-strip", outPath)
	case model.MediaVideo:
		return t.run(ctx, "ffmpeg", "-i", inPath,
			"-c:v", "libx264", "-preset", "fast", "-crf", "23",
			"-b:v", t.VideoBitrate,
			"-vf", fmt.Sprintf("scale='min(%d,iw)':'min(%d,ih)':force_original_aspect_ratio=decrease",
				t.VideoMaxWidth, t.VideoMaxHeight),
			"-c:a", "aac", "-b:a", "128k",
			"-movflags", "+faststart",
			"-y", outPath)
	default:
		return fmt.Errorf("transcode: unknown media class %q", class)
	}
}

// run executes the tool, folding captured stderr into the error on failure.
func (t *CLITranscoder) run(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer
	command := exec.CommandContext(ctx, name, args...)
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return fmt.Errorf("%s %s: %w (stderr: %s)",
			name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
