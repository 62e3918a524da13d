package pipeline

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
)

// YTDLP shells out to yt-dlp to fetch a social media post's video. Each
// download gets a private temp directory and a unique output prefix so the
// produced file can be identified unambiguously.
type YTDLP struct {
	// Bin overrides the yt-dlp binary name (tests, packaging).
	Bin string
	// Dir is the parent for per-download temp directories.
	Dir string
}

// formatSelector prefers an mp4 the hosting API accepts without transcoding.
const formatSelector = "bv*[ext=mp4]+ba[ext=m4a]/b[ext=mp4]/b"

// Download fetches url into a temp file and returns its path plus a cleanup
// function that removes the whole temp directory. Exactly one output file is
// expected; anything else is an error. Errors never abort the caller's batch.
func (d *YTDLP) Download(ctx context.Context, url string) (string, func(), error) {
	bin := d.Bin
	if bin == "" {
		bin = "yt-dlp"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return "", nil, fmt.Errorf("downloader unavailable: %w", err)
	}
	parent := d.Dir
	if parent == "" {
		parent = os.TempDir()
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", nil, fmt.Errorf("mkdir data dir: %w", err)
	}
	dir, err := os.MkdirTemp(parent, "media-")
	if err != nil {
		return "", nil, fmt.Errorf("mkdir temp: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	prefix := uuid.NewString()
	args := []string{
		"-f", formatSelector,
		"--no-playlist",
		"--no-progress",
		"-o", filepath.Join(dir, prefix+".%(ext)s"),
		url,
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("yt-dlp: %w: %s", err, tail(out))
	}
	matches, err := filepath.Glob(filepath.Join(dir, prefix+".*"))
	if err != nil || len(matches) != 1 {
		cleanup()
		return "", nil, fmt.Errorf("yt-dlp: expected exactly one output file, found %d", len(matches))
	}
	return matches[0], cleanup, nil
}

// tail keeps the last chunk of subprocess output for error context.
func tail(b []byte) string {
	const keep = 400
	if len(b) <= keep {
		return string(b)
	}
	return "..." + string(b[len(b)-keep:])
}
