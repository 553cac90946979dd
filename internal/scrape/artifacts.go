package scrape

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

var unsafeFragmentRe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitizeURLFragment turns a profile URL into a filesystem-safe stem.
func sanitizeURLFragment(url string) string {
	s := strings.TrimPrefix(url, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	s = unsafeFragmentRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}

// writeArtifacts dumps diagnostic markup/screenshot for a failed or
// walled fetch. Strictly fire-and-forget: every failure here is logged
// and swallowed so diagnostics never mask the original error.
func (f *Fetcher) writeArtifacts(url, kind, html string, png []byte) {
	if f.opts.ArtifactDir == "" {
		return
	}
	if html == "" && len(png) == 0 {
		return
	}

	if err := os.MkdirAll(f.opts.ArtifactDir, 0o755); err != nil {
		f.log.Warn("artifact dir create failed", zap.String("dir", f.opts.ArtifactDir), zap.Error(err))
		return
	}

	stem := time.Now().UTC().Format("20060102T150405") + "_" + sanitizeURLFragment(url) + "_" + kind

	if html != "" {
		path := filepath.Join(f.opts.ArtifactDir, stem+".html")
		if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
			f.log.Warn("artifact write failed", zap.String("path", path), zap.Error(err))
		} else {
			f.log.Info("diagnostic artifact written", zap.String("path", path))
		}
	}
	if len(png) > 0 {
		path := filepath.Join(f.opts.ArtifactDir, stem+".png")
		if err := os.WriteFile(path, png, 0o644); err != nil {
			f.log.Warn("artifact write failed", zap.String("path", path), zap.Error(err))
		} else {
			f.log.Info("diagnostic artifact written", zap.String("path", path))
		}
	}
}
