package compose

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// PublishError reports a failed artifact write. It is distinct from store
// errors on purpose: by the time it occurs the page is already marked
// published in the database, and the admin retries the file write rather
// than rolling anything back.
type PublishError struct {
	Slug string
	Path string
	Err  error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %q: writing %s: %v", e.Slug, e.Path, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Publisher writes composed pages as static HTML artifacts under a single
// output directory.
type Publisher struct {
	dir    string
	logger *slog.Logger
}

// NewPublisher creates a Publisher rooted at dir. The directory is created
// on the first Publish call, not here.
func NewPublisher(logger *slog.Logger, dir string) *Publisher {
	return &Publisher{dir: dir, logger: logger}
}

// Path returns the artifact path a slug publishes to: <dir>/<slug>.html.
func (p *Publisher) Path(slug string) string {
	return filepath.Join(p.dir, slug+".html")
}

// Publish writes html to the slug's artifact path, atomically replacing any
// previous artifact, and returns the path written. Failures come back as a
// *PublishError.
func (p *Publisher) Publish(slug, html string) (string, error) {
	path := p.Path(slug)
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return "", &PublishError{Slug: slug, Path: path, Err: err}
	}
	if err := atomic.WriteFile(path, strings.NewReader(html)); err != nil {
		return "", &PublishError{Slug: slug, Path: path, Err: err}
	}
	p.logger.Info("published page artifact", "slug", slug, "path", path, "bytes", len(html))
	return path, nil
}
