package media

import (
	"os"
	"path/filepath"
)

// staging is a per-request scratch directory for raw and transcoded
// bytes. Close removes the whole directory; the pipeline defers it on
// every path so no temp file outlives the ingest call, whichever step
// failed and whether or not the caller is still around.
type staging struct{ dir string }

// newStaging creates a fresh directory under root. Each request gets its
// own, so concurrent uploads never collide.
func newStaging(root string) (*staging, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp(root, "upload-*")
	if err != nil {
		return nil, err
	}
	return &staging{dir: dir}, nil
}

// path returns a file path inside the staging directory.
func (s *staging) path(name string) string { return filepath.Join(s.dir, name) }

// Close removes the staging directory and everything in it.
func (s *staging) Close() error { return os.RemoveAll(s.dir) }
