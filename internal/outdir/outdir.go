package outdir

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"romscribe/internal/gamelist"
	"romscribe/internal/logging"
)

// ErrLocked reports that another run holds the output directory.
var ErrLocked = errors.New("output directory is locked by another run")

// Layout names the paths inside a prepared output directory.
type Layout struct {
	Root      string
	MediaDir  string
	ImagesDir string
}

// NewLayout derives the layout for root.
func NewLayout(root string) Layout {
	media := filepath.Join(root, "media")
	return Layout{
		Root:      root,
		MediaDir:  media,
		ImagesDir: filepath.Join(media, "images"),
	}
}

// DocumentPath is where the game list is written.
func (l Layout) DocumentPath() string {
	return filepath.Join(l.Root, gamelist.FileName)
}

// ImagePath returns the on-disk location for an image file name.
func (l Layout) ImagePath(fileName string) string {
	return filepath.Join(l.ImagesDir, fileName)
}

// ImageRef returns the document-relative reference for an image file name.
func ImageRef(fileName string) string {
	return "./media/images/" + fileName
}

// Prepare removes any existing directory at root and recreates it empty.
// With media set it also creates media/images. A symlink to a directory is
// unlinked and replaced by a real directory; its target is left alone. Any
// other non-directory entry at root is an error and is left untouched.
func Prepare(root string, media bool, logger *slog.Logger) (Layout, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	layout := NewLayout(root)

	info, err := os.Stat(root)
	switch {
	case err == nil && info.IsDir():
		logger.Info("deleting existing output", logging.Path(root))
		if err := os.RemoveAll(root); err != nil {
			return Layout{}, fmt.Errorf("remove %s: %w", root, err)
		}
	case err == nil:
		return Layout{}, fmt.Errorf("prepare %s: exists and is not a directory", root)
	case !errors.Is(err, fs.ErrNotExist):
		return Layout{}, fmt.Errorf("stat %s: %w", root, err)
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return Layout{}, fmt.Errorf("create %s: %w", root, err)
	}
	if media {
		if err := os.MkdirAll(layout.ImagesDir, 0o755); err != nil {
			return Layout{}, fmt.Errorf("create %s: %w", layout.ImagesDir, err)
		}
	}
	logger.Info("created output directory", logging.Path(root), logging.Bool("media", media))
	return layout, nil
}

// Lock takes an exclusive lock guarding root. The lock file lives beside
// root, not inside it, so Prepare can delete root while the lock is held.
// Lock never waits; a held lock returns ErrLocked.
func Lock(root string) (*flock.Flock, error) {
	clean := filepath.Clean(root)
	lockPath := filepath.Join(filepath.Dir(clean), "."+filepath.Base(clean)+".lock")
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", lockPath, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, lockPath)
	}
	return lock, nil
}
