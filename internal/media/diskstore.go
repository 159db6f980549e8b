package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnsupportedFormat is returned for uploads that are not PNG or JPEG.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// DiskStore keeps uploaded image files in a single local directory, one
// file per upload, named by a fresh uuid so concurrent uploads never
// collide.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("upload directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) Dir() string {
	return s.dir
}

// Save writes the upload to disk and returns its generated filename.
func (s *DiskStore) Save(data []byte, contentType string) (string, error) {
	ext, err := extensionFor(contentType)
	if err != nil {
		return "", err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate upload filename: %w", err)
	}

	filename := id.String() + ext
	if err := os.WriteFile(filepath.Join(s.dir, filename), data, 0o644); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}

	return filename, nil
}

// Sweep deletes files in the upload directory that are not in the
// referenced set and were last modified before the cutoff. It returns how
// many files were removed. The referenced set holds src values of the form
// "/uploads/<filename>".
func (s *DiskStore) Sweep(referenced map[string]struct{}, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read upload directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := referenced["/uploads/"+entry.Name()]; ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("remove orphaned upload %s: %w", entry.Name(), err)
		}
		removed++
	}

	return removed, nil
}

func extensionFor(contentType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/png":
		return ".png", nil
	case "image/jpg", "image/jpeg":
		return ".jpg", nil
	default:
		return "", ErrUnsupportedFormat
	}
}
