// Package content abstracts the external video storage collaborator.  The
// reservation engine never reads content; it only records the durable
// reference storage hands back, keyed by submission id.
package content

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Storage stores uploaded video content and returns a durable reference.
type Storage interface {
	Save(ctx context.Context, submissionID string, r io.Reader, contentType string) (string, error)
}

// Disk is the development Storage: one file per submission under a local
// directory.  Production swaps in an object-store adapter behind the same
// interface.
type Disk struct {
	dir string
}

// NewDisk returns a disk store rooted at dir, creating it if needed.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir content dir: %w", err)
	}
	return &Disk{dir: dir}, nil
}

func (d *Disk) Save(_ context.Context, submissionID string, r io.Reader, contentType string) (string, error) {
	name := submissionID + extFor(contentType)
	path := filepath.Join(d.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create content file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write content file: %w", err)
	}
	return "file://" + path, nil
}

func extFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "mp4"):
		return ".mp4"
	case strings.Contains(contentType, "webm"):
		return ".webm"
	default:
		return ".bin"
	}
}
