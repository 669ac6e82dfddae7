// Package media models the device-side photo source. The camera/gallery picker
// itself lives outside this codebase; everything here works with the local
// image handles it produces.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrPermissionDenied signals that the user declined camera/library access.
var ErrPermissionDenied = errors.New("permission to access camera was denied")

// ErrCanceled signals that the user dismissed the picker without choosing.
var ErrCanceled = errors.New("image selection canceled")

// Image is a device-local photo handle. It has no durable remote identity
// until the uploader exchanges it for a URL.
type Image interface {
	// Name is the filename sent as the multipart part name.
	Name() string
	// MIME is the content type of the image data.
	MIME() string
	// Open returns a fresh reader over the image bytes.
	Open() (io.ReadCloser, error)
}

// Acquirer produces one local image per invocation, or reports why it could not.
type Acquirer interface {
	Acquire(ctx context.Context) (Image, error)
}

// FileImage is an Image backed by a file on disk.
type FileImage struct {
	Path string
}

// Name returns the base name of the underlying file.
func (f FileImage) Name() string { return filepath.Base(f.Path) }

// MIME guesses the content type from the file extension, defaulting to JPEG
// since that is what the camera produces.
func (f FileImage) MIME() string {
	switch strings.ToLower(filepath.Ext(f.Path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// Open opens the underlying file. OS-level permission errors surface as
// ErrPermissionDenied so callers treat them like a declined camera prompt.
func (f FileImage) Open() (io.ReadCloser, error) {
	rc, err := os.Open(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, f.Path)
		}
		return nil, err
	}
	return rc, nil
}

// MemoryImage is an in-memory Image, used by tests and the stub tooling.
type MemoryImage struct {
	FileName string
	Type     string
	Data     []byte
}

func (m MemoryImage) Name() string { return m.FileName }

func (m MemoryImage) MIME() string {
	if m.Type == "" {
		return "image/jpeg"
	}
	return m.Type
}

func (m MemoryImage) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(string(m.Data))), nil
}

// FileAcquirer satisfies Acquirer by reading the next path from a fixed list.
// The CLI uses it so --image flags play the role of the camera.
type FileAcquirer struct {
	Paths []string
	next  int
}

// Acquire returns the next configured file as an Image. Running out of paths
// maps to ErrCanceled, the same signal a dismissed picker produces.
func (a *FileAcquirer) Acquire(ctx context.Context) (Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.next >= len(a.Paths) {
		return nil, ErrCanceled
	}
	path := a.Paths[a.next]
	a.next++
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, err
	}
	return FileImage{Path: path}, nil
}
