package library

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
)

// DirSink saves tiles as files in a local directory, the local stand-in for
// a photo library. Existing files are never overwritten.
type DirSink struct {
	Dir     string
	Format  Format
	Quality int
}

// NewDirSink returns a sink writing format files into dir.
func NewDirSink(dir string, format Format, quality int) *DirSink {
	return &DirSink{Dir: dir, Format: format, Quality: quality}
}

// Path returns where a tile with the given name is written.
func (s *DirSink) Path(name string) string {
	return filepath.Join(s.Dir, name+s.Format.Ext())
}

// Save writes img to Path(name), creating the directory if needed. It fails
// if the file already exists, even when another save creates it concurrently.
func (s *DirSink) Save(ctx context.Context, name string, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" || filepath.Base(name) != name {
		return fmt.Errorf("invalid tile name %q", name)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// O_EXCL makes the existence check and the create one step.
	path := s.Path(name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s already exists", path)
		}
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := s.Format.Encoder(s.Quality)(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
