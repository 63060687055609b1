package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"trainhub/pkg/models"
)

// Backend is the swappable persistence layer for images and their
// metadata. Paths are relative to the backend's root; the backend
// chooses how they map onto real storage.
type Backend interface {
	SaveImage(ctx context.Context, imageBytes []byte, relPath string) (string, error)
	SaveMetadata(ctx context.Context, sample models.Sample, relPath string) (string, error)
	ListImages(ctx context.Context, prefix string) ([]string, error)
	PathExists(ctx context.Context, relPath string) bool
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// LocalBackend stores images and metadata under a base directory on
// the local filesystem.
type LocalBackend struct {
	baseDir string
}

func NewLocalBackend(baseDir string) (*LocalBackend, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create dataset dir: %w", err)
	}
	return &LocalBackend{baseDir: baseDir}, nil
}

// BaseDir returns the dataset root directory.
func (b *LocalBackend) BaseDir() string { return b.baseDir }

func (b *LocalBackend) resolve(relPath string) (string, error) {
	full := filepath.Join(b.baseDir, relPath)
	rel, err := filepath.Rel(b.baseDir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid path %q: escapes dataset dir", relPath)
	}
	return full, nil
}

func (b *LocalBackend) SaveImage(ctx context.Context, imageBytes []byte, relPath string) (string, error) {
	full, err := b.resolve(relPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}
	if err := os.WriteFile(full, imageBytes, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return full, nil
}

func (b *LocalBackend) SaveMetadata(ctx context.Context, sample models.Sample, relPath string) (string, error) {
	full, err := b.resolve(relPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create metadata dir: %w", err)
	}

	data, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}
	return full, nil
}

func (b *LocalBackend) ListImages(ctx context.Context, prefix string) ([]string, error) {
	root, err := b.resolve(prefix)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var images []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if imageExtensions[strings.ToLower(filepath.Ext(path))] {
			rel, err := filepath.Rel(b.baseDir, path)
			if err != nil {
				return err
			}
			images = append(images, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", prefix, err)
	}
	return images, nil
}

func (b *LocalBackend) PathExists(ctx context.Context, relPath string) bool {
	full, err := b.resolve(relPath)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}
