package covers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	"github.com/mrlokans/kobosync/internal/prosa"
)

const contentTypeJPEG = "image/jpeg"

// MaxDimension caps either side of a resized rendition.
const MaxDimension = 2000

// Source fetches original cover images.
type Source interface {
	DownloadCover(ctx context.Context, apiKey, bookID string) (*prosa.Content, error)
}

// Size is the rendition a device asks for. A zero dimension means the
// original image.
type Size struct {
	Width     int
	Height    int
	Greyscale bool
}

func (s Size) resizable() bool {
	return s.Width > 0 && s.Height > 0
}

// bounded scales the size down, keeping its aspect ratio, until both sides
// fit within MaxDimension.
func (s Size) bounded() Size {
	longest := max(s.Width, s.Height)
	if longest <= MaxDimension {
		return s
	}
	scale := float64(MaxDimension) / float64(longest)
	s.Width = max(int(math.Round(float64(s.Width)*scale)), 1)
	s.Height = max(int(math.Round(float64(s.Height)*scale)), 1)
	return s
}

// Image is a cover ready to be served.
type Image struct {
	Data        []byte
	ContentType string
}

// Cache serves covers and keeps resized renditions on disk.
type Cache struct {
	cacheDir string
	source   Source
}

// NewCache creates a new cover cache at the specified directory.
func NewCache(cacheDir string, source Source) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	return &Cache{cacheDir: cacheDir, source: source}, nil
}

// GetCover returns the cover of a book in the requested size. Resized
// renditions are cached; originals always come from the source. When an
// image cannot be resized the original is served.
func (c *Cache) GetCover(ctx context.Context, apiKey, bookID string, size Size) (*Image, error) {
	size = size.bounded()
	if size.resizable() {
		if data, err := os.ReadFile(c.coverPath(bookID, size)); err == nil {
			return &Image{Data: data, ContentType: contentTypeJPEG}, nil
		}
	}

	original, err := c.fetch(ctx, apiKey, bookID)
	if err != nil {
		return nil, err
	}
	if !size.resizable() {
		return original, nil
	}

	resized, err := resize(original.Data, size)
	if err != nil {
		log.Printf("Failed to resize cover of %s to %dx%d: %v", bookID, size.Width, size.Height, err)
		return original, nil
	}

	if err := c.store(c.coverPath(bookID, size), resized); err != nil {
		log.Printf("Failed to cache cover of %s: %v", bookID, err)
	}
	return &Image{Data: resized, ContentType: contentTypeJPEG}, nil
}

// InvalidateCover removes every cached rendition of a book's cover.
func (c *Cache) InvalidateCover(bookID string) error {
	pattern := filepath.Join(c.cacheDir, fmt.Sprintf("cover_%s_*", bookKey(bookID)))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return nil
}

// Prune removes renditions not written within maxAge. Returns the number
// of removed files.
func (c *Cache) Prune(maxAge time.Duration) (int, error) {
	matches, err := filepath.Glob(filepath.Join(c.cacheDir, "cover_*"))
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// CacheDir returns the cache directory path.
func (c *Cache) CacheDir() string {
	return c.cacheDir
}

func (c *Cache) fetch(ctx context.Context, apiKey, bookID string) (*Image, error) {
	content, err := c.source.DownloadCover(ctx, apiKey, bookID)
	if err != nil {
		return nil, err
	}
	defer content.Body.Close()

	data, err := io.ReadAll(content.Body)
	if err != nil {
		return nil, fmt.Errorf("read cover: %w", err)
	}

	contentType := content.ContentType
	if contentType == "" {
		contentType = contentTypeJPEG
	}
	return &Image{Data: data, ContentType: contentType}, nil
}

// coverPath names a rendition after a hash of the book id, so ids are
// safe as file names.
func (c *Cache) coverPath(bookID string, size Size) string {
	grey := ""
	if size.Greyscale {
		grey = "_grey"
	}
	return filepath.Join(c.cacheDir, fmt.Sprintf("cover_%s_%dx%d%s.jpg", bookKey(bookID), size.Width, size.Height, grey))
}

// store writes a rendition through a temp file and an atomic rename.
func (c *Cache) store(path string, data []byte) error {
	tmpFile, err := os.CreateTemp(c.cacheDir, "cover_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // Clean up if we didn't rename
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return err
	}
	tmpFile.Close()

	return os.Rename(tmpPath, path)
}

func bookKey(bookID string) string {
	hash := sha256.Sum256([]byte(bookID))
	return fmt.Sprintf("%x", hash[:8])
}

func resize(data []byte, size Size) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode cover: %w", err)
	}

	img = imaging.Resize(img, size.Width, size.Height, imaging.Lanczos)
	if size.Greyscale {
		img = imaging.Grayscale(img)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode cover: %w", err)
	}
	return buf.Bytes(), nil
}
