// Package localfs implements the media source contract over a local
// directory tree. First-level subdirectories act as albums. Deletions
// move files into a per-batch trash directory so a single call is
// all-or-nothing: if any move fails, already-moved files are restored.
package localfs

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/swipeclean/swipeclean/internal/library"
)

var photoExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".heic": true, ".heif": true, ".webp": true, ".tif": true, ".tiff": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".m4v": true, ".avi": true, ".mkv": true, ".webm": true,
}

// Source serves media items from a directory tree.
type Source struct {
	root     string
	trashDir string
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates a localfs source rooted at root. trashDir receives
// deleted files; when empty a ".swipeclean-trash" directory under the
// root is used (and excluded from scans).
func New(root, trashDir string, logger zerolog.Logger) (*Source, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat media root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("media root %s is not a directory", absRoot)
	}

	if trashDir == "" {
		trashDir = filepath.Join(absRoot, ".swipeclean-trash")
	}

	return &Source{
		root:     absRoot,
		trashDir: trashDir,
		logger:   logger.With().Str("component", "localfs").Logger(),
		now:      time.Now,
	}, nil
}

// Root returns the media root directory.
func (s *Source) Root() string {
	return s.root
}

// mediaTypeOf classifies a file name, returning false for non-media.
func mediaTypeOf(name string) (library.MediaType, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case photoExtensions[ext]:
		return library.MediaTypePhoto, true
	case videoExtensions[ext]:
		return library.MediaTypeVideo, true
	}
	return "", false
}

// IsMediaFile reports whether name has a recognized photo or video
// extension.
func IsMediaFile(name string) bool {
	_, ok := mediaTypeOf(name)
	return ok
}

// Fetch implements library.Source.
func (s *Source) Fetch(ctx context.Context, opts library.FetchOptions) ([]library.MediaItem, error) {
	items, err := s.scan(ctx, opts.AlbumID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	filtered := items[:0]
	for _, item := range items {
		if !opts.Media.Allows(item.MediaType, opts.IncludeVideos) {
			continue
		}
		if !opts.Date.Matches(item.CreationDate, now) {
			continue
		}
		filtered = append(filtered, item)
	}
	items = filtered

	if opts.Randomize {
		rand.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	} else {
		sort.SliceStable(items, func(i, j int) bool {
			a, b := items[i].CreationDate, items[j].CreationDate
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			default:
				return a.After(*b)
			}
		})
	}

	return items, nil
}

// scan walks the tree below root (or one album directory) and builds
// media items. IDs are root-relative slash paths, stable across scans.
func (s *Source) scan(ctx context.Context, albumID string) ([]library.MediaItem, error) {
	base := s.root
	if albumID != "" && albumID != library.AllAlbumID {
		base = filepath.Join(s.root, filepath.FromSlash(albumID))
	}

	var items []library.MediaItem
	err := filepath.WalkDir(base, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != base {
				return filepath.SkipDir
			}
			if path == s.trashDir {
				return filepath.SkipDir
			}
			return nil
		}

		mt, ok := mediaTypeOf(d.Name())
		if !ok {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return nil
		}

		items = append(items, library.MediaItem{
			ID:           filepath.ToSlash(rel),
			Path:         path,
			MediaType:    mt,
			CreationDate: s.creationDate(path, mt, d),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan media root: %w", err)
	}

	return items, nil
}

// creationDate resolves the best available creation timestamp: EXIF
// for photos, file modification time otherwise.
func (s *Source) creationDate(path string, mt library.MediaType, d os.DirEntry) *time.Time {
	if mt == library.MediaTypePhoto {
		if t, ok := exifDate(path); ok {
			return &t
		}
	}
	info, err := d.Info()
	if err != nil {
		return nil
	}
	mod := info.ModTime()
	return &mod
}

// exifDate extracts the capture date from EXIF metadata, preferring
// DateTimeOriginal over CreateDate over ModifyDate.
func exifDate(path string) (time.Time, bool) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, false
	}
	defer f.Close()

	meta, err := imagemeta.Decode(f)
	if err != nil {
		return time.Time{}, false
	}

	for _, t := range []time.Time{meta.DateTimeOriginal(), meta.CreateDate(), meta.ModifyDate()} {
		if !t.IsZero() {
			return t, true
		}
	}
	return time.Time{}, false
}

// Delete implements library.Source. Files move into a unique trash
// directory; on any failure the already-moved files are restored so the
// whole call is all-or-nothing.
func (s *Source) Delete(_ context.Context, items []library.MediaItem) error {
	if len(items) == 0 {
		return nil
	}

	batchDir := filepath.Join(s.trashDir, uuid.New().String())
	if err := os.MkdirAll(batchDir, 0o750); err != nil {
		return &library.DeleteError{Message: fmt.Sprintf("could not prepare trash directory: %v", err)}
	}

	type move struct {
		from, to string
	}
	moved := make([]move, 0, len(items))

	for _, item := range items {
		src := item.Path
		if src == "" {
			src = filepath.Join(s.root, filepath.FromSlash(item.ID))
		}
		// Flatten the relative path so restores are unambiguous.
		dst := filepath.Join(batchDir, strings.ReplaceAll(filepath.ToSlash(item.ID), "/", "__"))

		if err := os.Rename(src, dst); err != nil {
			for i := len(moved) - 1; i >= 0; i-- {
				if rerr := os.Rename(moved[i].to, moved[i].from); rerr != nil {
					s.logger.Error().Err(rerr).Str("path", moved[i].from).Msg("failed to restore file after aborted delete")
				}
			}
			_ = os.Remove(batchDir)
			return &library.DeleteError{Message: fmt.Sprintf("could not remove %s: %v", item.ID, err)}
		}
		moved = append(moved, move{from: src, to: dst})
	}

	s.logger.Info().Int("count", len(moved)).Str("trash", batchDir).Msg("moved media batch to trash")
	return nil
}

// Albums implements library.Source: each first-level subdirectory with
// at least one media file is an album.
func (s *Source) Albums(ctx context.Context) ([]library.Album, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read media root: %w", err)
	}

	var albums []library.Album
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dir := filepath.Join(s.root, entry.Name())
		if dir == s.trashDir {
			continue
		}
		count := 0
		_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !d.IsDir() && IsMediaFile(d.Name()) {
				count++
			}
			return nil
		})
		if count == 0 {
			continue
		}
		albums = append(albums, library.Album{
			ID:        entry.Name(),
			Title:     entry.Name(),
			ItemCount: count,
		})
	}

	sort.Slice(albums, func(i, j int) bool {
		return strings.ToLower(albums[i].Title) < strings.ToLower(albums[j].Title)
	})

	return albums, nil
}

// AuthorizationStatus implements library.Source. Local directories
// carry no permission flow.
func (s *Source) AuthorizationStatus(_ context.Context) library.AuthStatus {
	return library.AuthAuthorized
}

// RequestAuthorization implements library.Source.
func (s *Source) RequestAuthorization(_ context.Context) library.AuthStatus {
	return library.AuthAuthorized
}
