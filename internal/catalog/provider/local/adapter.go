// Package local adapts a media tree on the local filesystem. Each
// directory directly under the root is a library.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
	"github.com/narwhalmedia/catalog/internal/catalog/provider"
	"github.com/narwhalmedia/catalog/internal/catalog/provider/pathname"
	"github.com/narwhalmedia/catalog/pkg/config"
	pkgerrors "github.com/narwhalmedia/catalog/pkg/errors"
	"github.com/narwhalmedia/catalog/pkg/interfaces"
	"github.com/narwhalmedia/catalog/pkg/logger"
)

// FileAnalyzer extracts stream details from a media file.
type FileAnalyzer interface {
	Analyze(ctx context.Context, path string) (*domain.SourceMetadata, error)
}

// Adapter reads a directory tree.
type Adapter struct {
	root      string
	fsys      fs.FS
	libraries []string
	analyzer  FileAnalyzer
	listings  *pathname.Listings
	logger    interfaces.Logger
}

// New creates an adapter rooted at src.Root. analyzer may be nil, in which
// case only path, size and timestamps are reported.
func New(src config.SourceConfig, analyzer FileAnalyzer, log interfaces.Logger) *Adapter {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &Adapter{
		root:      filepath.Clean(src.Root),
		fsys:      os.DirFS(src.Root),
		libraries: src.Libraries,
		analyzer:  analyzer,
		listings:  pathname.NewListings(pathname.ListingTTL),
		logger:    log.WithFields(interfaces.String("source_id", src.ID)),
	}
}

// Factory returns a provider.Factory for local sources.
func Factory(analyzer FileAnalyzer, log interfaces.Logger) provider.Factory {
	return func(src config.SourceConfig) (provider.Adapter, error) {
		info, err := os.Stat(src.Root)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.ErrorTypeBadRequest, "local source root is not accessible", err)
		}
		if !info.IsDir() {
			return nil, pkgerrors.BadRequest("local source root is not a directory: " + src.Root)
		}
		return New(src, analyzer, log), nil
	}
}

// Root returns the watched directory.
func (a *Adapter) Root() string {
	return a.root
}

func (a *Adapter) Capabilities() provider.Capabilities {
	return provider.Capabilities{ModifiedSinceFilter: true}
}

// GetLibraries lists the directories under the root, restricted to the
// configured names when any are given.
func (a *Adapter) GetLibraries(ctx context.Context) ([]domain.LibraryInfo, error) {
	entries, err := fs.ReadDir(a.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading root %s: %w", a.root, err)
	}

	allowed := make(map[string]bool, len(a.libraries))
	for _, l := range a.libraries {
		allowed[l] = true
	}

	var libs []domain.LibraryInfo
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if len(allowed) > 0 && !allowed[e.Name()] {
			continue
		}
		libs = append(libs, domain.LibraryInfo{ID: e.Name(), Name: e.Name(), Type: "folder"})
	}
	return libs, nil
}

// GetLibraryItems walks a library, groups files into items and analyzes
// the files of the requested page only. The grouped listing is reused by
// the following pages of the same pass.
func (a *Adapter) GetLibraryItems(ctx context.Context, libraryID string, req provider.PageRequest) (*provider.Page, error) {
	libDir, ok := relPath(libraryID)
	if !ok || strings.Contains(libDir, "/") {
		return nil, fmt.Errorf("%w: %s", domain.ErrLibraryNotFound, libraryID)
	}
	if info, err := fs.Stat(a.fsys, libDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", domain.ErrLibraryNotFound, libraryID)
	}

	groups, err := a.listings.Groups(ctx, libDir, req.Offset, func() ([]*pathname.Group, error) {
		return a.walk(ctx, libDir)
	})
	if err != nil {
		return nil, err
	}
	if req.ModifiedSince != nil {
		groups = pathname.ModifiedAfter(groups, *req.ModifiedSince)
	}

	page, done := pathname.Page(groups, req.Offset, req.Limit)
	items := make([]*domain.MediaMetadata, 0, len(page))
	for _, g := range page {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items = append(items, a.toMetadata(ctx, g))
	}

	return &provider.Page{Items: items, Total: len(groups), Done: done}, nil
}

// GetItemMetadata resolves an item id (a path relative to the root).
func (a *Adapter) GetItemMetadata(ctx context.Context, itemID string) (*domain.MediaMetadata, error) {
	rel, ok := relPath(itemID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	info, err := fs.Stat(a.fsys, rel)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	if err != nil {
		return nil, err
	}

	var g *pathname.Group
	if info.IsDir() {
		groups, err := a.walk(ctx, rel)
		if err != nil {
			return nil, err
		}
		for _, candidate := range groups {
			if candidate.ID == itemID {
				g = candidate
				break
			}
		}
	} else if pathname.IsMedia(rel) {
		g = pathname.Classify(a.entry(rel, info))
	}
	if g == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	return a.toMetadata(ctx, g), nil
}

// relPath turns an id into a clean slash path below the root. The root
// itself is not a valid id.
func relPath(id string) (string, bool) {
	rel := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(id)), "/")
	return rel, rel != ""
}

func (a *Adapter) entry(rel string, info fs.FileInfo) pathname.Entry {
	return pathname.Entry{
		Rel:      rel,
		Location: filepath.Join(a.root, filepath.FromSlash(rel)),
		Size:     info.Size(),
		Modified: info.ModTime().UTC(),
	}
}

// walk groups the media files below dir. A path that disappears while the
// walk runs is skipped; any other error ends the walk, since a partial
// listing would make a full scan prune items that still exist.
func (a *Adapter) walk(ctx context.Context, dir string) ([]*pathname.Group, error) {
	var entries []pathname.Entry

	err := fs.WalkDir(a.fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p != dir && errors.Is(err, fs.ErrNotExist) {
				a.logger.Debug("Path vanished during walk", interfaces.String("path", p))
				return nil
			}
			return fmt.Errorf("walking %s: %w", p, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if strings.HasPrefix(d.Name(), ".") && p != dir {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !pathname.IsMedia(p) {
			return nil
		}

		info, err := d.Info()
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
		entries = append(entries, a.entry(p, info))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pathname.Collect(entries), nil
}

func (a *Adapter) toMetadata(ctx context.Context, g *pathname.Group) *domain.MediaMetadata {
	md := g.Metadata()
	if a.analyzer == nil {
		return md
	}

	for i, src := range md.Sources {
		probed, err := a.analyzer.Analyze(ctx, src.FilePath)
		if err != nil {
			a.logger.Warn("File analysis failed",
				interfaces.String("path", src.FilePath),
				interfaces.Error(err))
			continue
		}
		if probed == nil {
			continue
		}
		probed.ID, probed.FilePath = src.ID, src.FilePath
		if probed.FileSizeBytes == 0 {
			probed.FileSizeBytes = src.FileSizeBytes
		}
		if probed.Container == "" {
			probed.Container = src.Container
		}
		md.Sources[i] = *probed
	}
	return md
}
