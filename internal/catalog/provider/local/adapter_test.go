package local

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
	"github.com/narwhalmedia/catalog/internal/catalog/provider"
	"github.com/narwhalmedia/catalog/pkg/config"
)

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, path string) (*domain.SourceMetadata, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SourceMetadata), args.Error(1)
}

// faultyFS fails ReadDir for chosen directories and counts reads.
type faultyFS struct {
	fs.FS
	mu    sync.Mutex
	fail  map[string]error
	reads map[string]int
}

func newFaultyFS(root string) *faultyFS {
	return &faultyFS{FS: os.DirFS(root), fail: map[string]error{}, reads: map[string]int{}}
}

func (f *faultyFS) ReadDir(name string) ([]fs.DirEntry, error) {
	f.mu.Lock()
	f.reads[name]++
	err := f.fail[name]
	f.mu.Unlock()
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
	}
	return fs.ReadDir(f.FS, name)
}

func (f *faultyFS) readCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[name]
}

type LocalAdapterSuite struct {
	suite.Suite
	root string
	old  time.Time
	now  time.Time
}

func (s *LocalAdapterSuite) write(rel string, size int, mtime time.Time) string {
	path := filepath.Join(s.root, rel)
	s.Require().NoError(os.MkdirAll(filepath.Dir(path), 0o755))
	s.Require().NoError(os.WriteFile(path, make([]byte, size), 0o644))
	s.Require().NoError(os.Chtimes(path, mtime, mtime))
	return path
}

func (s *LocalAdapterSuite) SetupTest() {
	s.root = s.T().TempDir()
	s.old = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	s.write("Movies/Blade Runner (1982)/Blade Runner (1982) - 2160p.mkv", 40, s.old)
	s.write("Movies/Blade Runner (1982)/Blade Runner (1982) - Final Cut 1080p.mkv", 20, s.now)
	s.write("Movies/Heat.1995.mkv", 10, s.old)
	s.write("Movies/notes.txt", 1, s.now)
	s.write("Movies/.hidden/Secret (2000).mkv", 1, s.now)
	s.write("TV/Breaking Bad/Season 1/Breaking.Bad.S01E01.Pilot.mkv", 5, s.old)
	s.write("TV/Breaking Bad/Season 1/Breaking.Bad.S01E02.mkv", 5, s.now)
	s.Require().NoError(os.MkdirAll(filepath.Join(s.root, ".trash"), 0o755))
}

func (s *LocalAdapterSuite) adapter(analyzer FileAnalyzer, libs ...string) *Adapter {
	a, err := Factory(analyzer, nil)(config.SourceConfig{ID: "disk", Root: s.root, Libraries: libs})
	s.Require().NoError(err)
	return a.(*Adapter)
}

func (s *LocalAdapterSuite) TestGetLibraries() {
	libs, err := s.adapter(nil).GetLibraries(context.Background())
	s.Require().NoError(err)
	s.Len(libs, 2)
	s.Equal("Movies", libs[0].ID)

	libs, err = s.adapter(nil, "TV").GetLibraries(context.Background())
	s.Require().NoError(err)
	s.Require().Len(libs, 1)
	s.Equal("TV", libs[0].ID)
}

func (s *LocalAdapterSuite) TestMovieFolderCollapsesVersions() {
	// Act
	items, total, err := provider.FetchAll(context.Background(), s.adapter(nil), "Movies", 1, nil, nil)

	// Assert
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Require().Len(items, 2)

	blade := items[0]
	s.Equal("Movies/Blade Runner (1982)", blade.ProviderItemID)
	s.Equal("Blade Runner", blade.Title)
	s.Equal(1982, blade.Year)
	s.Equal(domain.MediaTypeMovie, blade.Type)
	s.Len(blade.Sources, 2)
	s.Equal(s.now, blade.ModifiedAt)
	s.Equal(int64(40), blade.Sources[0].FileSizeBytes)
	s.Equal("mkv", blade.Sources[0].Container)

	heat := items[1]
	s.Equal("Movies/Heat.1995.mkv", heat.ProviderItemID)
	s.Equal("Heat", heat.Title)
	s.Equal(1995, heat.Year)
}

func (s *LocalAdapterSuite) TestEpisodes() {
	items, _, err := provider.FetchAll(context.Background(), s.adapter(nil), "TV", 10, nil, nil)

	s.Require().NoError(err)
	s.Require().Len(items, 2)
	s.Equal(domain.MediaTypeEpisode, items[0].Type)
	s.Equal("Breaking Bad", items[0].SeriesTitle)
	s.Equal(1, items[0].SeasonNumber)
	s.Equal(1, items[0].EpisodeNumber)
	s.Equal("Pilot", items[0].Title)
	s.Equal("Episode 2", items[1].Title)
}

func (s *LocalAdapterSuite) TestModifiedSinceFilter() {
	since := s.old.Add(time.Hour)

	page, err := s.adapter(nil).GetLibraryItems(context.Background(), "TV", provider.PageRequest{ModifiedSince: &since})

	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Equal(2, page.Items[0].EpisodeNumber)
	s.True(page.Done)
}

func (s *LocalAdapterSuite) TestAnalyzerEnrichesAndDegrades() {
	// Arrange
	analyzer := new(MockAnalyzer)
	good := filepath.Join(s.root, "TV/Breaking Bad/Season 1/Breaking.Bad.S01E01.Pilot.mkv")
	bad := filepath.Join(s.root, "TV/Breaking Bad/Season 1/Breaking.Bad.S01E02.mkv")
	analyzer.On("Analyze", mock.Anything, good).Return(&domain.SourceMetadata{
		Duration:     2_700,
		DurationUnit: domain.DurationSeconds,
		Video:        &domain.VideoStream{Codec: "h264", Width: 1920, Height: 1080},
	}, nil)
	analyzer.On("Analyze", mock.Anything, bad).Return(nil, errors.New("moov atom not found"))

	// Act
	items, _, err := provider.FetchAll(context.Background(), s.adapter(analyzer), "TV", 10, nil, nil)

	// Assert
	s.Require().NoError(err)
	s.Require().Len(items, 2)
	s.Require().NotNil(items[0].Sources[0].Video)
	s.Equal(good, items[0].Sources[0].FilePath)
	s.Equal(int64(5), items[0].Sources[0].FileSizeBytes)
	s.Nil(items[1].Sources[0].Video)
	analyzer.AssertExpectations(s.T())
}

func (s *LocalAdapterSuite) TestGetItemMetadata() {
	a := s.adapter(nil)

	md, err := a.GetItemMetadata(context.Background(), "Movies/Blade Runner (1982)")
	s.Require().NoError(err)
	s.Len(md.Sources, 2)

	md, err = a.GetItemMetadata(context.Background(), "TV/Breaking Bad/Season 1/Breaking.Bad.S01E02.mkv")
	s.Require().NoError(err)
	s.Equal(2, md.EpisodeNumber)

	_, err = a.GetItemMetadata(context.Background(), "Movies/Gone")
	s.ErrorIs(err, domain.ErrItemNotFound)

	_, err = a.GetLibraryItems(context.Background(), "Music", provider.PageRequest{})
	s.ErrorIs(err, domain.ErrLibraryNotFound)
}

func (s *LocalAdapterSuite) TestUnreadableDirectoryFailsListing() {
	// Arrange
	a := s.adapter(nil)
	fsys := newFaultyFS(s.root)
	fsys.fail["Movies/Blade Runner (1982)"] = fs.ErrPermission
	a.fsys = fsys

	// Act
	page, err := a.GetLibraryItems(context.Background(), "Movies", provider.PageRequest{})

	// Assert
	s.Nil(page)
	s.Require().Error(err)
	s.ErrorIs(err, fs.ErrPermission)
	s.Contains(err.Error(), "Blade Runner (1982)")
}

func (s *LocalAdapterSuite) TestVanishedDirectoryIsSkipped() {
	// Arrange
	a := s.adapter(nil)
	fsys := newFaultyFS(s.root)
	fsys.fail["Movies/Blade Runner (1982)"] = fs.ErrNotExist
	a.fsys = fsys

	// Act
	page, err := a.GetLibraryItems(context.Background(), "Movies", provider.PageRequest{})

	// Assert
	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Equal("Movies/Heat.1995.mkv", page.Items[0].ProviderItemID)
}

func (s *LocalAdapterSuite) TestPagingWalksLibraryOnce() {
	// Arrange
	a := s.adapter(nil)
	fsys := newFaultyFS(s.root)
	a.fsys = fsys

	// Act
	items, total, err := provider.FetchAll(context.Background(), a, "Movies", 1, nil, nil)

	// Assert
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Len(items, 2)
	s.Equal(1, fsys.readCount("Movies"))

	_, err = a.GetLibraryItems(context.Background(), "Movies", provider.PageRequest{Limit: 1})
	s.Require().NoError(err)
	s.Equal(2, fsys.readCount("Movies"))
}

func (s *LocalAdapterSuite) TestFactoryRejectsMissingRoot() {
	_, err := Factory(nil, nil)(config.SourceConfig{ID: "x", Root: filepath.Join(s.root, "missing")})
	s.Error(err)
}

func TestLocalAdapterSuite(t *testing.T) {
	suite.Run(t, new(LocalAdapterSuite))
}
