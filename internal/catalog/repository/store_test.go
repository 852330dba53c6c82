package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
	"github.com/narwhalmedia/catalog/pkg/database"
	"github.com/narwhalmedia/catalog/pkg/logger"
	"github.com/narwhalmedia/catalog/test/testutil"
)

// StoreSuite holds the behavior every Store implementation must share.
type StoreSuite struct {
	suite.Suite
	newStore func(t *testing.T) Store
	store    Store
	ctx      context.Context
}

func (s *StoreSuite) SetupTest() {
	s.store = s.newStore(s.T())
	s.ctx = context.Background()
}

func (s *StoreSuite) TestUpsertInsertsThenUpdatesByNaturalKey() {
	// Arrange
	item := testutil.NewMovieItem("p-1", "Inception")

	// Act
	firstID, err := s.store.UpsertMediaItem(s.ctx, item)
	s.Require().NoError(err)

	again := testutil.NewMovieItem("p-1", "Inception")
	again.VideoBitrateKbps = 31_000
	secondID, err := s.store.UpsertMediaItem(s.ctx, again)
	s.Require().NoError(err)

	// Assert
	s.Equal(firstID, secondID)
	s.Equal(firstID, again.ID)

	items, err := s.store.GetMediaItems(s.ctx, ItemFilter{SourceID: "src-1", LibraryID: "lib-movies"})
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal(31_000, items[0].VideoBitrateKbps)
	s.False(items[0].CreatedAt.IsZero())
}

func (s *StoreSuite) TestSameProviderIDInAnotherLibraryIsSeparate() {
	// Arrange
	a := testutil.NewMovieItem("p-1", "Inception")
	b := testutil.NewMovieItem("p-1", "Inception")
	b.LibraryID = "lib-4k"

	// Act
	idA, err := s.store.UpsertMediaItem(s.ctx, a)
	s.Require().NoError(err)
	idB, err := s.store.UpsertMediaItem(s.ctx, b)
	s.Require().NoError(err)

	// Assert
	s.NotEqual(idA, idB)
	items, err := s.store.GetMediaItems(s.ctx, ItemFilter{SourceID: "src-1"})
	s.Require().NoError(err)
	s.Len(items, 2)
}

func (s *StoreSuite) TestNestedTracksRoundTrip() {
	// Arrange
	item := testutil.NewMovieItem("p-1", "Dune")
	item.AudioTracks = append(item.AudioTracks, domain.AudioTrack{
		Index: 2, Codec: domain.AudioCodecTrueHD, Channels: 8, BitrateKbps: 5000, HasObjectAudio: true,
	})

	// Act
	_, err := s.store.UpsertMediaItem(s.ctx, item)
	s.Require().NoError(err)
	items, err := s.store.GetMediaItems(s.ctx, ItemFilter{ProviderItemID: "p-1"})

	// Assert
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal(item.AudioTracks, items[0].AudioTracks)
	s.Equal(item.Versions, items[0].Versions)
}

func (s *StoreSuite) TestDeleteMediaItem() {
	// Arrange
	id, err := s.store.UpsertMediaItem(s.ctx, testutil.NewMovieItem("p-1", "Heat"))
	s.Require().NoError(err)

	// Act
	err = s.store.DeleteMediaItem(s.ctx, id)

	// Assert
	s.Require().NoError(err)
	items, err := s.store.GetMediaItems(s.ctx, ItemFilter{})
	s.Require().NoError(err)
	s.Empty(items)

	err = s.store.DeleteMediaItem(s.ctx, id)
	s.ErrorIs(err, domain.ErrItemNotFound)
}

func (s *StoreSuite) TestFilterLimit() {
	for _, title := range []string{"A", "B", "C"} {
		_, err := s.store.UpsertMediaItem(s.ctx, testutil.NewMovieItem("p-"+title, title))
		s.Require().NoError(err)
	}

	items, err := s.store.GetMediaItems(s.ctx, ItemFilter{Limit: 2})

	s.Require().NoError(err)
	s.Require().Len(items, 2)
	s.Equal("A", items[0].Title)
	s.Equal("B", items[1].Title)
}

func (s *StoreSuite) TestBatchBracketing() {
	// Arrange
	s.Require().NoError(s.store.StartBatch(s.ctx))
	s.Require().NoError(s.store.StartBatch(s.ctx))

	// Act
	_, err := s.store.UpsertMediaItem(s.ctx, testutil.NewMovieItem("p-1", "Alien"))
	s.Require().NoError(err)
	s.Require().NoError(s.store.ForceSave(s.ctx))
	_, err = s.store.UpsertMediaItem(s.ctx, testutil.NewMovieItem("p-2", "Aliens"))
	s.Require().NoError(err)
	s.Require().NoError(s.store.EndBatch(s.ctx))
	s.Require().NoError(s.store.EndBatch(s.ctx))

	// Assert
	s.ErrorIs(s.store.EndBatch(s.ctx), domain.ErrBatchNotStarted)
	s.NoError(s.store.ForceSave(s.ctx))

	items, err := s.store.GetMediaItems(s.ctx, ItemFilter{})
	s.Require().NoError(err)
	s.Len(items, 2)
}

func (s *StoreSuite) TestSourceScanTime() {
	// Arrange
	_, err := s.store.GetSource(s.ctx, "src-1")
	s.ErrorIs(err, domain.ErrSourceNotFound)
	s.Require().NoError(s.store.RegisterSource(s.ctx, testutil.TestSource))

	// Act
	scannedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err = s.store.UpdateSourceScanTime(s.ctx, "src-1", scannedAt)

	// Assert
	s.Require().NoError(err)
	src, err := s.store.GetSource(s.ctx, "src-1")
	s.Require().NoError(err)
	s.Equal("Living Room", src.Name)
	s.Require().NotNil(src.LastScanAt)
	s.True(scannedAt.Equal(*src.LastScanAt))

	// re-registering keeps the scan time
	s.Require().NoError(s.store.RegisterSource(s.ctx, testutil.TestSource))
	src, err = s.store.GetSource(s.ctx, "src-1")
	s.Require().NoError(err)
	s.NotNil(src.LastScanAt)
}

func migrated(t *testing.T, store *GormStore) *GormStore {
	t.Helper()
	m := database.NewMigrator(store.db, logger.NewNoopLogger(), Migrations()...)
	require.NoError(t, m.Migrate())
	pending, err := m.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)
	return store
}

func TestGormStoreSQLite(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) Store {
		return migrated(t, NewGormStore(testutil.SetupSQLite(t), logger.NewNoopLogger()))
	}})
}

func TestGormStorePostgres(t *testing.T) {
	pc := testutil.SetupPostgresContainer(t)
	store := migrated(t, NewGormStore(pc.DB, logger.NewNoopLogger()))

	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) Store {
		require.NoError(t, pc.TruncateTables("media_items", "sources"))
		return store
	}})
}

func TestSnapshotStoreMemory(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) Store {
		store, err := NewSnapshotStore("", logger.NewNoopLogger())
		require.NoError(t, err)
		return store
	}})
}
