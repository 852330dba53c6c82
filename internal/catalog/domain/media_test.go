package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
)

func TestResolutionRank(t *testing.T) {
	assert.Greater(t, domain.Resolution4K.Rank(), domain.Resolution1080p.Rank())
	assert.Greater(t, domain.Resolution1080p.Rank(), domain.Resolution720p.Rank())
	assert.Greater(t, domain.Resolution720p.Rank(), domain.Resolution480p.Rank())
	assert.Greater(t, domain.Resolution480p.Rank(), domain.ResolutionSD.Rank())
	assert.Equal(t, 0, domain.Resolution("8K?").Rank())
}

func TestTotalBitrateKbps(t *testing.T) {
	// 10 GB over two hours is roughly 11 Mbps.
	assert.Equal(t, 11111, domain.TotalBitrateKbps(10_000_000_000, 7_200_000))
	assert.Equal(t, 0, domain.TotalBitrateKbps(0, 7_200_000))
	assert.Equal(t, 0, domain.TotalBitrateKbps(10, 0))
}

func TestScanFinishedEventType(t *testing.T) {
	assert.Equal(t, domain.EventScanCompleted, domain.NewScanFinishedEvent(domain.ScanResult{Success: true}).EventType())
	assert.Equal(t, domain.EventScanFailed, domain.NewScanFinishedEvent(domain.ScanResult{}).EventType())
	assert.Equal(t, domain.EventScanCancelled, domain.NewScanFinishedEvent(domain.ScanResult{Cancelled: true}).EventType())

	ev := domain.NewScanFinishedEvent(domain.ScanResult{SourceID: "plex", LibraryID: "1"})
	assert.Equal(t, "plex/1", ev.AggregateID())
	assert.NotZero(t, ev.Timestamp())
}

func TestItemKey(t *testing.T) {
	item := &domain.MediaItem{SourceID: "s", LibraryID: "l", ProviderItemID: "p"}
	assert.Equal(t, domain.ItemKey{SourceID: "s", LibraryID: "l", ProviderItemID: "p"}, item.Key())
}
