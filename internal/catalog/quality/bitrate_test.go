package quality_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
	"github.com/narwhalmedia/catalog/internal/catalog/quality"
)

// The estimation constants and the 30% cap are empirical heuristics carried
// over as configuration; these tests pin their behavior, not their truth.

func newReconciler() *quality.BitrateReconciler {
	return quality.NewBitrateReconciler(quality.ReconcilerConfig{})
}

func TestReconcile_VideoAuthoritative(t *testing.T) {
	out := newReconciler().Reconcile(quality.BitrateInput{
		TotalKbps:  20000,
		VideoKbps:  15000,
		Resolution: domain.Resolution1080p,
		Tracks:     []domain.AudioTrack{{Codec: domain.AudioCodecTrueHD, Channels: 8}},
	})

	assert.Equal(t, 15000, out.VideoKbps)
	assert.False(t, out.VideoEstimated)
	assert.Equal(t, 4750, out.Tracks[0].BitrateKbps)
}

func TestReconcile_SplitsBudgetAcrossMissingTracks(t *testing.T) {
	out := newReconciler().Reconcile(quality.BitrateInput{
		TotalKbps: 30000,
		VideoKbps: 20000,
		Tracks: []domain.AudioTrack{
			{Index: 0, Codec: domain.AudioCodecAC3, Channels: 6},
			{Index: 1, Codec: domain.AudioCodecAC3, Channels: 2},
		},
	})

	// (30000-20000)*0.95 = 9500 exceeds the 9000 cap.
	assert.Equal(t, 4500, out.Tracks[0].BitrateKbps)
	assert.Equal(t, 4500, out.Tracks[1].BitrateKbps)
	assert.Equal(t, 20000, out.VideoKbps)
}

func TestReconcile_EstimatedVideoRecomputedWhenAudioClamped(t *testing.T) {
	out := newReconciler().Reconcile(quality.BitrateInput{
		TotalKbps:  40000,
		Resolution: domain.Resolution1080p,
		Tracks:     []domain.AudioTrack{{Codec: domain.AudioCodecTrueHD, Channels: 8}},
	})

	assert.Equal(t, 12000, out.Tracks[0].BitrateKbps)
	assert.Equal(t, 28000, out.VideoKbps)
	assert.False(t, out.VideoEstimated)
}

func TestReconcile_EstimatedVideoKeptWhenItFits(t *testing.T) {
	out := newReconciler().Reconcile(quality.BitrateInput{
		TotalKbps:  12000,
		Resolution: domain.Resolution1080p,
		Tracks:     []domain.AudioTrack{{Codec: domain.AudioCodecAC3, Channels: 6}},
	})

	assert.Equal(t, 1900, out.Tracks[0].BitrateKbps)
	assert.Equal(t, 10000, out.VideoKbps)
	assert.True(t, out.VideoEstimated)
}

func TestReconcile_EstimateLargerThanFile(t *testing.T) {
	out := newReconciler().Reconcile(quality.BitrateInput{
		TotalKbps:  8000,
		Resolution: domain.Resolution4K,
		Tracks:     []domain.AudioTrack{{Codec: domain.AudioCodecEAC3, Channels: 6}},
	})

	assert.Equal(t, 640, out.Tracks[0].BitrateKbps)
	assert.Equal(t, 7360, out.VideoKbps)
}

func TestReconcile_NoTotalUsesTables(t *testing.T) {
	out := newReconciler().Reconcile(quality.BitrateInput{
		Resolution: domain.Resolution4K,
		Tracks: []domain.AudioTrack{
			{Codec: domain.AudioCodecTrueHD, Channels: 8, HasObjectAudio: true},
			{Codec: domain.AudioCodecAAC, Channels: 2, BitrateKbps: 192},
			{Codec: domain.AudioCodecDTSHDMA, Channels: 6},
		},
	})

	assert.Equal(t, 25000, out.VideoKbps)
	assert.True(t, out.VideoEstimated)
	assert.Equal(t, 6000, out.Tracks[0].BitrateKbps)
	assert.Equal(t, 192, out.Tracks[1].BitrateKbps)
	assert.Equal(t, 3500, out.Tracks[2].BitrateKbps)
}

func TestReconcile_ImplausibleTrackBitrateScaledToCap(t *testing.T) {
	out := newReconciler().Reconcile(quality.BitrateInput{
		TotalKbps: 10000,
		VideoKbps: 7000,
		Tracks:    []domain.AudioTrack{{Codec: domain.AudioCodecAAC, Channels: 2, BitrateKbps: 5000}},
	})

	assert.Equal(t, 3000, out.Tracks[0].BitrateKbps)
	assert.Equal(t, 7000, out.VideoKbps)
}

func TestReconcile_DoesNotMutateInput(t *testing.T) {
	tracks := []domain.AudioTrack{{Codec: domain.AudioCodecFLAC, Channels: 2}}
	newReconciler().Reconcile(quality.BitrateInput{TotalKbps: 5000, Tracks: tracks})
	assert.Zero(t, tracks[0].BitrateKbps)
}

func TestReconcile_AudioNeverExceedsCap(t *testing.T) {
	r := newReconciler()
	codecs := []domain.AudioCodec{
		domain.AudioCodecTrueHD, domain.AudioCodecDTSHDMA, domain.AudioCodecPCM,
		domain.AudioCodecEAC3, domain.AudioCodecAAC,
	}
	resolutions := []domain.Resolution{domain.ResolutionSD, domain.Resolution1080p, domain.Resolution4K}

	for _, total := range []int{500, 2000, 8000, 15000, 40000, 90000} {
		for _, video := range []int{0, 300, 1500, 7000, 30000, 95000} {
			for _, res := range resolutions {
				for n := 1; n <= 3; n++ {
					tracks := make([]domain.AudioTrack, n)
					for i := range tracks {
						tracks[i] = domain.AudioTrack{Index: i, Codec: codecs[(i+n)%len(codecs)], Channels: 2 + 2*i}
						if i == 1 {
							tracks[i].BitrateKbps = total / 2
						}
					}

					out := r.Reconcile(quality.BitrateInput{TotalKbps: total, VideoKbps: video, Resolution: res, Tracks: tracks})

					sum := 0
					for _, tr := range out.Tracks {
						sum += tr.BitrateKbps
					}
					name := fmt.Sprintf("total=%d video=%d res=%s n=%d", total, video, res, n)
					require.LessOrEqual(t, float64(sum), 0.30*float64(total), name)
					require.GreaterOrEqual(t, out.VideoKbps, 0, name)
				}
			}
		}
	}
}

func TestEstimationTable_IsEstimated(t *testing.T) {
	table := quality.DefaultEstimationTable()

	assert.True(t, table.IsEstimatedVideo(10000))
	assert.False(t, table.IsEstimatedVideo(9999))
	assert.False(t, table.IsEstimatedVideo(0))
	assert.True(t, table.IsEstimatedAudio(640))
	assert.True(t, table.IsEstimatedAudio(256))
	assert.False(t, table.IsEstimatedAudio(641))
}

func TestNewBitrateReconciler_CustomCap(t *testing.T) {
	r := quality.NewBitrateReconciler(quality.ReconcilerConfig{AudioCapRatio: 0.10})

	out := r.Reconcile(quality.BitrateInput{
		TotalKbps: 10000,
		VideoKbps: 5000,
		Tracks:    []domain.AudioTrack{{Codec: domain.AudioCodecFLAC, Channels: 2}},
	})

	assert.Equal(t, 1000, out.Tracks[0].BitrateKbps)
	assert.True(t, r.IsEstimated(25000))
}
