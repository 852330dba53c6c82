package quality

import "github.com/narwhalmedia/catalog/internal/catalog/domain"

// PreserveMeasured keeps measured bitrates from the stored record when the
// incoming record only has table estimates for the same file. Measured
// values always replace estimates, never the other way around.
func PreserveMeasured(table EstimationTable, existing, incoming *domain.MediaItem) {
	if existing == nil || incoming == nil {
		return
	}
	if existing.FilePath != incoming.FilePath || existing.FileSizeBytes != incoming.FileSizeBytes {
		return
	}

	if table.IsEstimatedVideo(incoming.VideoBitrateKbps) &&
		existing.VideoBitrateKbps > 0 && !table.IsEstimatedVideo(existing.VideoBitrateKbps) {
		incoming.VideoBitrateKbps = existing.VideoBitrateKbps
	}

	stored := make(map[int]domain.AudioTrack, len(existing.AudioTracks))
	for _, t := range existing.AudioTracks {
		stored[t.Index] = t
	}
	changed := false
	for i, t := range incoming.AudioTracks {
		old, ok := stored[t.Index]
		if !ok || old.Codec != t.Codec {
			continue
		}
		if table.IsEstimatedAudio(t.BitrateKbps) && old.BitrateKbps > 0 && !table.IsEstimatedAudio(old.BitrateKbps) {
			incoming.AudioTracks[i].BitrateKbps = old.BitrateKbps
			changed = true
		}
	}
	if changed {
		applyBestAudio(incoming)
	}

	for i := range incoming.Versions {
		if incoming.Versions[i].FilePath == incoming.FilePath {
			incoming.Versions[i].VideoBitrateKbps = incoming.VideoBitrateKbps
		}
	}
}
