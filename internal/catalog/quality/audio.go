package quality

import (
	"strings"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
)

// Tier ranks audio formats for comparison across codecs.
type Tier int

const (
	TierStandardLossy Tier = iota + 1
	TierHighLossy
	TierNearLossless
	TierLossless
	TierObject
)

// AudioTier assigns a track its quality tier.
func AudioTier(track domain.AudioTrack) Tier {
	if track.HasObjectAudio || IsObjectAudio(string(track.Codec), track.Title) {
		return TierObject
	}
	switch track.Codec {
	case domain.AudioCodecTrueHD, domain.AudioCodecDTSHDMA, domain.AudioCodecFLAC,
		domain.AudioCodecALAC, domain.AudioCodecPCM:
		return TierLossless
	case domain.AudioCodecDTSHDHRA:
		return TierNearLossless
	case domain.AudioCodecDTS, domain.AudioCodecEAC3:
		return TierHighLossy
	}
	return TierStandardLossy
}

func isCommentary(track domain.AudioTrack) bool {
	return strings.Contains(strings.ToLower(track.Title), "commentary")
}

// SelectBestAudioTrack picks the highest tier, then most channels, then
// highest bitrate. Commentary tracks are only considered when nothing else
// exists. Ties keep the earlier track. The bool is false for an empty list.
func SelectBestAudioTrack(tracks []domain.AudioTrack) (domain.AudioTrack, bool) {
	if len(tracks) == 0 {
		return domain.AudioTrack{}, false
	}

	candidates := make([]domain.AudioTrack, 0, len(tracks))
	for _, t := range tracks {
		if !isCommentary(t) {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		candidates = tracks
	}

	best := candidates[0]
	for _, t := range candidates[1:] {
		if better(t, best) {
			best = t
		}
	}
	return best, true
}

func better(a, b domain.AudioTrack) bool {
	ta, tb := AudioTier(a), AudioTier(b)
	if ta != tb {
		return ta > tb
	}
	if a.Channels != b.Channels {
		return a.Channels > b.Channels
	}
	return a.BitrateKbps > b.BitrateKbps
}

// HasObjectAudio reports whether any track is object audio.
func HasObjectAudio(tracks []domain.AudioTrack) bool {
	for _, t := range tracks {
		if AudioTier(t) == TierObject {
			return true
		}
	}
	return false
}
