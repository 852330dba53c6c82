package quality

import (
	"github.com/narwhalmedia/catalog/internal/catalog/domain"
)

// AudioEstimate holds the kbps guesses for one codec by channel count.
// Zero entries fall back to the next smaller layout.
type AudioEstimate struct {
	Stereo   int // up to 2 channels
	Surround int // 3 to 6 channels
	Immersed int // 7 or more channels
	Object   int // Atmos or DTS:X, any layout
}

func (e AudioEstimate) pick(channels int, object bool) int {
	if object && e.Object > 0 {
		return e.Object
	}
	switch {
	case channels > 6 && e.Immersed > 0:
		return e.Immersed
	case channels > 2 && e.Surround > 0:
		return e.Surround
	}
	return e.Stereo
}

func (e AudioEstimate) values() []int {
	return []int{e.Stereo, e.Surround, e.Immersed, e.Object}
}

// EstimationTable holds the fallback bitrates used when a source reports
// nothing better. The numbers are empirical.
type EstimationTable struct {
	Video        map[domain.Resolution]int
	Audio        map[domain.AudioCodec]AudioEstimate
	DefaultAudio int
}

// DefaultEstimationTable returns the stock estimates.
func DefaultEstimationTable() EstimationTable {
	return EstimationTable{
		Video: map[domain.Resolution]int{
			domain.Resolution4K:    25000,
			domain.Resolution1080p: 10000,
			domain.Resolution720p:  5000,
			domain.Resolution480p:  2500,
			domain.ResolutionSD:    1500,
		},
		Audio: map[domain.AudioCodec]AudioEstimate{
			domain.AudioCodecTrueHD:   {Stereo: 2500, Surround: 4000, Immersed: 5000, Object: 6000},
			domain.AudioCodecDTSHDMA:  {Stereo: 2000, Surround: 3500, Immersed: 4500, Object: 5000},
			domain.AudioCodecDTSHDHRA: {Stereo: 1800, Surround: 2400, Immersed: 3000},
			domain.AudioCodecFLAC:     {Stereo: 1500, Surround: 2500, Immersed: 3000},
			domain.AudioCodecPCM:      {Stereo: 1500, Surround: 2500, Immersed: 3000},
			domain.AudioCodecALAC:     {Stereo: 1500, Surround: 2500, Immersed: 3000},
			domain.AudioCodecDTS:      {Stereo: 768, Surround: 1509},
			domain.AudioCodecEAC3:     {Stereo: 384, Surround: 640, Immersed: 1024, Object: 1536},
			domain.AudioCodecAC3:      {Stereo: 384, Surround: 640},
			domain.AudioCodecAAC:      {Stereo: 256, Surround: 384},
			domain.AudioCodecMP3:      {Stereo: 320},
			domain.AudioCodecOpus:     {Stereo: 128, Surround: 256},
			domain.AudioCodecVorbis:   {Stereo: 192, Surround: 320},
			domain.AudioCodecWMA:      {Stereo: 192, Surround: 384},
		},
		DefaultAudio: 256,
	}
}

// EstimateVideo returns the table bitrate for a resolution.
func (t EstimationTable) EstimateVideo(res domain.Resolution) int {
	if v, ok := t.Video[res]; ok {
		return v
	}
	return t.Video[domain.ResolutionSD]
}

// EstimateAudio returns the table bitrate for a track.
func (t EstimationTable) EstimateAudio(track domain.AudioTrack) int {
	est, ok := t.Audio[track.Codec]
	if !ok {
		return t.DefaultAudio
	}
	if v := est.pick(track.Channels, AudioTier(track) == TierObject); v > 0 {
		return v
	}
	return t.DefaultAudio
}

// IsEstimatedVideo reports whether kbps is one of the video constants.
func (t EstimationTable) IsEstimatedVideo(kbps int) bool {
	if kbps <= 0 {
		return false
	}
	for _, v := range t.Video {
		if v == kbps {
			return true
		}
	}
	return false
}

// IsEstimatedAudio reports whether kbps is one of the audio constants.
func (t EstimationTable) IsEstimatedAudio(kbps int) bool {
	if kbps <= 0 {
		return false
	}
	if kbps == t.DefaultAudio {
		return true
	}
	for _, est := range t.Audio {
		for _, v := range est.values() {
			if v == kbps {
				return true
			}
		}
	}
	return false
}

// ReconcilerConfig tunes the bitrate split.
type ReconcilerConfig struct {
	// AudioCapRatio bounds total audio bitrate as a share of the file bitrate.
	AudioCapRatio float64
	// OverheadRatio is reserved for container and subtitle overhead.
	OverheadRatio float64
	Table         EstimationTable
}

// DefaultReconcilerConfig returns a 30% audio cap and 5% overhead.
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		AudioCapRatio: 0.30,
		OverheadRatio: 0.05,
		Table:         DefaultEstimationTable(),
	}
}

// BitrateReconciler derives per-stream bitrates when sources omit them.
type BitrateReconciler struct {
	cfg ReconcilerConfig
}

// NewBitrateReconciler fills zero config fields with defaults.
func NewBitrateReconciler(cfg ReconcilerConfig) *BitrateReconciler {
	def := DefaultReconcilerConfig()
	if cfg.AudioCapRatio <= 0 || cfg.AudioCapRatio > 1 {
		cfg.AudioCapRatio = def.AudioCapRatio
	}
	if cfg.OverheadRatio < 0 || cfg.OverheadRatio >= 1 {
		cfg.OverheadRatio = def.OverheadRatio
	}
	if cfg.Table.Video == nil {
		cfg.Table.Video = def.Table.Video
	}
	if cfg.Table.Audio == nil {
		cfg.Table.Audio = def.Table.Audio
	}
	if cfg.Table.DefaultAudio <= 0 {
		cfg.Table.DefaultAudio = def.Table.DefaultAudio
	}
	return &BitrateReconciler{cfg: cfg}
}

// Table returns the estimation table in use.
func (r *BitrateReconciler) Table() EstimationTable {
	return r.cfg.Table
}

// BitrateInput is what is known about one file before reconciliation.
type BitrateInput struct {
	TotalKbps  int
	VideoKbps  int
	Resolution domain.Resolution
	Tracks     []domain.AudioTrack
}

// BitrateOutput holds the reconciled values. Tracks is a copy of the input
// tracks, in the same order, with BitrateKbps filled.
type BitrateOutput struct {
	VideoKbps      int
	VideoEstimated bool
	Tracks         []domain.AudioTrack
}

// Reconcile splits the file bitrate between video and audio.
//
// With a total and a reported video bitrate, video is authoritative and the
// remainder (less overhead) is shared by the tracks lacking a bitrate. With a
// total but no video bitrate, video starts from the resolution estimate and is
// recomputed as total minus audio. Without a total everything missing comes
// from the table. Whenever a total is known, audio never exceeds the cap.
func (r *BitrateReconciler) Reconcile(in BitrateInput) BitrateOutput {
	total := in.TotalKbps
	tracks := make([]domain.AudioTrack, len(in.Tracks))
	copy(tracks, in.Tracks)

	video := in.VideoKbps
	if total > 0 && video >= total {
		video = 0
	}

	var missing []int
	known := 0
	for i := range tracks {
		br := tracks[i].BitrateKbps
		if br <= 0 || (total > 0 && br >= total) {
			tracks[i].BitrateKbps = 0
			missing = append(missing, i)
			continue
		}
		known += br
	}

	out := BitrateOutput{VideoKbps: video, Tracks: tracks}

	if total <= 0 {
		for _, i := range missing {
			tracks[i].BitrateKbps = r.cfg.Table.EstimateAudio(tracks[i])
		}
		if out.VideoKbps <= 0 {
			out.VideoKbps = r.cfg.Table.EstimateVideo(in.Resolution)
			out.VideoEstimated = true
		}
		return out
	}

	videoAuthoritative := video > 0
	if !videoAuthoritative {
		video = r.cfg.Table.EstimateVideo(in.Resolution)
		out.VideoEstimated = true
	}

	capKbps := int(float64(total) * r.cfg.AudioCapRatio)
	clamped := false

	if len(missing) > 0 {
		budget := int(float64(total-video-known) * (1 - r.cfg.OverheadRatio))
		if budget > 0 {
			if known+budget > capKbps {
				budget = max(capKbps-known, 0)
				clamped = true
			}
			share := budget / len(missing)
			for _, i := range missing {
				tracks[i].BitrateKbps = share
			}
		} else {
			for _, i := range missing {
				tracks[i].BitrateKbps = r.cfg.Table.EstimateAudio(tracks[i])
			}
		}
	}

	// Clamp the audio total to the cap, scaling tracks proportionally.
	audio := 0
	for _, t := range tracks {
		audio += t.BitrateKbps
	}
	if audio > capKbps {
		scaled := 0
		for i := range tracks {
			tracks[i].BitrateKbps = tracks[i].BitrateKbps * capKbps / audio
			scaled += tracks[i].BitrateKbps
		}
		audio = scaled
		clamped = true
	}

	// An estimated video bitrate is replaced by the remainder once audio was
	// clamped, or when the estimate does not fit in the file at all.
	if !videoAuthoritative && (clamped || video+audio > total) {
		video = max(total-audio, 0)
		out.VideoEstimated = false
	}
	out.VideoKbps = video
	return out
}

// IsEstimated reports whether a video bitrate came from the table.
func (r *BitrateReconciler) IsEstimated(videoKbps int) bool {
	return r.cfg.Table.IsEstimatedVideo(videoKbps)
}
