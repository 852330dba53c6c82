package quality_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
	"github.com/narwhalmedia/catalog/internal/catalog/quality"
)

func TestNormalizeVideoCodec(t *testing.T) {
	tests := map[string]domain.VideoCodec{
		"h264":       domain.VideoCodecH264,
		"AVC":        domain.VideoCodecH264,
		"hevc":       domain.VideoCodecHEVC,
		"H.265":      domain.VideoCodecHEVC,
		"x265":       domain.VideoCodecHEVC,
		"av1":        domain.VideoCodecAV1,
		"VP9":        domain.VideoCodecVP9,
		"mpeg2video": domain.VideoCodecMPEG2,
		"vc1":        domain.VideoCodecVC1,
		"WVC1":       domain.VideoCodecVC1,
		"xvid":       domain.VideoCodecMPEG4,
		"":           domain.VideoCodecUnknown,
		"prores":     domain.VideoCodecUnknown,
	}
	for in, want := range tests {
		assert.Equal(t, want, quality.NormalizeVideoCodec(in), "codec %q", in)
	}
}

func TestNormalizeAudioCodec(t *testing.T) {
	tests := []struct {
		codec, profile string
		want           domain.AudioCodec
	}{
		{"truehd", "", domain.AudioCodecTrueHD},
		{"dts", "DTS-HD MA", domain.AudioCodecDTSHDMA},
		{"dts", "DTS:X", domain.AudioCodecDTSHDMA},
		{"dca-ma", "", domain.AudioCodecDTSHDMA},
		{"dts", "DTS-HD HRA", domain.AudioCodecDTSHDHRA},
		{"dts", "", domain.AudioCodecDTS},
		{"dca", "", domain.AudioCodecDTS},
		{"E-AC-3", "", domain.AudioCodecEAC3},
		{"eac3", "Dolby Digital Plus + Dolby Atmos", domain.AudioCodecEAC3},
		{"ac3", "", domain.AudioCodecAC3},
		{"aac", "LC", domain.AudioCodecAAC},
		{"pcm_s24le", "", domain.AudioCodecPCM},
		{"flac", "", domain.AudioCodecFLAC},
		{"alac", "", domain.AudioCodecALAC},
		{"mp3", "", domain.AudioCodecMP3},
		{"opus", "", domain.AudioCodecOpus},
		{"wmapro", "", domain.AudioCodecWMA},
		{"", "", domain.AudioCodecUnknown},
		{"qdm2", "", domain.AudioCodecUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, quality.NormalizeAudioCodec(tt.codec, tt.profile), "%s/%s", tt.codec, tt.profile)
	}
}

func TestIsObjectAudio(t *testing.T) {
	assert.True(t, quality.IsObjectAudio("truehd", "", "TrueHD Atmos 7.1"))
	assert.True(t, quality.IsObjectAudio("dts", "DTS:X"))
	assert.False(t, quality.IsObjectAudio("dts", "DTS-HD MA", "English"))
	assert.False(t, quality.IsObjectAudio())
}

func TestNormalizeResolution(t *testing.T) {
	tests := []struct {
		width, height int
		want          domain.Resolution
	}{
		{3840, 2160, domain.Resolution4K},
		{3996, 1680, domain.Resolution4K},
		{0, 2160, domain.Resolution4K},
		{1920, 1080, domain.Resolution1080p},
		{1920, 800, domain.Resolution1080p},
		{1280, 720, domain.Resolution720p},
		{720, 576, domain.Resolution480p},
		{640, 360, domain.ResolutionSD},
		{0, 0, domain.ResolutionSD},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, quality.NormalizeResolution(tt.width, tt.height), "%dx%d", tt.width, tt.height)
	}
}

func TestParseResolution(t *testing.T) {
	res, ok := quality.ParseResolution("4k")
	assert.True(t, ok)
	assert.Equal(t, domain.Resolution4K, res)

	res, ok = quality.ParseResolution("1080")
	assert.True(t, ok)
	assert.Equal(t, domain.Resolution1080p, res)

	res, ok = quality.ParseResolution("weird")
	assert.False(t, ok)
	assert.Equal(t, domain.ResolutionSD, res)
}

func TestNormalizeHDRFormat(t *testing.T) {
	tests := []struct {
		name                         string
		rangeHint, primaries, transf string
		bitDepth                     int
		profile                      string
		want                         domain.HDRFormat
	}{
		{"hdr10 range", "HDR10", "", "", 10, "", domain.HDR10},
		{"dv with fallback", "DOVIWithHDR10", "", "", 10, "", domain.HDRDolbyVision},
		{"dv profile", "", "", "", 10, "dvhe.08.06", domain.HDRDolbyVision},
		{"hdr10 plus", "HDR10Plus", "", "", 10, "", domain.HDR10Plus},
		{"pq transfer", "", "bt2020", "smpte2084", 10, "", domain.HDR10},
		{"hlg range", "HLG", "", "", 10, "", domain.HDRHLG},
		{"hlg transfer", "", "bt2020", "arib-std-b67", 10, "", domain.HDRHLG},
		{"generic hdr", "HDR", "", "", 0, "", domain.HDR10},
		{"sdr", "SDR", "bt709", "bt709", 8, "", domain.HDRNone},
		{"nothing", "", "", "", 0, "", domain.HDRNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := quality.NormalizeHDRFormat(tt.rangeHint, tt.primaries, tt.transf, tt.bitDepth, tt.profile)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeBitrate(t *testing.T) {
	assert.Equal(t, 8000, quality.NormalizeBitrate(8000000, domain.BitrateBps))
	assert.Equal(t, 8000, quality.NormalizeBitrate(8000, domain.BitrateKbps))
	assert.Equal(t, 8500, quality.NormalizeBitrate(8.5, domain.BitrateMbps))
	assert.Equal(t, 640, quality.NormalizeBitrate("640000", ""))
	assert.Equal(t, 640, quality.NormalizeBitrate(640, ""))
	assert.Equal(t, 0, quality.NormalizeBitrate(nil, ""))
	assert.Equal(t, 0, quality.NormalizeBitrate("abc", ""))
	assert.Equal(t, 0, quality.NormalizeBitrate(-5, domain.BitrateKbps))
}

func TestNormalizeFrameRate(t *testing.T) {
	assert.Equal(t, 23.976, quality.NormalizeFrameRate("24000/1001"))
	assert.Equal(t, 25.0, quality.NormalizeFrameRate(25))
	assert.Equal(t, 29.97, quality.NormalizeFrameRate("29.97"))
	assert.Equal(t, 0.0, quality.NormalizeFrameRate("0/0"))
	assert.Equal(t, 0.0, quality.NormalizeFrameRate(nil))
}

func TestNormalizeAudioChannels(t *testing.T) {
	assert.Equal(t, 6, quality.NormalizeAudioChannels(6, ""))
	assert.Equal(t, 6, quality.NormalizeAudioChannels(0, "5.1(side)"))
	assert.Equal(t, 8, quality.NormalizeAudioChannels(0, "7.1"))
	assert.Equal(t, 2, quality.NormalizeAudioChannels(0, "stereo"))
	assert.Equal(t, 1, quality.NormalizeAudioChannels(0, "mono"))
	assert.Equal(t, 2, quality.NormalizeAudioChannels(0, ""))
}

func TestNormalizeSampleRate(t *testing.T) {
	assert.Equal(t, 48000, quality.NormalizeSampleRate(48000))
	assert.Equal(t, 48000, quality.NormalizeSampleRate("48 kHz"))
	assert.Equal(t, 44100, quality.NormalizeSampleRate("44.1"))
	assert.Equal(t, 44100, quality.NormalizeSampleRate(44.1))
	assert.Equal(t, 0, quality.NormalizeSampleRate(nil))
}

func TestNormalizeContainer(t *testing.T) {
	assert.Equal(t, "mp4", quality.NormalizeContainer("mov,mp4,m4a,3gp,3g2,mj2"))
	assert.Equal(t, "mkv", quality.NormalizeContainer("matroska,webm"))
	assert.Equal(t, "mkv", quality.NormalizeContainer("MKV"))
	assert.Equal(t, "ts", quality.NormalizeContainer("mpegts"))
	assert.Equal(t, "", quality.NormalizeContainer(""))
}

func TestNormalizeDuration(t *testing.T) {
	assert.Equal(t, int64(7200000), quality.NormalizeDuration(72000000000, domain.DurationTicks))
	assert.Equal(t, int64(7200000), quality.NormalizeDuration(7200, domain.DurationSeconds))
	assert.Equal(t, int64(1500), quality.NormalizeDuration(1500, domain.DurationMilliseconds))
	assert.Equal(t, int64(0), quality.NormalizeDuration(0, domain.DurationSeconds))
}
