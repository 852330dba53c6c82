// Package quality maps provider vocabulary onto the canonical catalog
// vocabulary and derives the quality signals stored on every MediaItem.
package quality

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
)

var videoCodecAliases = map[string]domain.VideoCodec{
	"h264": domain.VideoCodecH264, "avc": domain.VideoCodecH264, "avc1": domain.VideoCodecH264,
	"x264": domain.VideoCodecH264, "mpeg4avc": domain.VideoCodecH264,
	"hevc": domain.VideoCodecHEVC, "h265": domain.VideoCodecHEVC, "x265": domain.VideoCodecHEVC,
	"hvc1": domain.VideoCodecHEVC, "hev1": domain.VideoCodecHEVC,
	"av1": domain.VideoCodecAV1, "av01": domain.VideoCodecAV1,
	"vp9": domain.VideoCodecVP9, "vp09": domain.VideoCodecVP9,
	"vp8":   domain.VideoCodecVP8,
	"mpeg2": domain.VideoCodecMPEG2, "mpeg2video": domain.VideoCodecMPEG2,
	"mpeg4": domain.VideoCodecMPEG4, "xvid": domain.VideoCodecMPEG4, "divx": domain.VideoCodecMPEG4,
	"msmpeg4v3": domain.VideoCodecMPEG4, "mp4v": domain.VideoCodecMPEG4,
	"vc1": domain.VideoCodecVC1, "wvc1": domain.VideoCodecVC1, "wmv3": domain.VideoCodecVC1,
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// squash lowercases s and drops everything but letters and digits, so that
// "H.264", "h-264" and "H264" compare equal.
func squash(s string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "")
}

// NormalizeVideoCodec maps a provider codec name onto the canonical set.
func NormalizeVideoCodec(codec string) domain.VideoCodec {
	key := squash(codec)
	if c, ok := videoCodecAliases[key]; ok {
		return c
	}
	switch {
	case key == "":
		return domain.VideoCodecUnknown
	case strings.Contains(key, "hevc") || strings.Contains(key, "265"):
		return domain.VideoCodecHEVC
	case strings.Contains(key, "avc") || strings.Contains(key, "264"):
		return domain.VideoCodecH264
	case strings.HasPrefix(key, "mpeg2"):
		return domain.VideoCodecMPEG2
	case strings.HasPrefix(key, "mpeg4"):
		return domain.VideoCodecMPEG4
	}
	return domain.VideoCodecUnknown
}

// NormalizeAudioCodec maps a provider codec name, refined by its profile
// string, onto the canonical set. DTS variants are only distinguishable
// through the profile on most sources.
func NormalizeAudioCodec(codec, profile string) domain.AudioCodec {
	c := squash(codec)
	p := squash(profile)

	switch {
	case c == "":
		return domain.AudioCodecUnknown
	case strings.Contains(c, "truehd") || c == "mlp":
		return domain.AudioCodecTrueHD
	case strings.HasPrefix(c, "dts") || strings.HasPrefix(c, "dca"):
		both := c + " " + p
		switch {
		case strings.Contains(both, "ma") && (strings.Contains(both, "hd") || strings.Contains(c, "dca")),
			strings.Contains(both, "masteraudio"),
			strings.Contains(both, "dtsx"):
			return domain.AudioCodecDTSHDMA
		case strings.Contains(both, "hra"), strings.Contains(both, "highresolution"):
			return domain.AudioCodecDTSHDHRA
		}
		return domain.AudioCodecDTS
	case c == "eac3" || c == "ec3" || c == "ddp" || c == "ddplus" || strings.Contains(c, "eac3"):
		return domain.AudioCodecEAC3
	case c == "ac3" || c == "aac3" || c == "dd" || c == "dolbydigital":
		return domain.AudioCodecAC3
	case strings.HasPrefix(c, "aac") || c == "mp4a" || c == "heaac":
		return domain.AudioCodecAAC
	case c == "flac":
		return domain.AudioCodecFLAC
	case c == "alac":
		return domain.AudioCodecALAC
	case strings.HasPrefix(c, "pcm") || c == "lpcm":
		return domain.AudioCodecPCM
	case c == "mp3" || c == "mpeg1layer3" || c == "mp3float":
		return domain.AudioCodecMP3
	case c == "opus":
		return domain.AudioCodecOpus
	case c == "vorbis":
		return domain.AudioCodecVorbis
	case strings.HasPrefix(c, "wma"):
		return domain.AudioCodecWMA
	}
	return domain.AudioCodecUnknown
}

// IsObjectAudio reports whether any of the hints names an object-based
// format (Atmos or DTS:X).
func IsObjectAudio(hints ...string) bool {
	for _, h := range hints {
		s := squash(h)
		if strings.Contains(s, "atmos") || strings.Contains(s, "dtsx") {
			return true
		}
	}
	return false
}

// NormalizeResolution classifies by height or width; either dimension
// reaching a threshold is enough, so letterboxed 1920x800 is still 1080p.
func NormalizeResolution(width, height int) domain.Resolution {
	switch {
	case height >= 2160 || width >= 3840:
		return domain.Resolution4K
	case height >= 1080 || width >= 1920:
		return domain.Resolution1080p
	case height >= 720 || width >= 1280:
		return domain.Resolution720p
	case height >= 480 || width >= 720:
		return domain.Resolution480p
	}
	return domain.ResolutionSD
}

// ParseResolution reads a resolution label such as "1080", "4k", "uhd" or
// "720p". The second result is false when the label is not recognised.
func ParseResolution(label string) (domain.Resolution, bool) {
	switch s := squash(label); s {
	case "4k", "2160", "2160p", "uhd":
		return domain.Resolution4K, true
	case "1080", "1080p", "1080i", "fhd":
		return domain.Resolution1080p, true
	case "720", "720p", "hd":
		return domain.Resolution720p, true
	case "480", "480p", "576", "576p", "576i", "480i":
		return domain.Resolution480p, true
	case "sd":
		return domain.ResolutionSD, true
	}
	return domain.ResolutionSD, false
}

// NormalizeHDRFormat folds the range, primaries and transfer hints into one
// HDR format. Dolby Vision wins over HDR10 because DV profiles 7 and 8 carry
// an HDR10 base layer.
func NormalizeHDRFormat(rangeHint, colorPrimaries, transfer string, bitDepth int, profile string) domain.HDRFormat {
	r := strings.ToLower(rangeHint)
	tokens := strings.Fields(nonAlnumSpace.ReplaceAllString(r+" "+strings.ToLower(profile), " "))
	has := func(words ...string) bool {
		for _, t := range tokens {
			for _, w := range words {
				if t == w {
					return true
				}
			}
		}
		return false
	}
	joined := squash(rangeHint + " " + profile)
	tr := squash(transfer)

	switch {
	case strings.Contains(joined, "dolbyvision") || strings.Contains(joined, "dovi") ||
		has("dv", "dvhe", "dvh1", "dav1"):
		return domain.HDRDolbyVision
	case strings.Contains(joined, "hdr10plus") || strings.Contains(r, "hdr10+"):
		return domain.HDR10Plus
	case strings.Contains(joined, "hlg") || tr == "aribstdb67":
		return domain.HDRHLG
	case strings.Contains(joined, "hdr") || strings.Contains(joined, "pq") || tr == "smpte2084":
		return domain.HDR10
	case bitDepth >= 10 && squash(colorPrimaries) == "bt2020" && tr == "smpte2084":
		return domain.HDR10
	}
	return domain.HDRNone
}

var nonAlnumSpace = regexp.MustCompile(`[^a-z0-9+]+`)

// implausibleBitrateKbps is the largest value treated as kbps when no unit
// is given; anything above it is assumed to be bits per second.
const implausibleBitrateKbps = 200000

// NormalizeBitrate converts a raw bitrate to whole kbps. Unparseable and
// non-positive values yield 0.
func NormalizeBitrate(value interface{}, unit domain.BitrateUnit) int {
	v, err := cast.ToFloat64E(value)
	if err != nil || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	switch domain.BitrateUnit(strings.ToLower(string(unit))) {
	case domain.BitrateBps:
		v /= 1000
	case domain.BitrateMbps:
		v *= 1000
	case domain.BitrateKbps:
	default:
		if v > implausibleBitrateKbps {
			v /= 1000
		}
	}
	return int(math.Round(v))
}

// NormalizeFrameRate accepts a number or a rational string ("24000/1001")
// and rounds to three decimals.
func NormalizeFrameRate(value interface{}) float64 {
	var fps float64
	if s, ok := value.(string); ok && strings.Contains(s, "/") {
		num, den, _ := strings.Cut(strings.TrimSpace(s), "/")
		n, err1 := strconv.ParseFloat(strings.TrimSpace(num), 64)
		d, err2 := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0
		}
		fps = n / d
	} else {
		v, err := cast.ToFloat64E(value)
		if err != nil {
			return 0
		}
		fps = v
	}
	if fps <= 0 || fps > 1000 || math.IsNaN(fps) {
		return 0
	}
	return math.Round(fps*1000) / 1000
}

var layoutPattern = regexp.MustCompile(`(\d+)\.(\d)`)

// NormalizeAudioChannels prefers an explicit count and falls back to the
// layout string. Stereo is assumed when neither is usable.
func NormalizeAudioChannels(count int, layout string) int {
	if count > 0 {
		return count
	}
	l := strings.ToLower(layout)
	if m := layoutPattern.FindStringSubmatch(l); m != nil {
		main, _ := strconv.Atoi(m[1])
		lfe, _ := strconv.Atoi(m[2])
		if main+lfe > 0 {
			return main + lfe
		}
	}
	switch {
	case strings.Contains(l, "mono"):
		return 1
	case strings.Contains(l, "quad"):
		return 4
	}
	return 2
}

// NormalizeSampleRate returns Hz. Values under 1000 are read as kHz, and
// strings like "48 kHz" are accepted.
func NormalizeSampleRate(value interface{}) int {
	if s, ok := value.(string); ok {
		s = strings.ToLower(strings.TrimSpace(s))
		khz := strings.HasSuffix(s, "khz")
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(s, "khz"), "hz"))
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			return 0
		}
		if khz || v < 1000 {
			v *= 1000
		}
		return int(math.Round(v))
	}
	v, err := cast.ToFloat64E(value)
	if err != nil || v <= 0 {
		return 0
	}
	if v < 1000 {
		v *= 1000
	}
	return int(math.Round(v))
}

var containerAliases = map[string]string{
	"matroska": "mkv", "webm": "webm", "mov": "mp4", "mp4": "mp4", "m4v": "mp4",
	"mpegts": "ts", "mpeg-ts": "ts", "m2ts": "m2ts", "bluray": "m2ts",
	"avi": "avi", "mkv": "mkv", "ts": "ts", "wmv": "wmv", "asf": "wmv",
	"mpeg": "mpeg", "mpg": "mpeg", "vob": "mpeg", "flv": "flv", "ogg": "ogg",
}

// NormalizeContainer maps format names (including ffprobe's comma lists such
// as "mov,mp4,m4a,3gp,3g2,mj2") to a short extension-like name.
func NormalizeContainer(container string) string {
	c := strings.ToLower(strings.TrimSpace(container))
	if c == "" {
		return ""
	}
	first, _, _ := strings.Cut(c, ",")
	if alias, ok := containerAliases[strings.TrimSpace(first)]; ok {
		return alias
	}
	return strings.TrimPrefix(strings.TrimSpace(first), ".")
}

// NormalizeDuration converts a raw duration to milliseconds.
func NormalizeDuration(value float64, unit domain.DurationUnit) int64 {
	if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	switch unit {
	case domain.DurationTicks:
		return int64(value / 10000)
	case domain.DurationSeconds:
		return int64(math.Round(value * 1000))
	default:
		return int64(math.Round(value))
	}
}
