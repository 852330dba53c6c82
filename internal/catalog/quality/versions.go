package quality

import (
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
)

var (
	editionTagPattern   = regexp.MustCompile(`(?i)\{edition-([^}]+)\}`)
	bracketedPattern    = regexp.MustCompile(`\[[^\]]*\]|\{[^}]*\}`)
	resolutionToken     = regexp.MustCompile(`^\d{3,4}[pi]$`)
	bitDepthToken       = regexp.MustCompile(`^\d{1,2}-?bits?$`)
	integerToken        = regexp.MustCompile(`^\d+$`)
	channelLayoutToken  = regexp.MustCompile(`^\d\.\d$`)
	codecWithDigitToken = regexp.MustCompile(`^(ddp?|dd\+|aac|ac3|eac3|e-ac-3|dts|truehd|flac|opus|lpcm|pcm|atmos|x26|h26)\d+(\.\d)?$`)
)

// MediaExtensions lists the file extensions treated as media files.
var MediaExtensions = map[string]bool{
	".mkv": true, ".mp4": true, ".m4v": true, ".avi": true, ".mov": true,
	".wmv": true, ".ts": true, ".m2ts": true, ".mpg": true, ".mpeg": true,
	".webm": true, ".flv": true, ".vob": true, ".iso": true,
}

var technicalPhrases = []string{
	"dolby vision", "dolby atmos", "dolby digital plus", "dolby digital",
	"dts-hd ma", "dts hd ma", "dts-hd hra", "dts-hd", "dts hd", "dts-x", "dts x",
	"true hd", "truehd atmos", "hdr10 plus", "web dl", "web-dl", "blu ray", "blu-ray",
	"ultra hd", "master audio", "high resolution audio",
}

var technicalTokens = toSet(
	// resolutions and sources
	"4k", "uhd", "fhd", "hd", "sd", "2160p", "1080p", "720p", "480p", "576p",
	"bluray", "bdrip", "brrip", "bdremux", "remux", "bd", "uhdbd", "webdl", "web", "webrip",
	"hdtv", "dvd", "dvdrip", "hdrip", "dvd5", "dvd9", "amzn", "nf", "dsnp", "hmax", "atvp",
	// video
	"x264", "x265", "h264", "h265", "h", "hevc", "avc", "av1", "vp9", "xvid", "divx",
	"mpeg2", "vc1", "vc-1", "10bit", "8bit", "hi10p",
	// audio
	"aac", "ac3", "eac3", "dd", "ddp", "dd+", "dts", "dtshd", "dts-hd", "ma", "hra", "truehd",
	"atmos", "flac", "pcm", "lpcm", "mp3", "opus", "dts-x", "dtsx", "stereo", "mono",
	// hdr
	"hdr", "hdr10", "hdr10+", "hdr10plus", "dv", "dovi", "hlg", "sdr",
	// release descriptors
	"proper", "repack", "internal", "hybrid", "limited", "rerip", "multi", "dubbed", "subbed",
)

func toSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// VersionNameExtractor labels quality variants of one title by diffing
// their file names against each other.
type VersionNameExtractor struct {
	caser cases.Caser
}

// NewVersionNameExtractor creates an extractor.
func NewVersionNameExtractor() *VersionNameExtractor {
	return &VersionNameExtractor{caser: cases.Title(language.English, cases.NoLower)}
}

// Assign fills Edition and Label on every version in place. Editions are
// only derived when there are at least two versions to compare.
func (x *VersionNameExtractor) Assign(versions []domain.MediaVersion) {
	if len(versions) >= 2 {
		x.assignEditions(versions)
	}
	for i := range versions {
		versions[i].Label = VersionLabel(versions[i].Resolution, versions[i].HDRFormat, versions[i].Edition)
	}
}

func (x *VersionNameExtractor) assignEditions(versions []domain.MediaVersion) {
	// Only untagged variants are diffed against each other; a tagged file
	// name shares nothing meaningful with them.
	var pending []int
	for i, v := range versions {
		if m := editionTagPattern.FindStringSubmatch(filepath.Base(v.FilePath)); m != nil {
			versions[i].Edition = strings.TrimSpace(m[1])
			continue
		}
		pending = append(pending, i)
	}
	if len(pending) < 2 {
		for _, i := range pending {
			versions[i].Edition = ""
		}
		return
	}

	names := make([][]string, len(pending))
	for j, i := range pending {
		names[j] = strings.Fields(normalizeBasename(versions[i].FilePath))
	}
	prefix := commonWordPrefix(names)

	for j, i := range pending {
		edition := stripTechnical(strings.Join(names[j][prefix:], " "))
		if edition == "" {
			versions[i].Edition = ""
			continue
		}
		versions[i].Edition = x.caser.String(edition)
	}
}

// VersionLabel composes "resolution [hdr] [edition]".
func VersionLabel(res domain.Resolution, hdr domain.HDRFormat, edition string) string {
	parts := []string{string(res)}
	if hdr != "" && hdr != domain.HDRNone {
		parts = append(parts, string(hdr))
	}
	if edition != "" {
		parts = append(parts, edition)
	}
	return strings.Join(parts, " ")
}

// normalizeBasename strips a media extension and turns separators into
// single spaces.
func normalizeBasename(path string) string {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); MediaExtensions[strings.ToLower(ext)] {
		base = strings.TrimSuffix(base, ext)
	}
	base = strings.NewReplacer(".", " ", "_", " ").Replace(base)
	return strings.Join(strings.Fields(base), " ")
}

// commonWordPrefix returns the number of leading words shared by every name,
// compared case-insensitively.
func commonWordPrefix(names [][]string) int {
	if len(names) == 0 {
		return 0
	}
	n := 0
	for {
		if n >= len(names[0]) {
			return n
		}
		word := names[0][n]
		for _, name := range names[1:] {
			if n >= len(name) || !strings.EqualFold(name[n], word) {
				return n
			}
		}
		n++
	}
}

const edgePunctuation = " -_.,;:+~|/\\()[]{}'\""

// stripTechnical removes bracketed segments, technical phrases and
// technical tokens, returning whatever human text is left.
func stripTechnical(s string) string {
	s = bracketedPattern.ReplaceAllString(s, " ")
	s = strings.NewReplacer("(", " ", ")", " ").Replace(s)

	lower := strings.ToLower(s)
	if len(lower) != len(s) {
		// Case folding changed byte offsets; match phrases as written.
		lower = s
	}
	for _, phrase := range technicalPhrases {
		for {
			idx := indexWord(lower, phrase)
			if idx < 0 {
				break
			}
			s = s[:idx] + " " + s[idx+len(phrase):]
			lower = lower[:idx] + " " + lower[idx+len(phrase):]
		}
	}

	var kept []string
	for _, word := range strings.Fields(s) {
		if isTechnicalToken(word) {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Trim(strings.Join(kept, " "), edgePunctuation)
}

// indexWord finds phrase in s on word boundaries.
func indexWord(s, phrase string) int {
	offset := 0
	for {
		idx := strings.Index(s[offset:], phrase)
		if idx < 0 {
			return -1
		}
		start := offset + idx
		end := start + len(phrase)
		if (start == 0 || s[start-1] == ' ') && (end == len(s) || s[end] == ' ') {
			return start
		}
		offset = start + 1
	}
}

func isTechnicalToken(word string) bool {
	w := strings.ToLower(strings.Trim(word, edgePunctuation))
	if w == "" {
		return true
	}
	if technicalTokens[w] {
		return true
	}
	if resolutionToken.MatchString(w) || bitDepthToken.MatchString(w) ||
		integerToken.MatchString(w) || channelLayoutToken.MatchString(w) ||
		codecWithDigitToken.MatchString(w) {
		return true
	}
	// Release group suffixes such as "x264-GROUP" or "BluRay-GROUP".
	if head, _, ok := strings.Cut(w, "-"); ok && head != "" && isTechnicalToken(head) {
		return true
	}
	return false
}
