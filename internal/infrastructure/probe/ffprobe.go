// Package probe reads stream details out of media files with ffprobe.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/spf13/cast"
	"golang.org/x/sync/semaphore"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
	"github.com/narwhalmedia/catalog/pkg/interfaces"
)

// output is the subset of `ffprobe -print_format json` we read.
type output struct {
	Format  format   `json:"format"`
	Streams []stream `json:"streams"`
}

type format struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

type stream struct {
	Index          int               `json:"index"`
	CodecType      string            `json:"codec_type"`
	CodecName      string            `json:"codec_name"`
	Profile        string            `json:"profile"`
	Width          int               `json:"width"`
	Height         int               `json:"height"`
	BitRate        string            `json:"bit_rate"`
	RFrameRate     string            `json:"r_frame_rate"`
	AvgFrameRate   string            `json:"avg_frame_rate"`
	BitsPerRaw     string            `json:"bits_per_raw_sample"`
	PixFmt         string            `json:"pix_fmt"`
	ColorTransfer  string            `json:"color_transfer"`
	ColorPrimaries string            `json:"color_primaries"`
	Channels       int               `json:"channels"`
	ChannelLayout  string            `json:"channel_layout"`
	SampleRate     string            `json:"sample_rate"`
	Tags           map[string]string `json:"tags"`
	Disposition    struct {
		Default int `json:"default"`
	} `json:"disposition"`
	SideDataList []struct {
		SideDataType string `json:"side_data_type"`
		DVProfile    int    `json:"dv_profile"`
	} `json:"side_data_list"`
}

// RunFunc executes the probe binary and returns its stdout.
type RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// FFProbe implements the local adapter's FileAnalyzer.
type FFProbe struct {
	binary string
	run    RunFunc
	sem    *semaphore.Weighted
	logger interfaces.Logger
}

// New locates the ffprobe binary. binary may be a path or a name looked up
// in PATH; empty means "ffprobe". concurrency bounds parallel processes.
func New(binary string, concurrency int, logger interfaces.Logger) (*FFProbe, error) {
	if binary == "" {
		binary = "ffprobe"
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found: %w", err)
	}
	return NewWithRunner(resolved, concurrency, execRun, logger), nil
}

// NewWithRunner builds a prober around a custom runner.
func NewWithRunner(binary string, concurrency int, run RunFunc, logger interfaces.Logger) *FFProbe {
	if concurrency < 1 {
		concurrency = 1
	}
	return &FFProbe{
		binary: binary,
		run:    run,
		sem:    semaphore.NewWeighted(int64(concurrency)),
		logger: logger,
	}
}

// Analyze probes path.
func (p *FFProbe) Analyze(ctx context.Context, path string) (*domain.SourceMetadata, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	out, err := p.run(ctx, p.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path)
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	md, err := Parse(out)
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	md.FilePath = path

	p.logger.Debug("Probed file",
		interfaces.String("path", path),
		interfaces.Int("audio_streams", len(md.Audio)))
	return md, nil
}

// Parse converts ffprobe JSON output.
func Parse(data []byte) (*domain.SourceMetadata, error) {
	var out output
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}

	md := &domain.SourceMetadata{
		FileSizeBytes: cast.ToInt64(out.Format.Size),
		Container:     strings.Split(out.Format.FormatName, ",")[0],
		Duration:      cast.ToFloat64(out.Format.Duration),
		DurationUnit:  domain.DurationSeconds,
		Bitrate:       cast.ToFloat64(out.Format.BitRate),
		BitrateUnit:   domain.BitrateBps,
	}

	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			// Cover art is reported as a video stream.
			if md.Video != nil || s.CodecName == "mjpeg" || s.CodecName == "png" {
				continue
			}
			md.Video = videoStream(s)
		case "audio":
			md.Audio = append(md.Audio, audioStream(s))
		}
	}
	return md, nil
}

func videoStream(s stream) *domain.VideoStream {
	v := &domain.VideoStream{
		Codec:          s.CodecName,
		Profile:        s.Profile,
		Width:          s.Width,
		Height:         s.Height,
		Bitrate:        cast.ToFloat64(s.BitRate),
		BitrateUnit:    domain.BitrateBps,
		BitDepth:       cast.ToInt(s.BitsPerRaw),
		ColorPrimaries: s.ColorPrimaries,
		ColorTransfer:  s.ColorTransfer,
	}

	v.FrameRate = s.AvgFrameRate
	if v.FrameRate == "" || v.FrameRate == "0/0" {
		v.FrameRate = s.RFrameRate
	}
	if v.BitDepth == 0 && strings.Contains(s.PixFmt, "10") {
		v.BitDepth = 10
	}

	for _, sd := range s.SideDataList {
		switch {
		case strings.Contains(strings.ToLower(sd.SideDataType), "dovi"):
			v.RangeHint = "DOVI"
		case strings.Contains(strings.ToLower(sd.SideDataType), "hdr dynamic metadata") && v.RangeHint == "":
			v.RangeHint = "HDR10+"
		}
	}
	return v
}

func audioStream(s stream) domain.AudioStream {
	title := s.Tags["title"]
	return domain.AudioStream{
		Index:         s.Index,
		Codec:         s.CodecName,
		Profile:       s.Profile,
		Channels:      s.Channels,
		ChannelLayout: s.ChannelLayout,
		Bitrate:       cast.ToFloat64(s.BitRate),
		BitrateUnit:   domain.BitrateBps,
		SampleRate:    s.SampleRate,
		Language:      s.Tags["language"],
		Title:         title,
		IsDefault:     s.Disposition.Default == 1,
		ObjectAudio:   strings.Contains(strings.ToLower(s.Profile), "atmos") || strings.Contains(strings.ToLower(title), "atmos"),
	}
}
