package ioplugin

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/oddlab/reeltime/iodata"
	"github.com/oddlab/reeltime/timeline"
)

// FFmpegPlugin decodes any format FFmpeg itself understands, driven the same
// way the teacher's audio input devices drive it: an exec.Cmd built with
// github.com/u2takey/ffmpeg-go's fluent Input/Output builder, piping raw
// decoded samples/frames back over stdout (audio/ffmpegbase.go's
// Input(...).Output("pipe:", ...).WithOutput(...) shape), except here each
// call is a single bounded invocation rather than a long-lived streaming
// process, since ReadVideo/ReadAudio are one-result-per-call futures rather
// than a continuous capture loop.
type FFmpegPlugin struct {
	// FFmpegPath/FFprobePath override the binaries on PATH, mirroring the
	// teacher's ShaderOptions.FFMPEGPath passthrough.
	FFmpegPath  string
	FFprobePath string
}

// NewFFmpegPlugin returns a Factory suitable for ioplugin.Registry.Register.
func NewFFmpegPlugin() Factory {
	return func() Plugin { return &FFmpegPlugin{} }
}

type probeFormat struct {
	Duration string            `json:"duration"`
	Tags     map[string]string `json:"tags"`
}

type probeStream struct {
	CodecType     string `json:"codec_type"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	PixFmt        string `json:"pix_fmt"`
	RFrameRate    string `json:"r_frame_rate"`
	Channels      int    `json:"channels"`
	SampleRateStr string `json:"sample_rate"`
}

type probeResult struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

// GetInfo shells out to ffprobe for stream metadata. FFmpeg itself has no
// JSON probe mode, so this uses ffprobe directly rather than ffmpeg-go
// (which only wraps the ffmpeg binary); the two ship together in any FFmpeg
// install.
func (p *FFmpegPlugin) GetInfo(ctx context.Context, path string) (Info, error) {
	ffprobe := p.FFprobePath
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return Info{}, fmt.Errorf("ioplugin: ffprobe failed for %q: %w", path, err)
	}

	var probed probeResult
	if err := json.Unmarshal(out, &probed); err != nil {
		return Info{}, fmt.Errorf("ioplugin: parsing ffprobe output for %q: %w", path, err)
	}

	info := Info{Tags: probed.Format.Tags}
	durationSeconds, _ := strconv.ParseFloat(probed.Format.Duration, 64)

	for _, s := range probed.Streams {
		switch s.CodecType {
		case "video":
			info.Videos = append(info.Videos, ImageInfo{
				Size:      [2]int{s.Width, s.Height},
				PixelType: pixelTypeFromFFmpeg(s.PixFmt),
				Rate:      parseFrameRate(s.RFrameRate),
			})
			info.VideoRange = timeline.TimeRange{
				Start:    timeline.NewRationalTime(0, parseFrameRate(s.RFrameRate)),
				Duration: timeline.FromSeconds(durationSeconds, parseFrameRate(s.RFrameRate)),
			}
		case "audio":
			sampleRate, _ := strconv.Atoi(s.SampleRateStr)
			info.Audio = AudioInfo{Channels: s.Channels, SampleRate: sampleRate}
			info.AudioRange = timeline.TimeRange{
				Start:    timeline.NewRationalTime(0, 1),
				Duration: timeline.FromSeconds(durationSeconds, 1),
			}
		}
	}
	return info, nil
}

// ReadVideo decodes the single frame nearest at and returns it as packed
// 8-bit RGBA, the simplest pixel type every ffmpeg build can always produce
// regardless of the source's native format — matching "YUVToRGBConversion"
// in ReadOptions when requested, and leaving planar YUV output (closer to
// the source) as a later option-driven path rather than the default.
func (p *FFmpegPlugin) ReadVideo(ctx context.Context, path string, at timeline.RationalTime, opts ReadOptions) (iodata.VideoData, error) {
	seconds := at.Seconds()

	outputArgs := ffmpeg.KwArgs{
		"ss":      fmt.Sprintf("%.6f", seconds),
		"vframes": "1",
		"f":       "rawvideo",
		"pix_fmt": "rgba",
	}
	if opts.Layer > 0 {
		outputArgs["map"] = fmt.Sprintf("0:v:%d", opts.Layer)
	}

	buf, err := runFFmpeg(ctx, p.FFmpegPath, path, outputArgs)
	if err != nil {
		return iodata.VideoData{}, err
	}
	if buf.Len() == 0 {
		// No decoded frame available at this time; an empty VideoData is
		// the documented "hold last good frame" sentinel, not an error.
		return iodata.VideoData{Time: at}, nil
	}

	return iodata.VideoData{
		Time: at,
		Layers: []iodata.VideoLayer{{
			Image: &iodata.Image{
				PixelType: iodata.PixelRGBA_U8,
				Layout:    iodata.LayoutPacked,
				Channels:  4,
				Data:      buf.Bytes(),
			},
		}},
	}, nil
}

// ReadAudio decodes one second of interleaved float32 PCM at the stream's
// native channel count/sample rate, labeled by whole-second index per the
// cache's second-indexed storage convention.
func (p *FFmpegPlugin) ReadAudio(ctx context.Context, path string, second timeline.TimeRange, opts ReadOptions) (iodata.AudioData, error) {
	startSeconds := second.Start.Seconds()
	durSeconds := second.Duration.Seconds()

	outputArgs := ffmpeg.KwArgs{
		"ss": fmt.Sprintf("%.6f", startSeconds),
		"t":  fmt.Sprintf("%.6f", durSeconds),
		"f":  "f32le",
		"c:a": "pcm_f32le",
	}

	buf, err := runFFmpeg(ctx, p.FFmpegPath, path, outputArgs)
	if err != nil {
		return iodata.AudioData{}, err
	}

	secondIndex := int64(startSeconds + 0.5)
	if buf.Len() == 0 {
		return iodata.AudioData{SecondIndex: secondIndex}, nil
	}

	samples := make([]float32, buf.Len()/4)
	if err := binary.Read(bytes.NewReader(buf.Bytes()), binary.LittleEndian, &samples); err != nil {
		return iodata.AudioData{}, fmt.Errorf("ioplugin: decoding PCM for %q: %w", path, err)
	}

	channels := 2
	sampleRate := 44100
	if opts.Extra != nil {
		if v, ok := opts.Extra["Channels"]; ok {
			if n, err := strconv.Atoi(v); err == nil {
				channels = n
			}
		}
		if v, ok := opts.Extra["SampleRate"]; ok {
			if n, err := strconv.Atoi(v); err == nil {
				sampleRate = n
			}
		}
	}

	return iodata.AudioData{
		SecondIndex: secondIndex,
		Layers: []iodata.AudioLayer{{
			Samples:    samples,
			Channels:   channels,
			SampleRate: sampleRate,
			ClipRange:  second,
		}},
	}, nil
}

// runFFmpeg invokes ffmpeg with a single input and the given output
// arguments, returning the raw stdout bytes.
func runFFmpeg(ctx context.Context, ffmpegPath, inputPath string, outputArgs ffmpeg.KwArgs) (*bytes.Buffer, error) {
	var out bytes.Buffer
	node := ffmpeg.Input(inputPath, ffmpeg.KwArgs{})
	cmd := node.Output("pipe:", outputArgs).WithOutput(&out).ErrorToStdOut()
	if ffmpegPath != "" {
		cmd.SetFfmpegPath(ffmpegPath)
	}

	compiled := cmd.Compile()
	compiled = exec.CommandContext(ctx, compiled.Path, compiled.Args[1:]...)
	if err := compiled.Run(); err != nil {
		return nil, fmt.Errorf("ioplugin: ffmpeg failed for %q: %w", inputPath, err)
	}
	return &out, nil
}

func parseFrameRate(rate string) int64 {
	parts := strings.SplitN(rate, "/", 2)
	if len(parts) != 2 {
		n, _ := strconv.ParseInt(rate, 10, 64)
		if n == 0 {
			return 24
		}
		return n
	}
	num, _ := strconv.ParseInt(parts[0], 10, 64)
	den, _ := strconv.ParseInt(parts[1], 10, 64)
	if den == 0 || num == 0 {
		return 24
	}
	return num / den
}

func pixelTypeFromFFmpeg(pixFmt string) iodata.PixelType {
	switch pixFmt {
	case "yuv420p":
		return iodata.PixelYUV_420P_U8
	case "yuv422p":
		return iodata.PixelYUV_422P_U8
	case "yuv444p":
		return iodata.PixelYUV_444P_U8
	case "yuv420p10le", "yuv420p16le":
		return iodata.PixelYUV_420P_U16
	case "rgba":
		return iodata.PixelRGBA_U8
	case "rgb24":
		return iodata.PixelRGB_U8
	default:
		return iodata.PixelYUV_420P_U8
	}
}
