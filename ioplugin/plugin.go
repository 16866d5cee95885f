// Package ioplugin models the I/O collaborator contract of spec.md §6: an
// external demux/decode service reached through a capability set
// (get_info, read_video, read_audio, cancel) implemented by a tagged variant
// per media format (spec.md §9 "Dynamic dispatch over I/O plugins").
//
// Plugin selection is by filename extension table, generalizing the
// teacher's switch-on-CType channel dispatch (inputs/channels.go) into a
// registry.
package ioplugin

import (
	"context"

	"github.com/oddlab/reeltime/iodata"
	"github.com/oddlab/reeltime/timeline"
)

// ImageInfo describes one decodable video stream.
type ImageInfo struct {
	Size      [2]int
	PixelType iodata.PixelType
	Rate      int64 // frame rate, Hz
}

// AudioInfo describes one decodable audio stream.
type AudioInfo struct {
	Channels   int
	SampleRate int
}

// Info is the result of get_info: stream metadata plus tags.
type Info struct {
	Videos     []ImageInfo
	Audio      AudioInfo
	VideoRange timeline.TimeRange
	AudioRange timeline.TimeRange
	Tags       map[string]string
}

// ReadOptions carries the recognized option strings from spec.md §6 plus any
// codec-specific keys the core passes through unchanged.
type ReadOptions struct {
	Layer              int
	ClearFrame         bool
	YUVToRGBConversion bool
	Extra              map[string]string
}

// Plugin is the capability set a format-specific decoder implements.
type Plugin interface {
	GetInfo(ctx context.Context, path string) (Info, error)
	ReadVideo(ctx context.Context, path string, at timeline.RationalTime, opts ReadOptions) (iodata.VideoData, error)
	ReadAudio(ctx context.Context, path string, second timeline.TimeRange, opts ReadOptions) (iodata.AudioData, error)
}

// Factory constructs a Plugin instance; registries keep one Factory per
// recognized filename extension.
type Factory func() Plugin
