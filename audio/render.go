package audio

import (
	"sync"
	"time"

	"github.com/oddlab/reeltime/iodata"
	"github.com/oddlab/reeltime/player"
	"github.com/oddlab/reeltime/timeline"
)

// Engine renders the realtime device callback's output buffer from a
// Player's cache, one call at a time. It is driven from the audio device's
// callback goroutine (portaudio's, in the wired device) and never touches
// the Player's cache/worker mutex — only AudioSnapshot, via
// Player.ConsumeAudioSnapshot.
type Engine struct {
	mu sync.Mutex

	resampler *Resampler

	position timeline.RationalTime // read head, timeline rate
	carry    []float32             // leftover device-channel frames from the previous call

	haveRate    bool
	lastInRate  int
	lastOutRate int
}

// NewEngine creates an idle Engine. Call Render from the device callback.
func NewEngine() *Engine {
	return &Engine{}
}

// Render fills out (interleaved, deviceChannels channels) with the next
// nFrames of audio at deviceRate for pl, or silence when stopped, muted,
// within the mute timeout, or underrunning the cache.
func (e *Engine) Render(pl *player.Player, out []float32, deviceChannels, deviceRate int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range out {
		out[i] = 0
	}
	if deviceChannels <= 0 || deviceRate <= 0 {
		return
	}
	nFrames := len(out) / deviceChannels

	snap := pl.ConsumeAudioSnapshot()
	timelineRange := pl.TimelineRange()
	if snap.Playback == player.Stop {
		e.reset()
		return
	}
	if snap.Reset {
		offset := timeline.FromSeconds(snap.AudioOffset.Seconds(), timelineRange.Start.Rate)
		e.position = snap.PlaybackStartTime.Sub(offset)
		e.carry = nil
	}

	now := time.Now()
	if snap.Mute || now.Before(snap.MuteTimeout) {
		e.advance(snap, nFrames, deviceRate)
		return
	}

	forward := snap.Playback == player.Forward

	filled := 0
	if len(e.carry) > 0 {
		filled = copyFrames(out, 0, e.carry, deviceChannels, deviceChannels)
		e.carry = e.carry[filled*deviceChannels:]
	}

	for filled < nFrames {
		second := e.position.Sub(timelineRange.Start).RescaleFloor(1).Value
		data, ok := pl.Cache().Audio(second)
		if !ok || data.Empty() {
			break // underrun: leave the remainder silent and hold position
		}

		mixed, channels, sampleRate := mixSecond(data, snap, second, timelineRange)
		if sampleRate <= 0 || channels <= 0 || len(mixed) == 0 {
			break
		}

		outputRate := effectiveOutputRate(deviceRate, snap)
		e.rebuildResamplerIfNeeded(sampleRate, outputRate)
		resampled := e.resampler.Resample(mixed, channels)
		if !forward {
			reverseInterleaved(resampled, channels)
		}
		deviceBuf := toDeviceChannels(resampled, channels, deviceChannels)

		copied := copyFrames(out, filled, deviceBuf, deviceChannels, deviceChannels)
		filled += copied
		if copied*deviceChannels < len(deviceBuf) {
			e.carry = append([]float32(nil), deviceBuf[copied*deviceChannels:]...)
		}

		if forward {
			e.position = e.position.Add(timeline.NewRationalTime(1, 1))
		} else {
			e.position = e.position.Sub(timeline.NewRationalTime(1, 1))
		}
	}
}

func (e *Engine) reset() {
	e.position = timeline.RationalTime{}
	e.carry = nil
	e.resampler = nil
	e.haveRate = false
}

// advance moves the read position by the timeline time that nFrames of
// device output cover (backward in Reverse) while muted, so un-muting
// resumes in sync with the timeline.
func (e *Engine) advance(snap player.AudioSnapshot, nFrames, deviceRate int) {
	seconds := float64(nFrames) / float64(deviceRate) * (snap.Speed / nonZero(snap.DefaultSpeed))
	delta := timeline.FromSeconds(seconds, e.position.Rate)
	if snap.Playback == player.Reverse {
		delta = delta.Neg()
	}
	if e.position.Rate == 0 {
		e.position = snap.PlaybackStartTime
	}
	e.position = e.position.Add(delta)
}

func (e *Engine) rebuildResamplerIfNeeded(inRate, outRate int) {
	if e.haveRate && e.lastInRate == inRate && e.lastOutRate == outRate {
		return
	}
	e.resampler = NewResampler(inRate, outRate)
	e.lastInRate, e.lastOutRate = inRate, outRate
	e.haveRate = true
}

// effectiveOutputRate computes the resample target rate: the device plays at
// deviceRate, but when speed diverges from default_speed the source is
// resampled to a faster or slower rate so the device still consumes samples
// at its fixed rate while the timeline advances at the current speed.
func effectiveOutputRate(deviceRate int, snap player.AudioSnapshot) int {
	speed := snap.Speed
	if speed == 0 {
		speed = snap.DefaultSpeed
	}
	if speed == 0 {
		return deviceRate
	}
	rate := float64(deviceRate) * snap.DefaultSpeed / speed
	if rate <= 0 {
		return deviceRate
	}
	return int(rate + 0.5)
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

// mixSecond sums every non-fully-muted layer of data into one interleaved
// buffer at the layer-declared channel count/sample rate, applying transition
// fades, per-channel mute, and global volume.
func mixSecond(data *iodata.AudioData, snap player.AudioSnapshot, second int64, timelineRange timeline.TimeRange) ([]float32, int, int) {
	if data.Empty() {
		return nil, 0, 0
	}

	channels, sampleRate := 0, 0
	for _, l := range data.Layers {
		if len(l.Samples) > 0 {
			channels, sampleRate = l.Channels, l.SampleRate
			break
		}
	}
	if channels <= 0 || sampleRate <= 0 {
		return nil, 0, 0
	}

	secondStart := timelineRange.Start.Add(timeline.NewRationalTime(second, 1))
	mixed := make([]float32, 0)

	for _, layer := range data.Layers {
		if len(layer.Samples) == 0 || layer.Channels != channels {
			continue
		}
		buf := append([]float32(nil), layer.Samples...)
		sinceClipStart := secondStart.Sub(layer.ClipRange.Start).Seconds()
		applyTransitionFades(buf, channels, sampleRate, layer, sinceClipStart)
		applyChannelMute(buf, channels, layer, snap.ChannelMute)

		if len(mixed) == 0 {
			mixed = make([]float32, len(buf))
		}
		n := len(buf)
		if n > len(mixed) {
			grown := make([]float32, n)
			copy(grown, mixed)
			mixed = grown
		}
		for i := 0; i < n; i++ {
			mixed[i] += buf[i]
		}
	}

	for i := range mixed {
		mixed[i] *= float32(snap.Volume)
	}
	return mixed, channels, sampleRate
}

// applyChannelMute zeroes the channels named in muted, plus every channel of
// a layer that is itself flagged as originating from a muted source.
func applyChannelMute(samples []float32, channels int, layer iodata.AudioLayer, muted []int) {
	if layer.ChannelMuteSource {
		for i := range samples {
			samples[i] = 0
		}
		return
	}
	if len(muted) == 0 {
		return
	}
	muteSet := make(map[int]struct{}, len(muted))
	for _, c := range muted {
		muteSet[c] = struct{}{}
	}
	frames := len(samples) / channels
	for c := 0; c < channels; c++ {
		if _, ok := muteSet[c]; !ok {
			continue
		}
		for i := 0; i < frames; i++ {
			samples[i*channels+c] = 0
		}
	}
}

// toDeviceChannels converts an interleaved buffer from srcChannels to
// dstChannels channels per frame, over its full length (truncating extra
// source channels, zero-filling extra destination channels). Stereo-to-mono
// is special-cased to average both channels rather than discard the right
// one, the same choice the teacher's DownmixStereoToMono makes.
func toDeviceChannels(src []float32, srcChannels, dstChannels int) []float32 {
	if srcChannels == dstChannels {
		return src
	}
	if srcChannels == 2 && dstChannels == 1 {
		return DownmixStereoToMono(src)
	}
	frames := len(src) / srcChannels
	out := make([]float32, frames*dstChannels)
	for i := 0; i < frames; i++ {
		for c := 0; c < dstChannels; c++ {
			if c < srcChannels {
				out[i*dstChannels+c] = src[i*srcChannels+c]
			}
		}
	}
	return out
}

// copyFrames copies as many whole frames as fit from src (srcChannels
// channels) into dst (dstChannels channels) starting at dst frame offset
// dstFrameOffset, down/up-mixing by channel truncation or zero-padding.
// Returns the number of frames written.
func copyFrames(dst []float32, dstFrameOffset int, src []float32, dstChannels, srcChannels int) int {
	if dstChannels <= 0 || srcChannels <= 0 {
		return 0
	}
	dstFrames := len(dst) / dstChannels
	srcFrames := len(src) / srcChannels
	avail := dstFrames - dstFrameOffset
	if avail <= 0 {
		return 0
	}
	n := srcFrames
	if n > avail {
		n = avail
	}
	for i := 0; i < n; i++ {
		for c := 0; c < dstChannels; c++ {
			if c < srcChannels {
				dst[(dstFrameOffset+i)*dstChannels+c] = src[i*srcChannels+c]
			}
		}
	}
	return n
}
