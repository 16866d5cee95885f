package audio

import (
	"math"

	"github.com/oddlab/reeltime/player"
)

// RenderOffline renders the whole timeline range of pl to a single
// interleaved PCM buffer at outChannels/outRate, for export rather than
// realtime playback. Unlike Engine.Render it does not read an AudioSnapshot
// or hold a carry buffer across calls — it runs once, synchronously, driven
// by a plain loop over timeline seconds rather than a device callback, and
// it always renders forward regardless of the Player's current playback
// direction (export always produces the clip in its natural order).
//
// Layers are mixed with the same fades/channel-mute/volume rules as the
// realtime path, but volume/channel-mute are read once at the start rather
// than per-callback, since there is no live control surface to reflect
// mid-export.
func RenderOffline(pl *player.Player, outChannels, outRate int) ([]float32, error) {
	snap := pl.ConsumeAudioSnapshot()
	timelineRange := pl.TimelineRange()

	totalSeconds := int64(math.Ceil(timelineRange.Duration.Seconds()))
	out := make([]float32, 0, totalSeconds*int64(outRate)*int64(outChannels))

	resampler := (*Resampler)(nil)
	var lastInRate, lastOutRate int

	for second := int64(0); second < totalSeconds; second++ {
		data, ok := pl.Cache().Audio(second)
		if !ok || data.Empty() {
			// Silence for this second rather than aborting the export: a
			// gap in the source shouldn't truncate everything after it.
			out = append(out, make([]float32, outRate*outChannels)...)
			continue
		}

		mixed, channels, sampleRate := mixSecond(data, snap, second, timelineRange)
		if sampleRate <= 0 || channels <= 0 || len(mixed) == 0 {
			out = append(out, make([]float32, outRate*outChannels)...)
			continue
		}

		if resampler == nil || lastInRate != sampleRate || lastOutRate != outRate {
			resampler = NewResampler(sampleRate, outRate)
			lastInRate, lastOutRate = sampleRate, outRate
		}
		resampled := resampler.Resample(mixed, channels)
		converted := toDeviceChannels(resampled, channels, outChannels)
		out = append(out, converted...)
	}

	return out, nil
}
