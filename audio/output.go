package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/oddlab/reeltime/player"
)

// meterSeconds is how much history Output.meter retains for a level-meter or
// visualizer consumer to read back.
const meterSeconds = 2

// Output is the realtime audio device: a portaudio output stream whose
// callback pulls already-mixed samples from an Engine reading a Player's
// cache, mirroring the input-side Microphone's portaudio lifecycle
// (Initialize/OpenStream/Start/Stop/Terminate) but as a producer-callback
// rather than a channel producer.
type Output struct {
	stream     *portaudio.Stream
	engine     *Engine
	channels   int
	sampleRate int
	streaming  bool

	// meter mirrors every callback's output for a passive reader (a level
	// meter or waveform visualizer) without that reader contending with the
	// realtime callback for the Engine itself.
	meter *SharedAudioBuffer
}

// NewOutput opens the default output device at sampleRate/channels, wired to
// render from pl via an Engine.
func NewOutput(pl *player.Player, channels, sampleRate int) (*Output, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	o := &Output{
		engine:     NewEngine(),
		channels:   channels,
		sampleRate: sampleRate,
		meter:      NewSharedAudioBuffer(channels * sampleRate * meterSeconds),
	}

	host, err := portaudio.DefaultHostApi()
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	params := portaudio.HighLatencyParameters(nil, host.DefaultOutputDevice)
	params.Output.Channels = channels
	params.SampleRate = float64(sampleRate)

	callback := func(out []float32) {
		o.engine.Render(pl, out, channels, sampleRate)
		o.meter.Write(out, pl.Playback().Get() == player.Reverse)
	}

	stream, err := portaudio.OpenStream(params, callback)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open audio output stream: %w", err)
	}
	o.stream = stream
	return o, nil
}

// Start begins the realtime callback loop.
func (o *Output) Start() error {
	if err := o.stream.Start(); err != nil {
		return fmt.Errorf("failed to start audio output stream: %w", err)
	}
	o.streaming = true
	return nil
}

// Stop halts the stream and releases portaudio resources.
func (o *Output) Stop() error {
	if !o.streaming {
		return nil
	}
	o.streaming = false
	if err := o.stream.Close(); err != nil {
		portaudio.Terminate()
		return err
	}
	return portaudio.Terminate()
}

// SampleRate returns the device's output sample rate.
func (o *Output) SampleRate() int { return o.sampleRate }

// Meter exposes the realtime mirror of everything written to the device, for
// a level meter or waveform visualizer to read without touching the Engine.
func (o *Output) Meter() *SharedAudioBuffer { return o.meter }
