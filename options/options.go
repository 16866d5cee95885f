// Package options holds the configuration FFmpegEncoder needs to open an
// output file, generalized from the teacher's CLI-flag ShaderOptions (one
// pointer field per flag.* registration) to a plain value struct a caller
// constructs directly from a resolved export request rather than parsed
// flags.
package options

// ExportOptions configures one offline render-to-file pass: output
// container/codec settings and the optional audio source FFmpegEncoder muxes
// alongside the video stream.
type ExportOptions struct {
	Width    int
	Height   int
	FPS      int
	BitDepth int
	Codec    string

	OutputFile string

	// A non-empty AudioInputFile or AudioInputDevice makes the encoder open
	// an audio stream, whose samples come from SendAudio; the encoder does
	// not read the named file or device itself. Both empty means video-only
	// output.
	AudioInputFile   string
	AudioInputDevice string
}
