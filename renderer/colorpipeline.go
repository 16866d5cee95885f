package renderer

import (
	"fmt"

	"github.com/oddlab/reeltime/shader"
)

// YUVCoefficients selects the luma/chroma matrix used to convert a YUV
// source to RGB before the rest of the color pipeline runs.
type YUVCoefficients int

const (
	YUVBT601 YUVCoefficients = iota
	YUVBT709
	YUVBT2020
)

// VideoLevels selects whether a YUV source's sample range is treated as
// legal-range (64..940/1023) or full-range (0..1023) before conversion.
type VideoLevels int

const (
	LegalRange VideoLevels = iota
	FullRange
)

// LUTOrder controls whether the user LUT stage runs before or after the
// OCIO display transform.
type LUTOrder int

const (
	LUTPreColorConfig LUTOrder = iota
	LUTPostColorConfig
)

// OCIOOptions configures the Input Color Space and Display transforms of an
// OCIO-equivalent color pipeline.
type OCIOOptions struct {
	ConfigPath string
	Input      string // input color space name
	Display    string
	View       string
	Look       string
}

func (o OCIOOptions) key() string {
	return fmt.Sprintf("ocio:%s|%s|%s|%s|%s", o.ConfigPath, o.Input, o.Display, o.View, o.Look)
}

// LUTOptions configures the user-supplied LUT stage.
type LUTOptions struct {
	Path  string
	Order LUTOrder
}

func (l LUTOptions) key() string {
	return fmt.Sprintf("lut:%s|%d", l.Path, l.Order)
}

// HDROptions configures the optional HDR tone-map stage.
type HDROptions struct {
	Tonemap      bool
	Primaries    string
	Transfer     string
	MinLuminance float64
	MaxLuminance float64
	MaxCLL       float64
	MaxFALL      float64
	OOTFAnchors  []float64
}

func (h HDROptions) key() string {
	if !h.Tonemap {
		return "hdr:off"
	}
	return fmt.Sprintf("hdr:%s|%s|%.4f|%.4f|%.4f|%.4f|%d",
		h.Primaries, h.Transfer, h.MinLuminance, h.MaxLuminance, h.MaxCLL, h.MaxFALL, len(h.OOTFAnchors))
}

// ColorPipeline bundles the three color-pipeline configuration structs that
// together determine the display shader's source. Two ColorPipelines with
// equal Key()s produce byte-identical shader source.
type ColorPipeline struct {
	OCIO OCIOOptions
	LUT  LUTOptions
	HDR  HDROptions
}

// Key identifies this configuration for shader-cache lookup. The display
// shader is only regenerated and recompiled when Key() changes, since OCIO
// config loads and GLSL translation are comparatively expensive.
func (c ColorPipeline) Key() string {
	return c.OCIO.key() + "/" + c.LUT.key() + "/" + c.HDR.key()
}

// ProgramKey identifies one compiled display-shader program. PlaneCount and
// OutputLevels are baked into the generated source (GenerateYUVSamplingGLSL
// and GenerateVideoLevelsGLSL both emit different GLSL for different
// values), so they join Pipeline.Key() as cache-key material; the per-source
// YUVCoefficients/input VideoLevels a draw call passes are ordinary runtime
// uniforms (yuvCoefficients/videoLevels) and do not require a recompile.
type ProgramKey struct {
	Pipeline     ColorPipeline
	PlaneCount   int
	OutputLevels VideoLevels
}

func (k ProgramKey) key() string {
	return fmt.Sprintf("%s/planes:%d/outlevels:%d", k.Pipeline.Key(), k.PlaneCount, k.OutputLevels)
}

// ColorPipelineCache compiles a display shader program lazily and only
// recompiles when the requested ProgramKey differs from the one currently
// compiled, mirroring the teacher's glInitOnce-guarded lazy-compile pattern
// generalized from "compile once" to "recompile on config change."
type ColorPipelineCache struct {
	key     string
	program uint32
	build   func(ProgramKey) (uint32, error)
}

// NewColorPipelineCache creates a cache that uses build to compile a new
// shader program whenever the configuration changes.
func NewColorPipelineCache(build func(ProgramKey) (uint32, error)) *ColorPipelineCache {
	return &ColorPipelineCache{build: build}
}

// Program returns the compiled program for pk, recompiling only if pk
// differs from the last-compiled configuration. A compile failure leaves the
// previously-compiled program (if any) in place and returns the error, so a
// caller can log once and continue drawing with the prior shader — the
// renderer's "subsequent draws degrade to untransformed output" failure
// semantics are the caller's responsibility when program is the zero value.
func (c *ColorPipelineCache) Program(pk ProgramKey) (uint32, error) {
	key := pk.key()
	if key == c.key && c.program != 0 {
		return c.program, nil
	}
	program, err := c.build(pk)
	if err != nil {
		return c.program, err
	}
	c.key = key
	c.program = program
	return program, nil
}

// BuildDisplayProgram compiles the full vertex+fragment display program for
// pk. It is the real build closure NewCompositor is constructed with outside
// tests; tests inject a fake build func that skips GL entirely (see
// ColorPipelineCache's own tests and compositor_test.go).
func BuildDisplayProgram(pk ProgramKey) (uint32, error) {
	vs := shader.GenerateVertexShader()
	fs := shader.AssembleDisplayFragmentShader(
		pk.PlaneCount, 0, int(pk.OutputLevels),
		pk.Pipeline.OCIO.Input, pk.Pipeline.LUT.Path, pk.Pipeline.LUT.Order == LUTPreColorConfig,
		pk.Pipeline.OCIO.Display, pk.Pipeline.OCIO.View, pk.Pipeline.OCIO.Look,
		pk.Pipeline.HDR.Tonemap, pk.Pipeline.HDR.MaxCLL, pk.Pipeline.HDR.MaxFALL,
	)
	return newProgram(vs, fs)
}
