package renderer

import (
	"fmt"
	"image"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"github.com/oddlab/reeltime/iodata"
)

// Color is a straight-alpha RGBA color in [0,1].
type Color struct{ R, G, B, A float32 }

// ImageOptions configures how a single source is sampled/converted before
// compositing (per-source color pipeline + YUV plane selection).
type ImageOptions struct {
	Pipeline    ColorPipeline
	Coeffs      YUVCoefficients
	Levels      VideoLevels
	FullRangeIn bool
}

// DisplayOptions configures the shared display-side settings applied after
// compare-mode tiling (currently just output video levels; kept distinct
// from ImageOptions since it applies once to the composited result, not per
// source).
type DisplayOptions struct {
	OutputLevels VideoLevels
}

// BackgroundOptions configures the color drawn into cells a compare mode
// leaves empty (e.g. Tile's trailing cell when N isn't a perfect grid).
type BackgroundOptions struct {
	Color Color
}

// glAPI is the subset of OpenGL entry points the compositor's draw path
// calls. It exists so Compositor can be exercised by compositor_test.go
// against a fake that records calls instead of a bound GL context — the
// teacher never draws outside a live context, so there is no precedent to
// follow here beyond ordinary Go interface seams.
type glAPI interface {
	Viewport(x, y, w, h int32)
	ClearColor(r, g, b, a float32)
	Clear(mask uint32)
	Enable(cap uint32)
	Scissor(x, y, w, h int32)
	UseProgram(program uint32)
	BindVertexArray(vao uint32)
	DrawArrays(mode uint32, first, count int32)
	GenTextures(n int32) []uint32
	DeleteTextures(textures []uint32)
	BindTexture(target uint32, texture uint32)
	ActiveTexture(unit uint32)
	TexParameteri(target uint32, pname uint32, param int32)
	TexImage2D(target uint32, level int32, internalFormat int32, w, h int32, format, xtype uint32, data []byte)
	GetUniformLocation(program uint32, name string) int32
	Uniform1i(location int32, value int32)
}

// realGL implements glAPI against the actual go-gl bindings.
type realGL struct{}

func (realGL) Viewport(x, y, w, h int32)     { gl.Viewport(x, y, w, h) }
func (realGL) ClearColor(r, g, b, a float32) { gl.ClearColor(r, g, b, a) }
func (realGL) Clear(mask uint32)             { gl.Clear(mask) }
func (realGL) Enable(cap uint32)             { gl.Enable(cap) }
func (realGL) Scissor(x, y, w, h int32)      { gl.Scissor(x, y, w, h) }
func (realGL) UseProgram(program uint32)     { gl.UseProgram(program) }
func (realGL) BindVertexArray(vao uint32)    { gl.BindVertexArray(vao) }
func (realGL) DrawArrays(mode uint32, first, count int32) {
	gl.DrawArrays(mode, first, count)
}
func (realGL) GenTextures(n int32) []uint32 {
	textures := make([]uint32, n)
	if n > 0 {
		gl.GenTextures(n, &textures[0])
	}
	return textures
}
func (realGL) DeleteTextures(textures []uint32) {
	if len(textures) > 0 {
		gl.DeleteTextures(int32(len(textures)), &textures[0])
	}
}
func (realGL) BindTexture(target uint32, texture uint32) { gl.BindTexture(target, texture) }
func (realGL) ActiveTexture(unit uint32)                 { gl.ActiveTexture(unit) }
func (realGL) TexParameteri(target, pname uint32, param int32) {
	gl.TexParameteri(target, pname, param)
}
func (realGL) TexImage2D(target uint32, level int32, internalFormat int32, w, h int32, format, xtype uint32, data []byte) {
	var ptr interface{}
	if len(data) > 0 {
		ptr = gl.Ptr(data)
	}
	gl.TexImage2D(target, level, internalFormat, w, h, 0, format, xtype, ptr)
}
func (realGL) GetUniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}
func (realGL) Uniform1i(location int32, value int32) { gl.Uniform1i(location, value) }

// Compositor implements the begin/draw_*/end contract: a sequence of draw
// calls against an explicit render target, with no global render state
// surviving past end(). It reuses the Renderer's fullscreen-quad VAO and
// program-compile helper, generalized from "one Shadertoy pass" to "one
// compare+color-pipeline composite."
type Compositor struct {
	renderer *Renderer
	pipeline *ColorPipelineCache
	gl       glAPI

	active   bool
	viewport Box
	clip     Box
}

// NewCompositor creates a Compositor that draws using r's GL context and
// compiles display shaders lazily via build. Outside tests, callers should
// pass BuildDisplayProgram.
func NewCompositor(r *Renderer, build func(ProgramKey) (uint32, error)) *Compositor {
	return &Compositor{renderer: r, pipeline: NewColorPipelineCache(build), gl: realGL{}}
}

// Begin opens a compositing scope sized renderSize. Every draw_* call must
// happen between Begin and End; calling a draw_* method outside that scope
// is a programmer error.
func (c *Compositor) Begin(renderSize Size) error {
	if c.active {
		return fmt.Errorf("compositor: Begin called while already active")
	}
	c.active = true
	c.viewport = Box{0, 0, renderSize.W, renderSize.H}
	c.clip = c.viewport
	c.gl.Viewport(0, 0, int32(renderSize.W), int32(renderSize.H))
	return nil
}

// End closes the compositing scope, restoring no implicit state for the
// next Begin to depend on.
func (c *Compositor) End() {
	c.active = false
	c.viewport = Box{}
	c.clip = Box{}
}

func (c *Compositor) SetViewport(b Box) {
	c.viewport = b
	c.gl.Viewport(int32(b.X), int32(b.Y), int32(b.W), int32(b.H))
}

func (c *Compositor) SetClipRect(b Box) {
	c.clip = b
	c.gl.Enable(gl.SCISSOR_TEST)
	c.gl.Scissor(int32(b.X), int32(b.Y), int32(b.W), int32(b.H))
}

func (c *Compositor) ClearViewport(col Color) {
	c.gl.ClearColor(col.R, col.G, col.B, col.A)
	c.gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// DrawVideo is the compositing primitive: it tiles videos according to
// compareOpts via GetBoxes, runs each source through its per-image color
// pipeline, and composites into the active viewport. Boxes beyond
// len(videos) (Tile's empty trailing cells) are filled with
// backgroundOpts.Color rather than left undefined.
func (c *Compositor) DrawVideo(videos []*iodata.VideoData, imageOpts []ImageOptions, displayOpts DisplayOptions, compareOpts CompareOptions, backgroundOpts BackgroundOptions) error {
	if !c.active {
		return fmt.Errorf("compositor: DrawVideo called outside Begin/End")
	}

	sizes := make([]Size, 0, len(videos))
	for _, v := range videos {
		w, h := frameSize(v)
		sizes = append(sizes, Size{w, h})
	}
	if len(sizes) == 0 {
		return nil
	}

	boxes := GetBoxes(compareOpts.Mode, sizes)
	c.ClearViewport(backgroundOpts.Color)

	for i, box := range boxes {
		if i >= len(videos) || videos[i].Empty() {
			continue // missing texture slot renders as black/background, not an error
		}
		var opts ImageOptions
		if i < len(imageOpts) {
			opts = imageOpts[i]
		}
		if err := c.drawVideoSource(videos[i], box, opts, displayOpts); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compositor) drawVideoSource(v *iodata.VideoData, box Box, opts ImageOptions, displayOpts DisplayOptions) error {
	layer := v.Layers[0]
	img := layer.Image
	if img == nil || !img.PixelType.Valid() {
		return fmt.Errorf("compositor: unknown pixel type for video layer")
	}

	planes := img.PlaneSizes()
	textures, err := c.uploadPlanes(img, planes)
	if err != nil {
		return fmt.Errorf("compositor: uploading video texture: %w", err)
	}
	defer c.gl.DeleteTextures(textures)

	program, err := c.pipeline.Program(ProgramKey{
		Pipeline:     opts.Pipeline,
		PlaneCount:   len(planes),
		OutputLevels: displayOpts.OutputLevels,
	})
	if err != nil {
		// A shader-compile failure is returned on every draw whose key
		// still fails to build (the cache retries the build each time), and
		// this source is not drawn; there is no untransformed fallback.
		return err
	}

	c.gl.Viewport(int32(box.X), int32(box.Y), int32(box.W), int32(box.H))
	c.gl.UseProgram(program)
	c.bindPlaneTextures(program, textures)
	c.setYUVUniforms(program, opts.Coeffs, opts.Levels)
	c.gl.BindVertexArray(c.renderer.quadVAO)
	c.gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
	c.unbindPlaneTextures(len(textures))
	return nil
}

// packedGLFormat maps a non-YUV PixelType to the GL internal format, upload
// format, and component type TexImage2D needs to upload img.Data as-is in a
// single texture. Grounded on inputs/image.go's TexImage2D upload, widened
// from one hardcoded RGBA8 case to iodata.Image's full packed pixel-type
// table.
func packedGLFormat(pt iodata.PixelType) (internalFormat int32, format uint32, xtype uint32, err error) {
	switch pt {
	case iodata.PixelL_U8:
		return gl.R8, gl.RED, gl.UNSIGNED_BYTE, nil
	case iodata.PixelL_U16:
		return gl.R16, gl.RED, gl.UNSIGNED_SHORT, nil
	case iodata.PixelL_F16:
		return gl.R16F, gl.RED, gl.HALF_FLOAT, nil
	case iodata.PixelL_F32:
		return gl.R32F, gl.RED, gl.FLOAT, nil
	case iodata.PixelLA_U8:
		return gl.RG8, gl.RG, gl.UNSIGNED_BYTE, nil
	case iodata.PixelLA_U16:
		return gl.RG16, gl.RG, gl.UNSIGNED_SHORT, nil
	case iodata.PixelLA_F16:
		return gl.RG16F, gl.RG, gl.HALF_FLOAT, nil
	case iodata.PixelLA_F32:
		return gl.RG32F, gl.RG, gl.FLOAT, nil
	case iodata.PixelRGB_U8:
		return gl.RGB8, gl.RGB, gl.UNSIGNED_BYTE, nil
	case iodata.PixelRGB_U16:
		return gl.RGB16, gl.RGB, gl.UNSIGNED_SHORT, nil
	case iodata.PixelRGB_F16:
		return gl.RGB16F, gl.RGB, gl.HALF_FLOAT, nil
	case iodata.PixelRGB_F32:
		return gl.RGB32F, gl.RGB, gl.FLOAT, nil
	case iodata.PixelRGBA_U8:
		return gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE, nil
	case iodata.PixelRGBA_U16:
		return gl.RGBA16, gl.RGBA, gl.UNSIGNED_SHORT, nil
	case iodata.PixelRGBA_F16:
		return gl.RGBA16F, gl.RGBA, gl.HALF_FLOAT, nil
	case iodata.PixelRGBA_F32:
		return gl.RGBA32F, gl.RGBA, gl.FLOAT, nil
	default:
		return 0, 0, 0, fmt.Errorf("compositor: pixel type %d has no packed GL texture format", pt)
	}
}

// planeGLFormat returns the single-channel GL format for one YUV plane.
// iodata's YUV pixel types are only ever 8- or 16-bit unsigned.
func planeGLFormat(pt iodata.PixelType) (internalFormat int32, format uint32, xtype uint32) {
	switch pt {
	case iodata.PixelYUV_420P_U16, iodata.PixelYUV_422P_U16, iodata.PixelYUV_444P_U16:
		return gl.R16, gl.RED, gl.UNSIGNED_SHORT
	default:
		return gl.R8, gl.RED, gl.UNSIGNED_BYTE
	}
}

// uploadPlanes uploads img's decoded bytes as one packed texture or three
// planar YUV textures (luma then the two chroma planes, in img.PlaneSizes'
// order), returning the GL texture names in plane order. The caller owns the
// returned textures and must release them (DeleteTextures).
func (c *Compositor) uploadPlanes(img *iodata.Image, planes []image.Point) ([]uint32, error) {
	if len(planes) == 0 {
		return nil, fmt.Errorf("compositor: no planes for pixel type %d", img.PixelType)
	}
	textures := c.gl.GenTextures(int32(len(planes)))

	if img.PixelType.IsYUV() {
		bpc := img.PixelType.BytesPerComponent()
		internalFormat, format, xtype := planeGLFormat(img.PixelType)
		offset := 0
		for i, p := range planes {
			size := p.X * p.Y * bpc
			if offset+size > len(img.Data) {
				c.gl.DeleteTextures(textures)
				return nil, fmt.Errorf("compositor: plane %d needs %d more decoded bytes than available", i, offset+size-len(img.Data))
			}
			c.uploadPlane(textures[i], p.X, p.Y, internalFormat, format, xtype, img.Data[offset:offset+size])
			offset += size
		}
		return textures, nil
	}

	internalFormat, format, xtype, err := packedGLFormat(img.PixelType)
	if err != nil {
		c.gl.DeleteTextures(textures)
		return nil, err
	}
	c.uploadPlane(textures[0], img.Size.X, img.Size.Y, internalFormat, format, xtype, img.Data)
	return textures, nil
}

func (c *Compositor) uploadPlane(tex uint32, w, h int, internalFormat int32, format, xtype uint32, data []byte) {
	c.gl.BindTexture(gl.TEXTURE_2D, tex)
	c.gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	c.gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	c.gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	c.gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	c.gl.TexImage2D(gl.TEXTURE_2D, 0, internalFormat, int32(w), int32(h), format, xtype, data)
	c.gl.BindTexture(gl.TEXTURE_2D, 0)
}

var planeUniformNames = [3]string{"yPlane", "uPlane", "vPlane"}

// bindPlaneTextures binds textures to consecutive texture units starting at
// 0 and points program's sampler uniform(s) at them: srcTex for a single
// packed texture, yPlane/uPlane/vPlane for three planar YUV textures.
func (c *Compositor) bindPlaneTextures(program uint32, textures []uint32) {
	if len(textures) == 1 {
		c.gl.ActiveTexture(gl.TEXTURE0)
		c.gl.BindTexture(gl.TEXTURE_2D, textures[0])
		if loc := c.gl.GetUniformLocation(program, "srcTex"); loc >= 0 {
			c.gl.Uniform1i(loc, 0)
		}
		return
	}
	for i, tex := range textures {
		c.gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		c.gl.BindTexture(gl.TEXTURE_2D, tex)
		if loc := c.gl.GetUniformLocation(program, planeUniformNames[i]); loc >= 0 {
			c.gl.Uniform1i(loc, int32(i))
		}
	}
}

func (c *Compositor) unbindPlaneTextures(n int) {
	for i := 0; i < n; i++ {
		c.gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		c.gl.BindTexture(gl.TEXTURE_2D, 0)
	}
}

// setYUVUniforms sets the per-draw yuvCoefficients/videoLevels uniforms the
// YUV sampling stage reads; a packed source's program declares neither
// uniform, so both lookups harmlessly resolve to -1 and are skipped.
func (c *Compositor) setYUVUniforms(program uint32, coeffs YUVCoefficients, levels VideoLevels) {
	if loc := c.gl.GetUniformLocation(program, "yuvCoefficients"); loc >= 0 {
		c.gl.Uniform1i(loc, int32(coeffs))
	}
	if loc := c.gl.GetUniformLocation(program, "videoLevels"); loc >= 0 {
		c.gl.Uniform1i(loc, int32(levels))
	}
}

func frameSize(v *iodata.VideoData) (w, h int) {
	if v.Empty() {
		return 0, 0
	}
	img := v.Layers[0].Image
	return img.Size.X, img.Size.Y
}
