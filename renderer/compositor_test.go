package renderer

import (
	"fmt"
	"image"
	"testing"

	"github.com/oddlab/reeltime/iodata"
)

// fakeGL records the calls a real gl context would receive, without needing
// one bound. It assigns incrementing texture names from GenTextures like a
// real driver would, and records which textures were bound to which units at
// the DrawArrays call so assertions can check the draw actually touched a
// texture rather than drawing against whatever (nothing) happened to be
// bound; the compositor unbinds every unit after drawing.
type fakeGL struct {
	nextTexture  uint32
	boundUnit    map[uint32]uint32 // texture unit -> bound texture name
	boundAtDraw  map[uint32]uint32 // boundUnit as it was at the last DrawArrays
	activeUnit   uint32
	uniformSets  map[string]int32
	drawCalls    int
	deletedCount int
	usedProgram  uint32
}

func newFakeGL() *fakeGL {
	return &fakeGL{boundUnit: make(map[uint32]uint32), uniformSets: make(map[string]int32)}
}

func (f *fakeGL) Viewport(x, y, w, h int32)     {}
func (f *fakeGL) ClearColor(r, g, b, a float32) {}
func (f *fakeGL) Clear(mask uint32)             {}
func (f *fakeGL) Enable(cap uint32)             {}
func (f *fakeGL) Scissor(x, y, w, h int32)      {}
func (f *fakeGL) UseProgram(program uint32)     { f.usedProgram = program }
func (f *fakeGL) BindVertexArray(vao uint32)    {}
func (f *fakeGL) DrawArrays(mode uint32, first, count int32) {
	f.drawCalls++
	f.boundAtDraw = make(map[uint32]uint32, len(f.boundUnit))
	for unit, tex := range f.boundUnit {
		f.boundAtDraw[unit] = tex
	}
}
func (f *fakeGL) GenTextures(n int32) []uint32 {
	textures := make([]uint32, n)
	for i := range textures {
		f.nextTexture++
		textures[i] = f.nextTexture
	}
	return textures
}
func (f *fakeGL) DeleteTextures(textures []uint32) { f.deletedCount += len(textures) }
func (f *fakeGL) BindTexture(target uint32, texture uint32) {
	f.boundUnit[f.activeUnit] = texture
}
func (f *fakeGL) ActiveTexture(unit uint32)                         { f.activeUnit = unit - texture0 }
func (f *fakeGL) TexParameteri(target, pname uint32, param int32)   {}
func (f *fakeGL) TexImage2D(target uint32, level int32, internalFormat int32, w, h int32, format, xtype uint32, data []byte) {
}
func (f *fakeGL) GetUniformLocation(program uint32, name string) int32 {
	return int32(len(name)) // any non-negative, deterministic "found" location
}
func (f *fakeGL) Uniform1i(location int32, value int32) {
	f.uniformSets[fmt.Sprint(location)] = value
}

const texture0 = 0x84C0 // gl.TEXTURE0, duplicated here so this file needs no gl import

func compareOptionsSingle() CompareOptions { return CompareOptions{Mode: CompareA} }

func rgbaVideo(w, h int) *iodata.VideoData {
	return &iodata.VideoData{
		Layers: []iodata.VideoLayer{{
			Image: &iodata.Image{
				Size:      image.Point{X: w, Y: h},
				PixelType: iodata.PixelRGBA_U8,
				Data:      make([]byte, w*h*4),
			},
		}},
	}
}

func yuvVideo(w, h int) *iodata.VideoData {
	lumaSize := w * h
	chromaSize := (w / 2) * (h / 2)
	return &iodata.VideoData{
		Layers: []iodata.VideoLayer{{
			Image: &iodata.Image{
				Size:      image.Point{X: w, Y: h},
				PixelType: iodata.PixelYUV_420P_U8,
				Data:      make([]byte, lumaSize+2*chromaSize),
			},
		}},
	}
}

func TestCompositorDrawVideoUploadsAndBindsPackedTexture(t *testing.T) {
	fg := newFakeGL()
	builds := 0
	c := &Compositor{
		renderer: &Renderer{},
		pipeline: NewColorPipelineCache(func(pk ProgramKey) (uint32, error) {
			builds++
			if pk.PlaneCount != 1 {
				t.Fatalf("expected PlaneCount 1 for a packed RGBA source, got %d", pk.PlaneCount)
			}
			return 7, nil
		}),
		gl: fg,
	}

	if err := c.Begin(Size{W: 100, H: 100}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	videos := []*iodata.VideoData{rgbaVideo(100, 100)}
	err := c.DrawVideo(videos, []ImageOptions{{}}, DisplayOptions{}, compareOptionsSingle(), BackgroundOptions{})
	c.End()
	if err != nil {
		t.Fatalf("DrawVideo: %v", err)
	}

	if builds != 1 {
		t.Fatalf("expected the display program to be built once, got %d builds", builds)
	}
	if fg.usedProgram != 7 {
		t.Fatalf("expected UseProgram(7), got %d", fg.usedProgram)
	}
	if fg.drawCalls != 1 {
		t.Fatalf("expected exactly one draw call, got %d", fg.drawCalls)
	}
	if fg.nextTexture != 1 {
		t.Fatalf("expected exactly one texture allocated for a packed source, got %d", fg.nextTexture)
	}
	if fg.boundAtDraw[0] == 0 {
		t.Fatalf("expected texture unit 0 to be bound to a real texture, got none")
	}
	if fg.deletedCount != 1 {
		t.Fatalf("expected the uploaded texture to be freed after the draw, got %d deletions", fg.deletedCount)
	}
}

func TestCompositorDrawVideoUploadsThreeTexturesForYUVSource(t *testing.T) {
	fg := newFakeGL()
	c := &Compositor{
		renderer: &Renderer{},
		pipeline: NewColorPipelineCache(func(pk ProgramKey) (uint32, error) {
			if pk.PlaneCount != 3 {
				t.Fatalf("expected PlaneCount 3 for a YUV 4:2:0 source, got %d", pk.PlaneCount)
			}
			return 9, nil
		}),
		gl: fg,
	}

	if err := c.Begin(Size{W: 64, H: 64}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	videos := []*iodata.VideoData{yuvVideo(64, 64)}
	err := c.DrawVideo(videos, []ImageOptions{{}}, DisplayOptions{}, compareOptionsSingle(), BackgroundOptions{})
	c.End()
	if err != nil {
		t.Fatalf("DrawVideo: %v", err)
	}

	if fg.nextTexture != 3 {
		t.Fatalf("expected three textures allocated (Y, U, V), got %d", fg.nextTexture)
	}
	if fg.boundAtDraw[0] == 0 || fg.boundAtDraw[1] == 0 || fg.boundAtDraw[2] == 0 {
		t.Fatalf("expected texture units 0-2 all bound, got %v", fg.boundAtDraw)
	}
	if fg.deletedCount != 3 {
		t.Fatalf("expected all three planes freed after the draw, got %d", fg.deletedCount)
	}
}

func TestCompositorDrawVideoOutsideBeginIsAnError(t *testing.T) {
	c := &Compositor{renderer: &Renderer{}, pipeline: NewColorPipelineCache(func(ProgramKey) (uint32, error) { return 1, nil }), gl: newFakeGL()}
	err := c.DrawVideo([]*iodata.VideoData{rgbaVideo(4, 4)}, nil, DisplayOptions{}, compareOptionsSingle(), BackgroundOptions{})
	if err == nil {
		t.Fatalf("expected an error calling DrawVideo before Begin")
	}
}

func TestCompositorDrawVideoSkipsEmptySources(t *testing.T) {
	fg := newFakeGL()
	c := &Compositor{
		renderer: &Renderer{},
		pipeline: NewColorPipelineCache(func(ProgramKey) (uint32, error) { return 1, nil }),
		gl:       fg,
	}
	if err := c.Begin(Size{W: 10, H: 10}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	err := c.DrawVideo([]*iodata.VideoData{{}}, nil, DisplayOptions{}, compareOptionsSingle(), BackgroundOptions{})
	c.End()
	if err != nil {
		t.Fatalf("DrawVideo: %v", err)
	}
	if fg.drawCalls != 0 {
		t.Fatalf("expected an empty video source to draw nothing, got %d draws", fg.drawCalls)
	}
}
