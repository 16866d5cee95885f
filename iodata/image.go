package iodata

import "image"

// ChannelLayout describes how pixel components are arranged in Data.
type ChannelLayout int

const (
	LayoutPacked ChannelLayout = iota
	LayoutPlanar
)

// Image is a decoded raster: size, pixel layout, and raw bytes. It is
// immutable after decode and shared by the cache and the renderer for as
// long as either holds it (spec.md §3 Ownership) — ordinary Go pointer
// sharing under the garbage collector, see DESIGN.md for why no manual
// refcounting is introduced.
type Image struct {
	Size      image.Point
	PixelType PixelType
	Layout    ChannelLayout
	Channels  int
	Endian    ByteOrder
	YMirror   bool
	Data      []byte
	Tags      map[string]string
}

// ByteOrder mirrors encoding/binary.ByteOrder's two values without pulling
// in a dependency on a specific implementation at this layer.
type ByteOrder int

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

// Empty reports whether the image carries no decoded data — the "no decoded
// frame available" sentinel returned by a failed I/O future (spec.md §4.1
// Failure semantics, §6 read_video).
func (img *Image) Empty() bool {
	return img == nil || len(img.Data) == 0
}

// PlaneSizes returns the (width, height) of each texture plane for img's
// pixel type, in plane order. For non-YUV types this is a single entry equal
// to Size.
func (img *Image) PlaneSizes() []image.Point {
	if img == nil {
		return nil
	}
	if !img.PixelType.IsYUV() {
		return []image.Point{img.Size}
	}
	cx, cy := img.PixelType.ChromaSubsample()
	chromaW := (img.Size.X + cx - 1) / cx
	chromaH := (img.Size.Y + cy - 1) / cy
	return []image.Point{
		img.Size,
		{X: chromaW, Y: chromaH},
		{X: chromaW, Y: chromaH},
	}
}
