package iodata

// PixelType enumerates the decoded-image pixel layouts the core understands.
// The ordering is wire-stable (spec.md §6) — never reorder existing values,
// only append.
type PixelType int

const (
	PixelNone PixelType = iota
	PixelL_U8
	PixelL_U16
	PixelL_U32
	PixelL_F16
	PixelL_F32
	PixelLA_U8
	PixelLA_U16
	PixelLA_U32
	PixelLA_F16
	PixelLA_F32
	PixelRGB_U8
	PixelRGB_U10
	PixelRGB_U16
	PixelRGB_U32
	PixelRGB_F16
	PixelRGB_F32
	PixelRGBA_U8
	PixelRGBA_U16
	PixelRGBA_U32
	PixelRGBA_F16
	PixelRGBA_F32
	PixelYUV_420P_U8
	PixelYUV_422P_U8
	PixelYUV_444P_U8
	PixelYUV_420P_U16
	PixelYUV_422P_U16
	PixelYUV_444P_U16
)

// PlaneCount returns how many texture planes a pixel type needs.
func (p PixelType) PlaneCount() int {
	switch p {
	case PixelYUV_420P_U8, PixelYUV_422P_U8, PixelYUV_444P_U8,
		PixelYUV_420P_U16, PixelYUV_422P_U16, PixelYUV_444P_U16:
		return 3
	case PixelNone:
		return 0
	default:
		return 1
	}
}

// IsYUV reports whether p is one of the planar YUV formats.
func (p PixelType) IsYUV() bool {
	return p.PlaneCount() == 3
}

// ChromaSubsample returns the (horizontal, vertical) divisor applied to the
// luma plane size to get each chroma plane's size, for YUV pixel types.
func (p PixelType) ChromaSubsample() (x, y int) {
	switch p {
	case PixelYUV_420P_U8, PixelYUV_420P_U16:
		return 2, 2
	case PixelYUV_422P_U8, PixelYUV_422P_U16:
		return 2, 1
	case PixelYUV_444P_U8, PixelYUV_444P_U16:
		return 1, 1
	default:
		return 1, 1
	}
}

// BytesPerComponent returns the byte width of one sample component.
func (p PixelType) BytesPerComponent() int {
	switch p {
	case PixelL_U16, PixelLA_U16, PixelRGB_U16, PixelRGBA_U16,
		PixelYUV_420P_U16, PixelYUV_422P_U16, PixelYUV_444P_U16,
		PixelL_F16, PixelLA_F16, PixelRGB_F16, PixelRGBA_F16:
		return 2
	case PixelL_U32, PixelLA_U32, PixelRGB_U32, PixelRGBA_U32,
		PixelL_F32, PixelLA_F32, PixelRGB_F32, PixelRGBA_F32:
		return 4
	default:
		return 1
	}
}

// Valid reports whether p is a recognized, non-None pixel type. An unknown
// pixel type is a Configuration-class error at renderer begin() per
// spec.md §4.3.
func (p PixelType) Valid() bool {
	return p > PixelNone && p <= PixelYUV_444P_U16
}
