package renderer

import "math"

// CompareMode selects how multiple source images are spatially combined into
// one composited output for draw_video.
type CompareMode int

const (
	CompareA CompareMode = iota
	CompareB
	CompareWipe
	CompareOverlay
	CompareDifference
	CompareHorizontal
	CompareVertical
	CompareTile
)

// Size is a source image's width/height in pixels.
type Size struct {
	W, H int
}

// Box is an axis-aligned destination rectangle, origin top-left.
type Box struct {
	X, Y, W, H int
}

// CompareOptions configures the compare-mode stage of draw_video. Wipe*
// fields are only meaningful for CompareWipe, Overlay only for
// CompareOverlay.
type CompareOptions struct {
	Mode         CompareMode
	WipeCenterX  float64
	WipeCenterY  float64
	WipeRotation float64
	Overlay      float64 // 0..1 opacity of source 1 over source 0
}

// Arity returns the maximum number of source images a mode combines.
func (m CompareMode) Arity() int {
	switch m {
	case CompareA, CompareB, CompareWipe, CompareOverlay, CompareDifference:
		return 2
	default:
		return math.MaxInt32 // Horizontal/Vertical/Tile accept any source count
	}
}

// GetBoxes returns the destination boxes for the source sizes under mode.
// Horizontal and Vertical always return two boxes, even for a single source;
// render_size is the bounding box of the result.
func GetBoxes(mode CompareMode, sizes []Size) []Box {
	if len(sizes) == 0 {
		return nil
	}

	switch mode {
	case CompareA, CompareB, CompareWipe, CompareOverlay, CompareDifference:
		// All of these composite down to a single full-size box; A/B only
		// ever display one source, Wipe/Overlay/Difference still need two
		// sources as fragment-shader inputs but occupy one destination box.
		return []Box{{0, 0, sizes[0].W, sizes[0].H}}

	case CompareHorizontal:
		w, h := sizes[0].W, sizes[0].H
		half := w / 2
		return []Box{
			{0, 0, half, h},
			{half, 0, w - half, h},
		}

	case CompareVertical:
		w, h := sizes[0].W, sizes[0].H
		half := h / 2
		return []Box{
			{0, 0, w, half},
			{0, half, w, h - half},
		}

	case CompareTile:
		return tileBoxes(sizes)

	default:
		return []Box{{0, 0, sizes[0].W, sizes[0].H}}
	}
}

// tileBoxes lays out len(sizes) cells in a ceil(sqrt(N)) x ceil(N/cols) grid,
// one full-size cell per source (a source is never downscaled to share a
// cell with others — three 1920x1080 sources tile into a 3840x2160 grid of
// three 1920x1080 cells, not a shrunk 960x540 grid). Trailing cells beyond N
// in the last row are left empty (not present in the returned slice —
// callers render background there).
func tileBoxes(sizes []Size) []Box {
	n := len(sizes)
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	cellW, cellH := sizes[0].W, sizes[0].H

	boxes := make([]Box, 0, n)
	for i := 0; i < n; i++ {
		col := i % cols
		row := i / cols
		boxes = append(boxes, Box{
			X: col * cellW,
			Y: row * cellH,
			W: cellW,
			H: cellH,
		})
	}
	return boxes
}

// RenderSize returns the bounding box of get_boxes(mode, sizes), i.e. the
// framebuffer size draw_video needs for this compare mode and source set.
func RenderSize(mode CompareMode, sizes []Size) Size {
	boxes := GetBoxes(mode, sizes)
	if len(boxes) == 0 {
		return Size{}
	}

	// Tile's grid can extend past the last occupied cell when N isn't a
	// perfect multiple of cols, so compute the bounding box from the full
	// grid dimensions rather than only the occupied boxes.
	if mode == CompareTile {
		n := len(sizes)
		cols := int(math.Ceil(math.Sqrt(float64(n))))
		rows := int(math.Ceil(float64(n) / float64(cols)))
		return Size{W: sizes[0].W * cols, H: sizes[0].H * rows}
	}

	maxX, maxY := 0, 0
	for _, b := range boxes {
		if b.X+b.W > maxX {
			maxX = b.X + b.W
		}
		if b.Y+b.H > maxY {
			maxY = b.Y + b.H
		}
	}
	return Size{W: maxX, H: maxY}
}
