package renderer

import "testing"

func TestGetBoxesSingleSourceModesReturnOneBox(t *testing.T) {
	sizes := []Size{{1920, 1080}}
	for _, mode := range []CompareMode{CompareA, CompareB, CompareWipe, CompareOverlay, CompareDifference} {
		boxes := GetBoxes(mode, sizes)
		if len(boxes) != 1 {
			t.Fatalf("mode %d: got %d boxes, want 1", mode, len(boxes))
		}
		if boxes[0] != (Box{0, 0, 1920, 1080}) {
			t.Fatalf("mode %d: got %v, want full-size box", mode, boxes[0])
		}
	}
}

func TestGetBoxesHorizontalSplitsWidth(t *testing.T) {
	boxes := GetBoxes(CompareHorizontal, []Size{{1920, 1080}})
	if len(boxes) != 2 {
		t.Fatalf("got %d boxes, want 2", len(boxes))
	}
	if boxes[0].W+boxes[1].W != 1920 {
		t.Fatalf("widths don't sum to source width: %v", boxes)
	}
	if boxes[0].H != 1080 || boxes[1].H != 1080 {
		t.Fatalf("heights should match source height: %v", boxes)
	}
}

func TestGetBoxesVerticalSplitsHeight(t *testing.T) {
	boxes := GetBoxes(CompareVertical, []Size{{1920, 1080}})
	if len(boxes) != 2 {
		t.Fatalf("got %d boxes, want 2", len(boxes))
	}
	if boxes[0].H+boxes[1].H != 1080 {
		t.Fatalf("heights don't sum to source height: %v", boxes)
	}
}

func TestGetBoxesTileThreeSources(t *testing.T) {
	sizes := []Size{{1920, 1080}, {1920, 1080}, {1920, 1080}}
	boxes := GetBoxes(CompareTile, sizes)
	if len(boxes) != 3 {
		t.Fatalf("got %d boxes, want 3", len(boxes))
	}
	want := []Box{
		{0, 0, 1920, 1080},
		{1920, 0, 1920, 1080},
		{0, 1080, 1920, 1080},
	}
	for i, w := range want {
		if boxes[i] != w {
			t.Fatalf("box %d: got %v, want %v", i, boxes[i], w)
		}
	}

	size := RenderSize(CompareTile, sizes)
	if size != (Size{3840, 2160}) {
		t.Fatalf("got render size %v, want {3840 2160}", size)
	}
}

func TestGetBoxesTileFiveSourcesLeavesOneCellEmpty(t *testing.T) {
	sizes := make([]Size, 5)
	for i := range sizes {
		sizes[i] = Size{100, 100}
	}
	boxes := GetBoxes(CompareTile, sizes)
	if len(boxes) != 5 {
		t.Fatalf("got %d boxes, want 5 (grid cell 6 stays empty)", len(boxes))
	}

	size := RenderSize(CompareTile, sizes)
	// ceil(sqrt(5)) = 3 columns, ceil(5/3) = 2 rows -> a 3x2 grid of 100x100
	// cells, one cell (the 6th) left as empty background.
	if size != (Size{300, 200}) {
		t.Fatalf("got render size %v, want {300 200}", size)
	}
}

func TestGetBoxesTileSingleSourceIsFullCell(t *testing.T) {
	sizes := []Size{{640, 480}}
	boxes := GetBoxes(CompareTile, sizes)
	if len(boxes) != 1 || boxes[0] != (Box{0, 0, 640, 480}) {
		t.Fatalf("got %v, want single full-size cell", boxes)
	}
}

func TestArityBoundsBoxCount(t *testing.T) {
	for _, mode := range []CompareMode{CompareA, CompareB, CompareWipe, CompareOverlay, CompareDifference} {
		if mode.Arity() != 2 {
			t.Fatalf("mode %d: got arity %d, want 2", mode, mode.Arity())
		}
	}
}
