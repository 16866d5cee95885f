package renderer

import (
	"errors"
	"testing"
)

func TestColorPipelineKeyChangesWithOCIOInput(t *testing.T) {
	a := ColorPipeline{OCIO: OCIOOptions{Input: "ACEScg"}}
	b := ColorPipeline{OCIO: OCIOOptions{Input: "sRGB"}}
	if a.Key() == b.Key() {
		t.Fatalf("expected different keys for different input color spaces")
	}
}

func TestColorPipelineKeyStableForEqualConfig(t *testing.T) {
	a := ColorPipeline{OCIO: OCIOOptions{Input: "ACEScg", Display: "sRGB"}, LUT: LUTOptions{Path: "x.cube"}}
	b := ColorPipeline{OCIO: OCIOOptions{Input: "ACEScg", Display: "sRGB"}, LUT: LUTOptions{Path: "x.cube"}}
	if a.Key() != b.Key() {
		t.Fatalf("expected equal keys for equal configs, got %q vs %q", a.Key(), b.Key())
	}
}

func TestColorPipelineCacheRecompilesOnlyOnChange(t *testing.T) {
	builds := 0
	cache := NewColorPipelineCache(func(ProgramKey) (uint32, error) {
		builds++
		return uint32(builds), nil
	})

	cfg1 := ProgramKey{Pipeline: ColorPipeline{OCIO: OCIOOptions{Input: "ACEScg"}}, PlaneCount: 1}
	p1, err := cache.Program(cfg1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p2, err := cache.Program(cfg1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p1 != p2 {
		t.Fatalf("expected cached program to be reused, got %d then %d", p1, p2)
	}
	if builds != 1 {
		t.Fatalf("expected exactly 1 build for an unchanged config, got %d", builds)
	}

	cfg2 := ProgramKey{Pipeline: ColorPipeline{OCIO: OCIOOptions{Input: "sRGB"}}, PlaneCount: 1}
	p3, err := cache.Program(cfg2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p3 == p1 {
		t.Fatalf("expected a rebuild for a changed config")
	}
	if builds != 2 {
		t.Fatalf("expected exactly 2 builds after a config change, got %d", builds)
	}
}

func TestColorPipelineCacheRebuildsOnPlaneCountChange(t *testing.T) {
	builds := 0
	cache := NewColorPipelineCache(func(ProgramKey) (uint32, error) {
		builds++
		return uint32(builds), nil
	})

	same := ColorPipeline{OCIO: OCIOOptions{Input: "ACEScg"}}
	if _, err := cache.Program(ProgramKey{Pipeline: same, PlaneCount: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := cache.Program(ProgramKey{Pipeline: same, PlaneCount: 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if builds != 2 {
		t.Fatalf("expected a rebuild when PlaneCount changes even with an unchanged Pipeline, got %d builds", builds)
	}
}

func TestColorPipelineCacheKeepsPriorProgramOnBuildFailure(t *testing.T) {
	good := ProgramKey{Pipeline: ColorPipeline{OCIO: OCIOOptions{Input: "ACEScg"}}, PlaneCount: 1}
	bad := ProgramKey{Pipeline: ColorPipeline{OCIO: OCIOOptions{Input: "broken"}}, PlaneCount: 1}

	cache := NewColorPipelineCache(func(pk ProgramKey) (uint32, error) {
		if pk.Pipeline.OCIO.Input == "broken" {
			return 0, errors.New("shader compile failed")
		}
		return 42, nil
	})

	p, err := cache.Program(good)
	if err != nil || p != 42 {
		t.Fatalf("got (%d, %v), want (42, nil)", p, err)
	}

	p2, err := cache.Program(bad)
	if err == nil {
		t.Fatalf("expected an error for a failing build")
	}
	if p2 != 42 {
		t.Fatalf("expected the prior program to be returned on build failure, got %d", p2)
	}
}
