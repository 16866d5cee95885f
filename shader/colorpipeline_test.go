package shader

import (
	"strings"
	"testing"
)

func TestGenerateYUVSamplingGLSLEmptyForPacked(t *testing.T) {
	if got := GenerateYUVSamplingGLSL(1, 0, 0); got != "" {
		t.Fatalf("expected no YUV stage for single-plane source, got %q", got)
	}
}

func TestGenerateYUVSamplingGLSLThreePlanes(t *testing.T) {
	got := GenerateYUVSamplingGLSL(3, 1, 0)
	if !strings.Contains(got, "yPlane") || !strings.Contains(got, "uPlane") || !strings.Contains(got, "vPlane") {
		t.Fatalf("expected three plane samplers, got %q", got)
	}
}

func TestAssembleDisplayShaderHonorsLUTOrder(t *testing.T) {
	pre := AssembleDisplayShader(1, 0, 0, "", "/tmp/a.cube", true, "sRGB", "Film", "", false, 0, 0)
	post := AssembleDisplayShader(1, 0, 0, "", "/tmp/a.cube", false, "sRGB", "Film", "", false, 0, 0)

	if !strings.Contains(pre, "ocioDisplayTransform(hdrToneMap(userLUT(c)))") {
		t.Fatalf("expected LUT-before-display call chain, got %q", pre)
	}
	if !strings.Contains(post, "hdrToneMap(userLUT(ocioDisplayTransform(c)))") {
		t.Fatalf("expected LUT-after-display call chain, got %q", post)
	}
}

func TestAssembleDisplayShaderSkipsTonemapWhenDisabled(t *testing.T) {
	out := AssembleDisplayShader(1, 0, 0, "", "", true, "", "", "", false, 0, 0)
	if !strings.Contains(out, "vec3 hdrToneMap(vec3 c) { return c; }") {
		t.Fatalf("expected identity tonemap function, got %q", out)
	}
}

func TestAssembleDisplayFragmentShaderPackedSourceDeclaresSrcTex(t *testing.T) {
	out := AssembleDisplayFragmentShader(1, 0, 0, "", "", true, "", "", "", false, 0, 0)
	if !strings.Contains(out, "uniform sampler2D srcTex;") {
		t.Fatalf("expected a srcTex uniform for a packed source, got %q", out)
	}
	if !strings.Contains(out, "texture(srcTex, frag_uv).rgb") {
		t.Fatalf("expected main() to sample srcTex, got %q", out)
	}
	if strings.Contains(out, "yPlane") {
		t.Fatalf("did not expect YUV plane uniforms for a packed source, got %q", out)
	}
}

func TestAssembleDisplayFragmentShaderYUVSourceSamplesThreePlanes(t *testing.T) {
	out := AssembleDisplayFragmentShader(3, 1, 0, "", "", true, "", "", "", false, 0, 0)
	if !strings.Contains(out, "sampleYUV(frag_uv)") {
		t.Fatalf("expected main() to call sampleYUV, got %q", out)
	}
	if strings.Contains(out, "srcTex") {
		t.Fatalf("did not expect a srcTex uniform for a YUV source, got %q", out)
	}
	if !strings.Contains(out, "uniform sampler2D yPlane;") {
		t.Fatalf("expected the yPlane uniform declared via AssembleDisplayShader, got %q", out)
	}
}
