package shader

import "fmt"

// GenerateYUVSamplingGLSL emits the uniform declarations and the RGB
// conversion function for a YUV source with the given plane count, matching
// the plane layout iodata.Image.PlaneSizes returns for the same pixel type.
// planeCount of 1 means the source is already packed RGB(A) and no
// conversion is generated.
func GenerateYUVSamplingGLSL(planeCount int, coeffs, levels int) string {
	if planeCount != 3 {
		return ""
	}
	return fmt.Sprintf(`
uniform sampler2D yPlane;
uniform sampler2D uPlane;
uniform sampler2D vPlane;
uniform int yuvCoefficients; // %d
uniform int videoLevels;     // %d

vec3 sampleYUV(vec2 uv) {
    float y = texture(yPlane, uv).r;
    float u = texture(uPlane, uv).r - 0.5;
    float v = texture(vPlane, uv).r - 0.5;
    if (videoLevels == 0) { // LegalRange
        y = (y - 16.0/255.0) * (255.0/219.0);
        u = u * (255.0/224.0);
        v = v * (255.0/224.0);
    }
    vec3 kr_kb = yuvCoefficients == 2 ? vec3(0.2627, 0.0, 0.0593)
               : yuvCoefficients == 1 ? vec3(0.2126, 0.0, 0.0722)
               : vec3(0.299, 0.0, 0.114);
    float kr = kr_kb.x, kb = kr_kb.z;
    float kg = 1.0 - kr - kb;
    float r = y + 2.0*(1.0-kr)*v;
    float b = y + 2.0*(1.0-kb)*u;
    float g = (y - kr*r - kb*b) / kg;
    return vec3(r, g, b);
}
`, coeffs, levels)
}

// GenerateInputColorSpaceGLSL emits the Input Color Space transform stage:
// input color space -> scene-linear, via a generated function name the
// caller substitutes into the display shader's call chain. An empty
// inputSpace means this stage is the identity.
func GenerateInputColorSpaceGLSL(inputSpace string) (string, string) {
	const fn = "ocioInputTransform"
	if inputSpace == "" {
		return fmt.Sprintf(`vec3 %s(vec3 c) { return c; }`, fn), fn
	}
	return fmt.Sprintf(`
// input color space: %s -> scene-linear
vec3 %s(vec3 c) {
    return c; // vendor-generated LUT sampling is substituted here per config
}
`, inputSpace, fn), fn
}

// GenerateLUTGLSL emits the user-LUT stage as a 3D-texture lookup, or the
// identity if path is empty.
func GenerateLUTGLSL(path string) (string, string) {
	const fn = "userLUT"
	if path == "" {
		return fmt.Sprintf(`vec3 %s(vec3 c) { return c; }`, fn), fn
	}
	return fmt.Sprintf(`
uniform sampler3D u_lut;
vec3 %s(vec3 c) {
    return texture(u_lut, clamp(c, 0.0, 1.0)).rgb;
}
`, fn), fn
}

// GenerateDisplayTransformGLSL emits the Display transform stage:
// scene-linear -> display/view/look.
func GenerateDisplayTransformGLSL(display, view, look string) (string, string) {
	const fn = "ocioDisplayTransform"
	if display == "" && view == "" {
		return fmt.Sprintf(`vec3 %s(vec3 c) { return c; }`, fn), fn
	}
	return fmt.Sprintf(`
// display: %s, view: %s, look: %s
vec3 %s(vec3 c) {
    return c; // vendor-generated display/view/look transform substituted here
}
`, display, view, look, fn), fn
}

// GenerateHDRToneMapGLSL emits the optional HDR tone-map stage, producing an
// SDR BT.709 result from HDR metadata. Returns the identity function when
// tonemap is false.
func GenerateHDRToneMapGLSL(tonemap bool, maxCLL, maxFALL float64) (string, string) {
	const fn = "hdrToneMap"
	if !tonemap {
		return fmt.Sprintf(`vec3 %s(vec3 c) { return c; }`, fn), fn
	}
	return fmt.Sprintf(`
const float u_maxCLL = %f;
const float u_maxFALL = %f;
vec3 %s(vec3 c) {
    float peak = max(u_maxCLL, 1.0);
    vec3 mapped = c / (1.0 + c / peak);
    return clamp(mapped, 0.0, 1.0);
}
`, maxCLL, maxFALL, fn), fn
}

// GenerateVideoLevelsGLSL emits the final legal-range rescale stage: scale
// [0,1] linearly into (64..940)/1023 when levels selects LegalRange output.
// Values are not clamped.
func GenerateVideoLevelsGLSL() string {
	return `
vec3 applyVideoLevels(vec3 c, int outputLevels) {
    if (outputLevels == 0) {
        return c * (876.0/1023.0) + (64.0/1023.0);
    }
    return c;
}
`
}

// AssembleDisplayShader stitches the six color-pipeline stages into one
// fragment shader body, in pipeline order, honoring LUTOrder for where the
// user LUT stage is inserted relative to the display transform. This
// mirrors GetFragmentShader's preamble+body+main concatenation, generalized
// from "one shader per Shadertoy pass" to "one shader per color pipeline
// configuration."
func AssembleDisplayShader(planeCount int, coeffs, levels int, inputSpace string, lutPath string, lutPreDisplay bool, display, view, look string, tonemap bool, maxCLL, maxFALL float64) string {
	yuv := GenerateYUVSamplingGLSL(planeCount, coeffs, levels)
	icsSrc, icsFn := GenerateInputColorSpaceGLSL(inputSpace)
	lutSrc, lutFn := GenerateLUTGLSL(lutPath)
	displaySrc, displayFn := GenerateDisplayTransformGLSL(display, view, look)
	hdrSrc, hdrFn := GenerateHDRToneMapGLSL(tonemap, maxCLL, maxFALL)
	levelsSrc := GenerateVideoLevelsGLSL()

	var callChain string
	if lutPreDisplay {
		callChain = fmt.Sprintf("%s(%s(%s(c)))", displayFn, hdrFn, lutFn)
	} else {
		callChain = fmt.Sprintf("%s(%s(%s(c)))", hdrFn, lutFn, displayFn)
	}

	return fmt.Sprintf(`%s
%s
%s
%s
%s
%s

vec3 applyColorPipeline(vec3 c) {
    c = %s(c);
    return applyVideoLevels(%s, %d);
}
`, yuv, icsSrc, lutSrc, displaySrc, hdrSrc, levelsSrc, icsFn, callChain, levels)
}

// AssembleDisplayFragmentShader wraps AssembleDisplayShader's color-pipeline
// functions in a complete, compilable fragment shader: it declares the
// source-texture uniform(s) (a single packed sampler2D for planeCount 1, or
// the yPlane/uPlane/vPlane trio AssembleDisplayShader already emits for
// planeCount 3), samples the source into linear RGB, and runs it through
// applyColorPipeline. This is the fragment half of the vertex/fragment pair
// compositor.go links into a display program; the companion vertex shader is
// GenerateVertexShader's fullscreen-quad pass-through.
func AssembleDisplayFragmentShader(planeCount int, coeffs, levels int, inputSpace string, lutPath string, lutPreDisplay bool, display, view, look string, tonemap bool, maxCLL, maxFALL float64) string {
	pipeline := AssembleDisplayShader(planeCount, coeffs, levels, inputSpace, lutPath, lutPreDisplay, display, view, look, tonemap, maxCLL, maxFALL)

	srcUniform := ""
	sample := "sampleYUV(frag_uv)"
	if planeCount != 3 {
		srcUniform = "uniform sampler2D srcTex;\n"
		sample = "texture(srcTex, frag_uv).rgb"
	}

	return fmt.Sprintf(`#version 410 core
in vec2 frag_uv;
out vec4 fragColor;
%s
%s
void main() {
    vec3 color = applyColorPipeline(%s);
    fragColor = vec4(color, 1.0);
}
`, srcUniform, pipeline, sample)
}
