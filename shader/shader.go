package shader

// A simple vertex shader for drawing a fullscreen quad.
const vertexShaderSource = `#version 410 core
layout (location = 0) in vec2 in_vert;
out vec2 frag_uv;
void main() {
	frag_uv = in_vert * 0.5 + 0.5;
    gl_Position = vec4(in_vert, 0.0, 1.0);
}
`

// The blit fragment shader is used to copy a texture to the screen.
const blitFragmentShaderSourceFlip = `#version 410 core
in vec2 frag_uv;
out vec4 fragColor;
uniform sampler2D u_texture;

void main() {
    // Flip the y-coordinate by subtracting it from 1.0
    fragColor = texture(u_texture, vec2(frag_uv.x, 1.0 - frag_uv.y));
}
`

const blitFragmentShaderSource = `#version 410 core
in vec2 frag_uv;
out vec4 fragColor;
uniform sampler2D u_texture;

void main() {
    fragColor = texture(u_texture, frag_uv);
}
`

func GenerateVertexShader() string {
	return vertexShaderSource
}

func GetBlitFragmentShader(flip bool) string {
	if flip {
		return blitFragmentShaderSourceFlip
	}
	return blitFragmentShaderSource
}

