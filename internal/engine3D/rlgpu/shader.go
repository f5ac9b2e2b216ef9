package rlgpu

// The face-selection shader. raylib binds the material's diffuse map to
// texture0 and its specular map to texture1; the back face goes in the
// first, the front face in the second.
const cardVertexShader = `#version 330
in vec3 vertexPosition;
in vec2 vertexTexCoord;

uniform mat4 mvp;

out vec2 fragTexCoord;

void main() {
    fragTexCoord = vertexTexCoord;
    gl_Position = mvp * vec4(vertexPosition, 1.0);
}
`

const cardFragmentShader = `#version 330
in vec2 fragTexCoord;

uniform sampler2D texture0;
uniform sampler2D texture1;
uniform vec4 colDiffuse;
uniform float opacity;

out vec4 finalColor;

void main() {
    vec4 texel;
    if (gl_FrontFacing) {
        texel = texture(texture0, fragTexCoord);
    } else {
        texel = texture(texture1, vec2(1.0 - fragTexCoord.x, fragTexCoord.y));
    }
    finalColor = vec4(texel.rgb, texel.a * opacity) * colDiffuse;
}
`
