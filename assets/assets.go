// Package assets embeds the default shader and texture shipped with spinquad.
package assets

import _ "embed"

// QuadShader is the WGSL program that draws the textured quad.
//
//go:embed shader.wgsl
var QuadShader string

// QuadShaderLabel names QuadShader in GPU debug labels.
const QuadShaderLabel = "Quad Shader"

// DefaultTexture is the PNG drawn when no texture file is configured.
//
//go:embed scenary.png
var DefaultTexture []byte

// DefaultTextureName identifies DefaultTexture in logs and caches.
const DefaultTextureName = "scenary.png"
