// Package shaders embeds the WGSL source for every render pass.
package shaders

import _ "embed"

//go:embed gbuffer.wgsl
var GBufferWGSL string

//go:embed ssao.wgsl
var SSAOWGSL string

//go:embed lighting.wgsl
var LightingWGSL string

//go:embed ibl.wgsl
var IBLWGSL string

//go:embed ssr.wgsl
var SSRWGSL string

//go:embed dof.wgsl
var DoFWGSL string

//go:embed bloom.wgsl
var BloomWGSL string

//go:embed glitch.wgsl
var GlitchWGSL string

//go:embed ui_text.wgsl
var UITextWGSL string

//go:embed ui_composite.wgsl
var UICompositeWGSL string

//go:embed tonemap.wgsl
var TonemapWGSL string
