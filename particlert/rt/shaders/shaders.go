package shaders

import (
	_ "embed"
)

//go:embed material.wgsl
var MaterialWGSL string

//go:embed skybox.wgsl
var SkyboxWGSL string

//go:embed quad.wgsl
var QuadWGSL string

//go:embed update_particle.wgsl
var UpdateParticleWGSL string

//go:embed draw_particle.wgsl
var DrawParticleWGSL string
