package mem

import "github.com/arnek/gpufft/fparams"

// ShaderCode holds the Parameters recovered from generated source
// text (package internal/shadertmpl). The source text itself is
// discarded: this backend never compiles GLSL, it only needs to know
// which specialization it was asked to build.
type ShaderCode struct {
	params fparams.Parameters
}

func (c *ShaderCode) Destroy() {}

// Pipeline carries the Parameters forward from ShaderCode to the
// command buffer that dispatches it.
type Pipeline struct {
	params fparams.Parameters
}

func (p *Pipeline) Destroy() {}
