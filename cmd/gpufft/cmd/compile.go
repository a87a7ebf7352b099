package cmd

import (
	"github.com/arnek/gpufft/driver"
	"github.com/arnek/gpufft/fparams"
	"github.com/arnek/gpufft/internal/shadertmpl"
	"github.com/arnek/gpufft/plan"
)

// templateCompiler implements plan.Compiler the same way package fft
// does internally: generate source through the shared
// parameter-embedding convention and hand it to the loaded GPU. The
// CLI needs its own instance because plan.Build takes a Compiler
// directly and fft's is unexported.
type templateCompiler struct{}

var _ plan.Compiler = templateCompiler{}

func (templateCompiler) Compile(gpu driver.GPU, p fparams.Parameters) (driver.ShaderCode, driver.Pipeline, error) {
	src := shadertmpl.Generate(p)
	code, err := gpu.NewShaderCode(src)
	if err != nil {
		return nil, nil, err
	}
	pl, err := gpu.NewPipeline(&driver.CompState{Func: driver.ShaderFunc{Code: code, Name: "main"}})
	if err != nil {
		code.Destroy()
		return nil, nil, err
	}
	return code, pl, nil
}
