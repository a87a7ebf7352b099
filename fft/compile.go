package fft

import (
	"github.com/arnek/gpufft/driver"
	"github.com/arnek/gpufft/fparams"
	"github.com/arnek/gpufft/internal/shadertmpl"
	"github.com/arnek/gpufft/plan"
)

// templateCompiler implements plan.Compiler by generating source text
// through the shared parameter-embedding convention (package
// internal/shadertmpl) and handing it to the collaborator GPU. It is
// the one piece of plumbing between "a Parameters fingerprint" and "a
// compiled program" that every backend, including driver/mem, shares.
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
