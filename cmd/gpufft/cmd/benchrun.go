package cmd

import (
	"fmt"

	"github.com/arnek/gpufft/driver"
	"github.com/arnek/gpufft/fft"
	"github.com/arnek/gpufft/fparams"
	"github.com/arnek/gpufft/internal/ctxt"
	"github.com/arnek/gpufft/plan"
	"github.com/arnek/gpufft/progcache"
	"github.com/arnek/gpufft/wisdom"
)

type benchArgs struct {
	width, height                  int
	warmup, iterations, dispatches int
	timeout                        float64
	typ                            string
	fp16                           bool
	inputTexture, outputTexture    bool
}

func parseType(s string) (fparams.Type, error) {
	switch s {
	case "C2C":
		return fparams.C2C, nil
	case "C2CDual":
		return fparams.C2CDual, nil
	case "R2C":
		return fparams.R2C, nil
	case "C2R":
		return fparams.C2R, nil
	default:
		return 0, fmt.Errorf("unknown --type %q (want C2C, C2CDual, R2C, or C2R)", s)
	}
}

// imagePixelFmt mirrors the original implementation's format choice
// per type/slot: a dual signal packs four lanes per pixel, an
// ordinary complex signal packs two, and the real side of a
// R2C/C2R transform packs one -- the same real/complex packing trick
// package internal/stockham applies to buffers, at the image level.
func imagePixelFmt(typ fparams.Type, fp16, real bool) driver.PixelFmt {
	switch {
	case typ == fparams.C2CDual:
		return driver.RGBA8un
	case real:
		if fp16 {
			return driver.R16f
		}
		return driver.R32f
	case fp16:
		return driver.RG16f
	default:
		return driver.RG32f
	}
}

// runBenchmark builds the surfaces args describes and times args.dispatches
// Process calls per iteration via Engine.Bench, the CLI counterpart of
// the original implementation's run_benchmark.
func runBenchmark(args benchArgs) (meanSeconds float64, completedIterations int, err error) {
	gpu := ctxt.GPU()
	if gpu == nil {
		return 0, 0, fmt.Errorf("no GPU driver loaded")
	}
	typ, err := parseType(args.typ)
	if err != nil {
		return 0, 0, err
	}

	direction := fparams.Forward
	if typ == fparams.C2R {
		direction = fparams.Inverse
	}

	inputTarget, outputTarget := fparams.SSBO, fparams.SSBO
	if args.inputTexture {
		inputTarget = fparams.Image
		if typ == fparams.R2C {
			inputTarget = fparams.ImageReal
		}
	}
	if args.outputTexture {
		outputTarget = fparams.Image
		if typ == fparams.C2R {
			outputTarget = fparams.ImageReal
		}
	}

	cache := progcache.New()
	defer cache.Release()
	w := wisdom.New()

	e, err := fft.New(gpu, cache, w, plan.Request{
		Nx: args.width, Ny: args.height, Type: typ, Direction: direction,
		InputTarget: inputTarget, OutputTarget: outputTarget,
		TypeOpts: fparams.TypeOptions{FP16Core: args.fp16, FP16Input: args.fp16, FP16Output: args.fp16},
	})
	if err != nil {
		return 0, 0, fmt.Errorf("building plan: %w", err)
	}
	defer e.Destroy()

	ny := args.height
	if ny <= 0 {
		ny = 1
	}

	inSurf, err := newSurface(gpu, inputTarget, typ, args.width, ny, args.fp16, typ == fparams.R2C)
	if err != nil {
		return 0, 0, fmt.Errorf("allocating input surface: %w", err)
	}
	outSurf, err := newSurface(gpu, outputTarget, typ, args.width, ny, args.fp16, typ == fparams.C2R)
	if err != nil {
		return 0, 0, fmt.Errorf("allocating output surface: %w", err)
	}

	mean, completed, berr := e.Bench(outSurf, inSurf, args.warmup, args.iterations, args.dispatches, args.timeout)
	if berr != nil {
		if fe, ok := berr.(*fft.Error); !ok || fe.Kind != fft.BenchTimeout {
			return mean, completed, berr
		}
	}
	return mean, completed, nil
}

func newSurface(gpu driver.GPU, target fparams.Target, typ fparams.Type, width, height int, fp16, real bool) (fft.Surface, error) {
	if target == fparams.SSBO {
		bytesPerElem := int64(8)
		if typ.Dual() {
			bytesPerElem = 16
		}
		if real {
			bytesPerElem /= 2
		}
		buf, err := gpu.NewBuffer(int64(width*height)*bytesPerElem, true, driver.UGeneric)
		if err != nil {
			return fft.Surface{}, err
		}
		return fft.FromBuffer(buf), nil
	}
	fmtPix := imagePixelFmt(typ, fp16, real)
	img, err := gpu.NewImage(fmtPix, driver.Dim2D{Width: width, Height: height}, driver.UGeneric)
	if err != nil {
		return fft.Surface{}, err
	}
	return fft.FromImage(img), nil
}
