package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	benchWidth         int
	benchHeight        int
	benchWarmup        int
	benchIterations    int
	benchDispatches    int
	benchTimeout       float64
	benchType          string
	benchFP16          bool
	benchInputTexture  bool
	benchOutputTexture bool
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark one transform shape on the loaded GPU",
	RunE: func(cmd *cobra.Command, args []string) error {
		args2 := benchArgs{
			width: benchWidth, height: benchHeight,
			warmup: benchWarmup, iterations: benchIterations, dispatches: benchDispatches,
			timeout: benchTimeout, typ: benchType, fp16: benchFP16,
			inputTexture: benchInputTexture, outputTexture: benchOutputTexture,
		}
		mean, completed, err := runBenchmark(args2)
		if err != nil {
			return err
		}
		logrus.Infof("%s -> %s  %dx%d %s %s  %.3f ms  (%d iterations completed)",
			surfaceLabel(args2.inputTexture), surfaceLabel(args2.outputTexture),
			args2.width, args2.height, args2.typ, precisionLabel(args2.fp16),
			mean*1000, completed)
		return nil
	},
}

func surfaceLabel(texture bool) string {
	if texture {
		return "Image"
	}
	return "SSBO"
}

func precisionLabel(fp16 bool) string {
	if fp16 {
		return "FP16"
	}
	return "FP32"
}

func init() {
	benchCmd.Flags().IntVar(&benchWidth, "width", 256, "Transform width (Nx)")
	benchCmd.Flags().IntVar(&benchHeight, "height", 1, "Transform height (Ny); 1 for a 1-D transform")
	benchCmd.Flags().IntVar(&benchWarmup, "warmup", 2, "Untimed warmup iterations")
	benchCmd.Flags().IntVar(&benchIterations, "iterations", 20, "Timed iterations")
	benchCmd.Flags().IntVar(&benchDispatches, "dispatches", 50, "Process dispatches per timed iteration")
	benchCmd.Flags().Float64Var(&benchTimeout, "timeout", 1.0, "Maximum wall time in seconds before reporting a partial mean")
	benchCmd.Flags().StringVar(&benchType, "type", "C2C", "Transform type: C2C, C2CDual, R2C, C2R")
	benchCmd.Flags().BoolVar(&benchFP16, "fp16", false, "Use fp16 core precision")
	benchCmd.Flags().BoolVar(&benchInputTexture, "input-texture", false, "Bind the input as an Image rather than an SSBO")
	benchCmd.Flags().BoolVar(&benchOutputTexture, "output-texture", false, "Bind the output as an Image rather than an SSBO")
}
