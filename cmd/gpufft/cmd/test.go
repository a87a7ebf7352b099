package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	testID       int
	testRange    []int
	testAll      bool
	exitOnFail   bool
	minSNRfp16   float64
	minSNRfp32   float64
	epsilonFP16  float64
	epsilonFP32  float64
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run the conformance seed tests of spec §8 against the loaded GPU",
	RunE: func(cmd *cobra.Command, args []string) error {
		idMin, idMax := 1, seedTestCount
		switch {
		case testAll:
			idMin, idMax = 1, seedTestCount
		case len(testRange) == 2:
			idMin, idMax = testRange[0], testRange[1]
		case testID != 0:
			idMin, idMax = testID, testID
		}
		if idMin < 1 || idMax > seedTestCount || idMin > idMax {
			return fmt.Errorf("test id range [%d,%d] is out of bounds [1,%d]", idMin, idMax, seedTestCount)
		}

		failures := 0
		for id := idMin; id <= idMax; id++ {
			res := runSeedTest(id, epsilonFP32, epsilonFP16, minSNRfp32, minSNRfp16)
			if res.Passed {
				logrus.Infof("PASS [%d] %s -- %s", res.ID, res.Name, res.Detail)
				continue
			}
			failures++
			logrus.Errorf("FAIL [%d] %s -- %s", res.ID, res.Name, res.Detail)
			if exitOnFail {
				return fmt.Errorf("test %d failed: %s", res.ID, res.Detail)
			}
		}
		if failures > 0 {
			return fmt.Errorf("%d of %d tests failed", failures, idMax-idMin+1)
		}
		return nil
	},
}

func init() {
	testCmd.Flags().IntVar(&testID, "test", 0, "Run a specific seed test, indexed by number")
	testCmd.Flags().IntSliceVar(&testRange, "test-range", nil, "Run seed tests between two indices, e.g. --test-range=2,4")
	testCmd.Flags().BoolVar(&testAll, "test-all", false, "Run every seed test")
	testCmd.Flags().BoolVar(&exitOnFail, "exit-on-fail", false, "Exit immediately when a test does not pass")
	testCmd.Flags().Float64Var(&minSNRfp16, "minimum-snr-fp16", 50, "Minimum acceptable round-trip SNR in dB for fp16 plans")
	testCmd.Flags().Float64Var(&minSNRfp32, "minimum-snr-fp32", 100, "Minimum acceptable round-trip SNR in dB for fp32 plans")
	testCmd.Flags().Float64Var(&epsilonFP16, "epsilon-fp16", 1e-3, "Absolute error tolerance for fp16 plans")
	testCmd.Flags().Float64Var(&epsilonFP32, "epsilon-fp32", 1e-6, "Absolute error tolerance for fp32 plans")
}
