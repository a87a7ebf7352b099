// Package cmd implements the non-normative conformance CLI of spec
// §6: test/bench/help sub-commands over the fft runtime, grounded on
// the corpus's cobra+logrus CLI idiom rather than the hand-rolled
// argv parser of the original implementation's command line.
package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "gpufft",
	Short: "Conformance and benchmark CLI for the GPU-resident FFT engine",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the root command, exiting the process with a non-zero
// status on any failed test or parse error, per spec §6.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (debug, info, warn, error)")
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(benchCmd)
}
