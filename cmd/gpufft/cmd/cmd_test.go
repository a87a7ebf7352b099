package cmd

import (
	"testing"

	_ "github.com/arnek/gpufft/driver/mem"
	"github.com/arnek/gpufft/internal/ctxt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBenchFlagDefaultsMatchOriginalCLI(t *testing.T) {
	flags := benchCmd.Flags()

	wantInt := map[string]int{
		"width": 256, "height": 1, "warmup": 2, "iterations": 20, "dispatches": 50,
	}
	for name, want := range wantInt {
		got, err := flags.GetInt(name)
		require.NoError(t, err, "flag %q", name)
		assert.Equal(t, want, got, "--%s default", name)
	}

	timeout, err := flags.GetFloat64("timeout")
	require.NoError(t, err)
	assert.Equal(t, 1.0, timeout, "--timeout default")

	typ, err := flags.GetString("type")
	require.NoError(t, err)
	assert.Equal(t, "C2C", typ, "--type default")

	for _, name := range []string{"fp16", "input-texture", "output-texture"} {
		got, err := flags.GetBool(name)
		require.NoError(t, err, "flag %q", name)
		assert.False(t, got, "--%s default", name)
	}
}

func TestTestCmdRegistersSeedSelectionFlags(t *testing.T) {
	for _, name := range []string{"test", "test-range", "test-all", "exit-on-fail",
		"minimum-snr-fp16", "minimum-snr-fp32", "epsilon-fp16", "epsilon-fp32"} {
		assert.NotNil(t, testCmd.Flags().Lookup(name), "testCmd missing registered flag --%s", name)
	}
}

func TestRunSeedTestRecognizesAllSixIDs(t *testing.T) {
	require.NoError(t, ctxt.Load(""), "loading default driver")
	for id := 1; id <= seedTestCount; id++ {
		res := runSeedTest(id, 1e-6, 1e-3, 100, 50)
		assert.NotEqual(t, "unknown", res.Name, "seed test %d was not recognized", id)
		assert.True(t, res.Passed, "seed test %d (%s) failed: %s", id, res.Name, res.Detail)
	}
}

func TestRunSeedTestRejectsOutOfRangeID(t *testing.T) {
	require.NoError(t, ctxt.Load(""), "loading default driver")
	res := runSeedTest(seedTestCount+1, 1e-6, 1e-3, 100, 50)
	assert.False(t, res.Passed, "expected an out-of-range seed test id to fail")
}

func TestParseType(t *testing.T) {
	for _, s := range []string{"C2C", "C2CDual", "R2C", "C2R"} {
		_, err := parseType(s)
		assert.NoError(t, err, "parseType(%q)", s)
	}
	_, err := parseType("bogus")
	assert.Error(t, err, `parseType("bogus") should have returned an error`)
}
