package fft

import "fmt"

// Bench implements spec §4.6's bench contract: warmup iterations run
// untimed, then up to iterations timed rounds each submit
// dispatchesPerIteration back-to-back Process calls followed by a
// full GPU-idle wait, early-exiting once accumulated wall time
// exceeds maxTimeSeconds. A timeout is reported through the BenchTimeout
// kind alongside the valid partial mean it computed, not as a failure:
// callers that only care about the mean can ignore a BenchTimeout
// error and use the returned value directly.
func (e *Engine) Bench(output, input Surface, warmup, iterations, dispatchesPerIteration int, maxTimeSeconds float64) (meanSeconds float64, completedIterations int, err error) {
	for i := 0; i < warmup; i++ {
		if perr := e.Process(output, input, nil); perr != nil {
			return 0, 0, perr
		}
	}

	start := e.gpu.MonotonicTime()
	for completedIterations < iterations {
		if e.gpu.MonotonicTime()-start > maxTimeSeconds {
			break
		}
		for d := 0; d < dispatchesPerIteration; d++ {
			if perr := e.Process(output, input, nil); perr != nil {
				return 0, completedIterations, perr
			}
		}
		if werr := e.gpu.WaitIdle(); werr != nil {
			return 0, completedIterations, newError(ResourceError, "WaitIdle failed during bench", werr)
		}
		completedIterations++
	}

	elapsed := e.gpu.MonotonicTime() - start
	if completedIterations == 0 {
		return 0, 0, newError(BenchTimeout, "max_time exceeded before any iteration completed", nil)
	}
	meanSeconds = elapsed / float64(completedIterations*dispatchesPerIteration)
	if completedIterations < iterations {
		return meanSeconds, completedIterations, newError(BenchTimeout, fmt.Sprintf("reached max_time=%.6fs after %d/%d iterations", maxTimeSeconds, completedIterations, iterations), nil)
	}
	return meanSeconds, completedIterations, nil
}
