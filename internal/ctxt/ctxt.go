// Package ctxt provides the process-wide GPU driver used by the
// runtime and CLI: a single loaded driver.Driver/driver.GPU pair,
// rather than a GPU handle threaded through every call.
package ctxt

import (
	"errors"
	"strings"

	"github.com/arnek/gpufft/driver"
	// The in-process reference backend self-registers via init, so a
	// caller that never builds a real device binding still has at
	// least one driver to load.
	_ "github.com/arnek/gpufft/driver/mem"
)

var (
	drv    driver.Driver
	gpu    driver.GPU
	limits driver.Limits
)

var errNoDriver = errors.New("ctxt: driver not found")

func init() {
	// "mem" is always registered; ignore the error here so that a
	// caller who wants a different backend can still call Load
	// explicitly before using Driver/GPU.
	_ = Load("")
}

// Load attempts to load any registered driver whose name contains
// name (case-sensitive); an empty name matches the first registered
// driver. It replaces the package's driver/GPU/limits on success.
func Load(name string) error {
	drivers := driver.Drivers()
	err := errNoDriver
	for i := range drivers {
		if !strings.Contains(drivers[i].Name(), name) {
			continue
		}
		var u driver.GPU
		if u, err = drivers[i].Open(); err != nil {
			continue
		}
		drv = drivers[i]
		gpu = u
		limits = gpu.Limits()
		return nil
	}
	return err
}

// Driver returns the loaded driver.Driver, or nil if none has loaded.
func Driver() driver.Driver { return drv }

// GPU returns the loaded driver.GPU, or nil if none has loaded.
func GPU() driver.GPU { return gpu }

// Limits returns the loaded GPU's driver.Limits. Retrieved once at
// load time; callers must not mutate the returned value.
func Limits() *driver.Limits { return &limits }
