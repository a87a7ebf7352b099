// Package mem implements an in-process, cgo-free reference GPU
// backend: every resource is a plain Go byte slice or struct, and
// Dispatch executes the actual Stockham/resolve math (package
// internal/stockham) rather than driving a real accelerator. It exists
// so the engine's own test suite can exercise real numeric results
// without a platform-specific graphics driver, the same role the
// retrieved software/mock HAL backends play in their own trees.
//
// The backend makes one simplifying choice that a real driver could
// not: Dispatch executes synchronously and immediately, and Commit
// merely reports success. There is no asynchronous queue to model
// because there is no real device latency to hide.
package mem

import (
	"github.com/arnek/gpufft/driver"
)

func init() {
	driver.Register(&Driver{})
}

// Driver is the mem backend's driver.Driver implementation. Opening it
// never fails: there is no platform library to be missing and no
// physical device to be absent.
type Driver struct {
	gpu *GPU
}

// Open returns the backend's single GPU instance, creating it on first
// call.
func (d *Driver) Open() (driver.GPU, error) {
	if d.gpu == nil {
		d.gpu = newGPU()
	}
	return d.gpu, nil
}

// Name returns the backend's registration name.
func (d *Driver) Name() string { return "mem" }

// Close drops the backend's GPU instance. A later Open creates a fresh
// one.
func (d *Driver) Close() { d.gpu = nil }
