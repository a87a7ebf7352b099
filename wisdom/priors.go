package wisdom

import (
	"strings"

	"github.com/arnek/gpufft/fparams"
)

// Prior is one renderer-identity static default, matched by substring
// against driver.GPU.RendererString(). The table is treated as data,
// not logic (spec §9 "Open question: the static prior table"):
// callers are free to append additional entries at program-init time.
type Prior struct {
	Substring   string
	Performance fparams.Performance
}

// StaticPriors is the ordered table of known-good defaults per known
// device family, consulted before exhaustive micro-benchmarking seeds
// the wisdom map for every unmeasured tuple. The first substring match
// wins; entries are ordered most-specific first.
//
// Seeded from the device families original_source/glfft_common.cpp
// special-cases, generalized to this engine's Performance shape.
var StaticPriors = []Prior{
	{Substring: "Mali", Performance: fparams.Performance{WorkGroupSizeX: 4, WorkGroupSizeY: 1, VectorWidth: 2, SharedBanked: true}},
	{Substring: "Adreno", Performance: fparams.Performance{WorkGroupSizeX: 8, WorkGroupSizeY: 1, VectorWidth: 2, SharedBanked: false}},
	{Substring: "Apple", Performance: fparams.Performance{WorkGroupSizeX: 8, WorkGroupSizeY: 1, VectorWidth: 4, SharedBanked: true}},
	{Substring: "Intel", Performance: fparams.Performance{WorkGroupSizeX: 8, WorkGroupSizeY: 2, VectorWidth: 2, SharedBanked: false}},
	{Substring: "NVIDIA", Performance: fparams.Performance{WorkGroupSizeX: 32, WorkGroupSizeY: 1, VectorWidth: 4, SharedBanked: true}},
	{Substring: "AMD", Performance: fparams.Performance{WorkGroupSizeX: 64, WorkGroupSizeY: 1, VectorWidth: 4, SharedBanked: true}},
}

// StaticPrior returns the Performance recommended for rendererString,
// trying each entry of StaticPriors in order and reporting whether
// any matched.
func StaticPrior(rendererString string) (fparams.Performance, bool) {
	for _, p := range StaticPriors {
		if strings.Contains(rendererString, p.Substring) {
			return p.Performance, true
		}
	}
	return fparams.Performance{}, false
}
