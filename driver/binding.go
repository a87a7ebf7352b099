package driver

// Descriptor numbers every backend and the runtime (package fft) agree
// on for a single pass's descriptor heap: a pass always binds its
// input surface at DescInput, its output surface at DescOutput, and
// InverseConvolve passes additionally bind the frequency-domain kernel
// at DescAux.
const (
	DescInput  = 0
	DescOutput = 1
	DescAux    = 2
)
