package gpu

import _ "embed"

// Kernel sources are embedded so the binary carries its own shaders.
// The raymarch kernel's binding declarations double as the layout of
// record: ParseBindings reads them back at pipeline construction.

//go:embed shaders/volume.wgsl
var RaymarchWGSL string

//go:embed shaders/histogram.wgsl
var HistogramWGSL string

//go:embed shaders/blur.wgsl
var BlurWGSL string
