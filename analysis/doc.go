// Package analysis provides volumetric numeric routines over volren
// datasets: intensity histograms, Gaussian smoothing and bounding-box
// ray casting.
//
// All routines are pure per call: they read the dataset as an immutable
// snapshot and keep no state between calls. An Engine optionally carries
// a GPU device; routines that have a GPU path use it when the dataset's
// format allows and fall back to the CPU path otherwise, producing
// results that agree within floating tolerance.
package analysis
