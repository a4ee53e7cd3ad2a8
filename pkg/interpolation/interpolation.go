package interpolation

// Interpolator fills a gap of gapLen samples between two known signal
// fragments. Either fragment may be short or empty; implementations degrade
// to silence when there is not enough context.
type Interpolator interface {
	Interpolate(before, after []float64, gapLen int) []float64
}
