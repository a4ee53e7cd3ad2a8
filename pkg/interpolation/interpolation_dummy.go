package interpolation

type Dummy struct{}

var _ Interpolator = Dummy{}

// Interpolate fills the gap with silence.
func (Dummy) Interpolate(before, after []float64, gapLen int) []float64 {
	return make([]float64, gapLen)
}
