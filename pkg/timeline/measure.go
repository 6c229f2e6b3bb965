package timeline

// Measurer reports the screen-space center x of each rendered bar, index
// aligned with the day sequence. Bars it cannot measure may be omitted from
// the tail of the result.
type Measurer interface {
	MeasureBarCenters(count int) []float64
}

// MeasurerFunc adapts a function to Measurer.
type MeasurerFunc func(count int) []float64

func (f MeasurerFunc) MeasureBarCenters(count int) []float64 {
	return f(count)
}

// GridMeasurer measures bars laid out on a fixed pitch, as in a terminal
// where each bar occupies Pitch columns starting at Origin. Only the bars in
// the visible window [Offset, Offset+Visible) are measured.
type GridMeasurer struct {
	Origin  float64
	Pitch   float64
	Offset  int
	Visible int
}

// MeasureBarCenters implements Measurer.
func (g GridMeasurer) MeasureBarCenters(count int) []float64 {
	end := min(count, g.Offset+g.Visible)
	if end <= 0 {
		return nil
	}

	centers := make([]float64, end)
	for i := g.Offset; i < end; i++ {
		centers[i] = g.Origin + float64(i-g.Offset)*g.Pitch + g.Pitch/2
	}
	return centers
}
