package engine

import "math"

// CorrelationMatrix holds pairwise Pearson coefficients between the metric
// columns, indexed in Fields order. Undefined cells are Missing.
type CorrelationMatrix struct {
	Fields [3]Field
	Values [3][3]float64
}

// At returns the coefficient between fields a and b.
func (m CorrelationMatrix) At(a, b Field) float64 { return m.Values[a][b] }

// Correlate computes the pairwise-complete Pearson correlation of the three
// metric columns. A diagonal cell is 1 when its column has any value. An
// off-diagonal cell needs two complete pairs and non-zero variance on both
// sides, otherwise it is Missing.
func Correlate(t *TidyTable) CorrelationMatrix {
	m := CorrelationMatrix{Fields: Fields}
	if t.Len() == 0 {
		for i := range m.Values {
			for j := range m.Values[i] {
				m.Values[i][j] = Missing
			}
		}
		return m
	}

	for i, fi := range Fields {
		m.Values[i][i] = Missing
		for _, v := range t.Column(fi) {
			if !IsMissing(v) {
				m.Values[i][i] = 1
				break
			}
		}
		for j := i + 1; j < len(Fields); j++ {
			r := pearson(t.Column(fi), t.Column(Fields[j]))
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m
}

// pearson correlates xs and ys over the positions where both are present.
// It uses the two-pass form for numerical stability.
func pearson(xs, ys []float64) float64 {
	var n int
	var sx, sy float64
	for i := range xs {
		if IsMissing(xs[i]) || IsMissing(ys[i]) {
			continue
		}
		sx += xs[i]
		sy += ys[i]
		n++
	}
	if n < 2 {
		return Missing
	}
	mx, my := sx/float64(n), sy/float64(n)

	var cov, vx, vy float64
	for i := range xs {
		if IsMissing(xs[i]) || IsMissing(ys[i]) {
			continue
		}
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return Missing
	}
	r := cov / math.Sqrt(vx*vy)
	return math.Max(-1, math.Min(1, r))
}
