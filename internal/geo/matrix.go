package geo

// Matrix is a square, symmetric distance matrix in integer meters with a zero
// diagonal. Integer entries keep comparisons exact across runs.
type Matrix [][]int

// BuildMatrix computes the haversine distance for every unordered pair of
// points once and stores it in both halves.
func BuildMatrix(points []LatLng) Matrix {
	n := len(points)
	m := make(Matrix, n)
	for i := range m {
		m[i] = make([]int, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := DistanceMeters(points[i], points[j])
			m[i][j] = d
			m[j][i] = d
		}
	}
	return m
}

// BuildPointMatrix is BuildMatrix over identified points.
func BuildPointMatrix(points []Point) Matrix {
	coords := make([]LatLng, len(points))
	for i, p := range points {
		coords[i] = p.LatLng
	}
	return BuildMatrix(coords)
}

// Len returns the number of points covered by the matrix.
func (m Matrix) Len() int { return len(m) }

// Square reports whether every row has exactly Len entries.
func (m Matrix) Square() bool {
	for _, row := range m {
		if len(row) != len(m) {
			return false
		}
	}
	return true
}

// PathLength sums consecutive distances along an open path. No edge is
// counted from the last index back to the first.
func (m Matrix) PathLength(order []int) int {
	total := 0
	for i := 0; i+1 < len(order); i++ {
		total += m[order[i]][order[i+1]]
	}
	return total
}

// Legs returns, for each position in order, the distance from the previous
// stop and the cumulative distance from the start. The first stop has zero
// for both.
func (m Matrix) Legs(order []int) (leg, cumulative []int) {
	leg = make([]int, len(order))
	cumulative = make([]int, len(order))
	for i := 1; i < len(order); i++ {
		leg[i] = m[order[i-1]][order[i]]
		cumulative[i] = cumulative[i-1] + leg[i]
	}
	return leg, cumulative
}
